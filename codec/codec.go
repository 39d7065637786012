package codec

import (
	"errors"
	"math"
)

// ErrShortBuffer is returned when an encoded integer runs past the end of its input.
var ErrShortBuffer = errors.New("codec: short buffer")

func powerOfTwo(exp uint32) uint64 {
	return uint64(1) << exp
}

// E_l - fixed width little-endian integer encoding
func E_l(x uint64, l uint32) []byte {
	encoded := make([]byte, l)
	for i := uint32(0); i < l; i++ {
		encoded[i] = byte(x)
		x >>= 8
	}
	return encoded
}

// DecodeE_l - fixed width little-endian integer decoding
func DecodeE_l(encoded []byte) uint64 {
	var x uint64 = 0
	for i := len(encoded) - 1; i >= 0; i-- {
		x = x*256 + uint64(encoded[i])
	}
	return x
}

// E - general natural number serialization up to 2^64. The number of leading
// one bits in the first byte gives the count of trailing E_l bytes.
func E(x uint64) []byte {
	if x == 0 {
		return []byte{0}
	}
	for l := uint32(0); l < 8; l++ {
		if x >= powerOfTwo(7*l) && x < powerOfTwo(7*(l+1)) {
			encoded := []byte{byte(256 - powerOfTwo(8-l) + x/powerOfTwo(8*l))}
			encoded = append(encoded, E_l(x%powerOfTwo(8*l), l)...)
			return encoded
		}
	}
	encoded := []byte{byte(math.MaxUint8)}
	encoded = append(encoded, E_l(x, 8)...)
	return encoded
}

// DecodeE - general natural number deserialization. Returns the value and the
// number of bytes consumed.
func DecodeE(encoded []byte) (uint64, uint32, error) {
	if len(encoded) == 0 {
		return 0, 0, ErrShortBuffer
	}
	firstByte := encoded[0]
	if firstByte == 0 {
		return 0, 1, nil
	}
	if firstByte == math.MaxUint8 {
		if len(encoded) < 9 {
			return 0, 0, ErrShortBuffer
		}
		return DecodeE_l(encoded[1:9]), 9, nil
	}
	var l uint32
	for l = 0; l < 8; l++ {
		if uint64(firstByte) >= 256-powerOfTwo(8-l) && uint64(firstByte) < 256-powerOfTwo(8-(l+1)) {
			if uint32(len(encoded)) < 1+l {
				return 0, 0, ErrShortBuffer
			}
			x1 := uint64(firstByte) - (256 - powerOfTwo(8-l))
			x2 := DecodeE_l(encoded[1 : 1+l])
			return x1*powerOfTwo(8*l) + x2, l + 1, nil
		}
	}
	return 0, 0, ErrShortBuffer
}

// ZigZag maps signed integers onto naturals so small magnitudes stay short.
func ZigZag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// UnZigZag reverses ZigZag.
func UnZigZag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// EInt encodes a signed integer.
func EInt(v int64) []byte {
	return E(ZigZag(v))
}

// DecodeEInt decodes a signed integer written by EInt.
func DecodeEInt(encoded []byte) (int64, uint32, error) {
	u, n, err := DecodeE(encoded)
	if err != nil {
		return 0, 0, err
	}
	return UnZigZag(u), n, nil
}

// LengthE - length prefixed sequence of naturals
func LengthE(x []uint64) []byte {
	encoded := E(uint64(len(x)))
	for i := 0; i < len(x); i++ {
		encoded = append(encoded, E(x[i])...)
	}
	return encoded
}
