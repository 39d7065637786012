package codec

// Reader walks a byte slice of E-encoded values.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.pos }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(offset int) { r.pos = offset }

// HasMore reports whether unread bytes remain.
func (r *Reader) HasMore() bool { return r.pos < len(r.buf) }

func (r *Reader) ReadE() (uint64, error) {
	if r.pos > len(r.buf) {
		return 0, ErrShortBuffer
	}
	v, n, err := DecodeE(r.buf[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += int(n)
	return v, nil
}

func (r *Reader) ReadEInt() (int64, error) {
	u, err := r.ReadE()
	if err != nil {
		return 0, err
	}
	return UnZigZag(u), nil
}

func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, ErrShortBuffer
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes returns the next n bytes without copying.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrShortBuffer
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}
