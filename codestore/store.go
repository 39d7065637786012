package codestore

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/colorfulnotion/lowering/codegen"
	"github.com/colorfulnotion/lowering/heap"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"golang.org/x/crypto/blake2b"
)

// Hash identifies a compiled unit: blake2b-256 over its source and the
// generator options it was compiled with.
type Hash [32]byte

func (h Hash) Hex() string    { return hex.EncodeToString(h[:]) }
func (h Hash) String() string { return "0x" + h.Hex() }

// ParseHash accepts the Hex form, with or without 0x.
func ParseHash(s string) (Hash, error) {
	var h Hash
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("parse hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("parse hash %q: want %d bytes, got %d", s, len(h), len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Key derives the cache key for source compiled under opts.
func Key(source []byte, opts codegen.Options) Hash {
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		panic(err)
	}
	hasher, _ := blake2b.New256(nil)
	hasher.Write(source)
	hasher.Write(optsJSON)
	var h Hash
	copy(h[:], hasher.Sum(nil))
	return h
}

var codePrefix = []byte("code/")

func codeKey(h Hash) []byte {
	return append(append([]byte(nil), codePrefix...), h[:]...)
}

// Store caches finished code objects in LevelDB.
type Store struct {
	db *leveldb.DB
}

// Open opens or creates a store at path. An empty path keeps everything
// in memory.
func Open(path string) (*Store, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		memStorage := leveldbstorage.NewMemStorage()
		db, err = leveldb.Open(memStorage, nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open code store at %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// OpenMemory creates an in-memory Store for testing.
func OpenMemory() (*Store, error) {
	return Open("")
}

// Get loads the code stored under key. Returns (nil, false, nil) if not
// found. Heap objects named by the code are interned in factory.
func (s *Store) Get(key Hash, factory *heap.Factory) (*codegen.Code, bool, error) {
	data, err := s.db.Get(codeKey(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("Get %s: %w", key, err)
	}
	code, err := DecodeCode(data, factory)
	if err != nil {
		return nil, false, fmt.Errorf("Get %s: %w", key, err)
	}
	return code, true, nil
}

func (s *Store) Put(key Hash, code *codegen.Code) error {
	return s.db.Put(codeKey(key), EncodeCode(code), nil)
}

func (s *Store) Delete(key Hash) error {
	return s.db.Delete(codeKey(key), nil)
}

// Keys lists every stored key in key order.
func (s *Store) Keys() ([]Hash, error) {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()

	var keys []Hash
	for ok := iter.Seek(codePrefix); ok; ok = iter.Next() {
		key := iter.Key()
		if !bytes.HasPrefix(key, codePrefix) {
			break
		}
		var h Hash
		copy(h[:], key[len(codePrefix):])
		keys = append(keys, h)
	}

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iterator error: %w", err)
	}

	return keys, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
