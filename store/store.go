// Package store is a content-addressed index for compiled artifacts.
//
// Function artifacts are keyed by a sha256 digest of their instruction
// bytes and constant fingerprint. The in-memory index serves lookups
// during a session; an optional sqlite database persists whole images
// between runs, keyed the same way, so unchanged programs need not be
// recompiled.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/sable-lang/sable/vm"
)

// Store indexes compiled functions by content hash, optionally backed by
// a sqlite database for image persistence.
type Store struct {
	mu        sync.RWMutex
	functions map[[32]byte]*vm.Function
	db        *sql.DB
}

// New creates an in-memory store with no persistence.
func New() *Store {
	return &Store{functions: make(map[[32]byte]*vm.Function)}
}

// Open creates a store backed by a sqlite database at path, creating
// the schema if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (
		hash BLOB PRIMARY KEY,
		build_id TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	s := New()
	s.db = db
	return s, nil
}

// Close releases the database handle, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// HashFunction computes the content digest of a compiled function: its
// name, parameter count, instruction bytes, and constant fingerprints.
// The line table is excluded; reformatting that only moves code between
// lines does not change the digest.
func HashFunction(fn *vm.Function, symbols *vm.SymbolTable) [32]byte {
	h := sha256.New()
	h.Write([]byte(symbols.Name(fn.Name)))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(fn.Arity()))
	h.Write(buf[:])
	h.Write(fn.Body.Code)
	for _, constant := range fn.Body.Constants {
		hashValue(h.Write, constant, symbols)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

func hashValue(write func([]byte) (int, error), v vm.Value, symbols *vm.SymbolTable) {
	var buf [9]byte
	buf[0] = byte(v.Kind())
	switch v.Kind() {
	case vm.ValBool:
		if v.Bool() {
			buf[1] = 1
		}
		write(buf[:2])
	case vm.ValInt:
		binary.BigEndian.PutUint64(buf[1:], uint64(v.Int()))
		write(buf[:])
	case vm.ValFloat:
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(v.Float()))
		write(buf[:])
	case vm.ValObject:
		obj := v.Object()
		buf[1] = byte(obj.Kind)
		write(buf[:2])
		switch obj.Kind {
		case vm.ObjString:
			write([]byte(obj.Str))
		case vm.ObjFunction:
			sub := HashFunction(obj.Fn, symbols)
			write(sub[:])
		}
	default:
		write(buf[:1])
	}
}

// Index adds a compiled function to the in-memory index and returns its
// hash.
func (s *Store) Index(fn *vm.Function, symbols *vm.SymbolTable) [32]byte {
	h := HashFunction(fn, symbols)
	s.mu.Lock()
	s.functions[h] = fn
	s.mu.Unlock()
	return h
}

// Lookup returns the function for a hash, or nil.
func (s *Store) Lookup(h [32]byte) *vm.Function {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.functions[h]
}

// Len returns the number of indexed functions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.functions)
}

// PutImage persists serialized image bytes under a hash. Requires a
// database-backed store.
func (s *Store) PutImage(h [32]byte, buildID string, data []byte) error {
	if s.db == nil {
		return fmt.Errorf("store: not database-backed")
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO images (hash, build_id, data) VALUES (?, ?, ?)`,
		h[:], buildID, data)
	if err != nil {
		return fmt.Errorf("store: put image: %w", err)
	}
	return nil
}

// GetImage retrieves serialized image bytes by hash. Returns nil with no
// error when the hash is absent.
func (s *Store) GetImage(h [32]byte) ([]byte, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store: not database-backed")
	}
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM images WHERE hash = ?`, h[:]).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get image: %w", err)
	}
	return data, nil
}

// HashBytes digests arbitrary bytes, for keying whole images.
func HashBytes(data []byte) [32]byte {
	return sha256.Sum256(data)
}
