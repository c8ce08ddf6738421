package embeddings

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/zeebo/xxh3"
)

// IndexFile names the fingerprint index inside a store directory
const IndexFile = "index.json"

// WriteEmbedding writes an embedding vector to a binary file.
// Format: little-endian float64 array.
func WriteEmbedding(path string, vec []float64) error {
	if err := ValidateEmbedding(vec); err != nil {
		return err
	}

	buf := make([]byte, 8*len(vec))
	for i, val := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(val))
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return lserr.NewFilesystemError("write", path, err)
	}
	return nil
}

// ReadEmbedding reads an embedding vector from a binary file
func ReadEmbedding(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lserr.NewFilesystemError("read", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("embedding file %s is empty", path)
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("invalid embedding file size: %d (not a multiple of 8)", len(data))
	}

	vec := make([]float64, len(data)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return vec, nil
}

// ValidateEmbedding checks if an embedding vector is valid
func ValidateEmbedding(vec []float64) error {
	if len(vec) == 0 {
		return fmt.Errorf("embedding vector is empty")
	}
	for i, val := range vec {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("embedding contains invalid value at index %d: %v", i, val)
		}
	}
	return nil
}

// Fingerprint identifies the text an embedding was computed from
func Fingerprint(text string) string {
	return strconv.FormatUint(xxh3.HashString(text), 16)
}

// Store keeps one embedding per snapshot in a directory, plus an index of
// the fingerprints of the texts they were computed from. A snapshot whose
// text changed (for example after a model or summary format change) is
// reported stale and re-embedded.
type Store struct {
	dir string

	mu    sync.Mutex
	index map[string]string
}

// OpenStore opens or creates the store in dir
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, lserr.NewFilesystemError("create", dir, err)
	}

	s := &Store{dir: dir, index: map[string]string{}}
	data, err := os.ReadFile(filepath.Join(dir, IndexFile))
	switch {
	case os.IsNotExist(err):
		return s, nil
	case err != nil:
		return nil, lserr.NewFilesystemError("read", filepath.Join(dir, IndexFile), err)
	}
	if err := json.Unmarshal(data, &s.index); err != nil {
		// a corrupt index only costs re-embedding
		s.index = map[string]string{}
	}
	return s, nil
}

// Dir returns the store directory
func (s *Store) Dir() string {
	return s.dir
}

// Fresh reports whether hash has an embedding computed from text
func (s *Store) Fresh(hash, text string) bool {
	s.mu.Lock()
	fp, ok := s.index[hash]
	s.mu.Unlock()
	if !ok || fp != Fingerprint(text) {
		return false
	}
	_, err := os.Stat(s.path(hash))
	return err == nil
}

// Put stores vec for hash and records the fingerprint of text
func (s *Store) Put(hash, text string, vec []float64) error {
	if err := WriteEmbedding(s.path(hash), vec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[hash] = Fingerprint(text)
	return s.saveIndex()
}

// Get returns the embedding stored for hash
func (s *Store) Get(hash string) ([]float64, error) {
	return ReadEmbedding(s.path(hash))
}

// Len returns the number of indexed snapshots
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func (s *Store) path(hash string) string {
	return filepath.Join(s.dir, hash+".bin")
}

func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, IndexFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return lserr.NewFilesystemError("write", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return lserr.NewFilesystemError("rename", path, err)
	}
	return nil
}
