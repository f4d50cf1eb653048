package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

const (
	versionFile  = "version"
	counterFile  = "counter"
	recordSuffix = ".json.zst"

	dirPerm  = 0700
	filePerm = 0600
)

// FileStore keeps each creation as a zstd-compressed JSON file in dir.
// It is safe for concurrent use within one process.
type FileStore struct {
	dir string

	mu   sync.Mutex
	open bool
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

var _ CreationStore = (*FileStore)(nil)

// NewFileStore returns a store rooted at dir. Nothing is touched until Open.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the store directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Open creates the directory and schema version file on first use and
// verifies the version afterwards.
func (s *FileStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return nil
	}

	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := s.checkVersion(); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	s.enc, s.dec, s.open = enc, dec, true

	log.Debug().Str("dir", s.dir).Int("schema_version", SchemaVersion).Msg("Creation store opened")
	return nil
}

func (s *FileStore) checkVersion() error {
	path := filepath.Join(s.dir, versionFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("dir", s.dir).Msg("Initializing creation store")
		return writeFileAtomic(path, []byte(strconv.Itoa(SchemaVersion)))
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || v != SchemaVersion {
		return fmt.Errorf("unsupported store schema version %q (want %d)", strings.TrimSpace(string(data)), SchemaVersion)
	}
	return nil
}

// Add assigns the next id and writes the record.
func (s *FileStore) Add(ctx context.Context, c NewCreation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, ErrNotOpen
	}

	id, err := s.nextID()
	if err != nil {
		return 0, err
	}
	creation := newCreation(id, c)

	raw, err := json.Marshal(creation)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal creation: %w", err)
	}
	if err := writeFileAtomic(s.recordPath(id), s.enc.EncodeAll(raw, nil)); err != nil {
		return 0, fmt.Errorf("failed to write creation %d: %w", id, err)
	}

	log.Debug().Int64("id", id).Int("raw_bytes", len(raw)).Msg("Creation saved")
	return id, nil
}

// nextID bumps the counter file. The counter never goes below the highest
// id on disk, so ids stay unique even if the counter file is lost.
func (s *FileStore) nextID() (int64, error) {
	var last int64
	data, err := os.ReadFile(filepath.Join(s.dir, counterFile))
	switch {
	case err == nil:
		last, err = strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("corrupt id counter: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return 0, fmt.Errorf("failed to read id counter: %w", err)
	}

	ids, err := s.recordIDs()
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		last = max(last, id)
	}

	next := last + 1
	if err := writeFileAtomic(filepath.Join(s.dir, counterFile), []byte(strconv.FormatInt(next, 10))); err != nil {
		return 0, fmt.Errorf("failed to update id counter: %w", err)
	}
	return next, nil
}

// List returns all creations, newest first. Unreadable records are skipped.
func (s *FileStore) List(ctx context.Context) ([]Creation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, ErrNotOpen
	}

	ids, err := s.recordIDs()
	if err != nil {
		return nil, err
	}

	creations := make([]Creation, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := s.readRecord(id)
		if err != nil {
			log.Warn().Err(err).Int64("id", id).Msg("Skipping unreadable creation")
			continue
		}
		creations = append(creations, c)
	}
	sortNewestFirst(creations)
	return creations, nil
}

func (s *FileStore) readRecord(id int64) (Creation, error) {
	var c Creation
	compressed, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		return c, err
	}
	raw, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return c, fmt.Errorf("decompress: %w", err)
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("unmarshal: %w", err)
	}
	return c, nil
}

// Delete removes the record for id.
func (s *FileStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrNotOpen
	}
	if err := os.Remove(s.recordPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete creation %d: %w", id, err)
	}
	log.Debug().Int64("id", id).Msg("Creation deleted")
	return nil
}

// Close releases the codecs. The store may be opened again.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil
	}
	err := s.enc.Close()
	s.dec.Close()
	s.enc, s.dec, s.open = nil, nil, false
	return err
}

func (s *FileStore) recordPath(id int64) string {
	return filepath.Join(s.dir, strconv.FormatInt(id, 10)+recordSuffix)
}

func (s *FileStore) recordIDs() ([]int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list store directory: %w", err)
	}
	var ids []int64
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, recordSuffix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, recordSuffix), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
