package filestore

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// Artifact names within a user directory.
const (
	VectorsFile = "vectors.idx"
	ChunksFile  = "chunks.bin"
	LedgerFile  = "metadata.json"
	SourcesDir  = "files"
)

// TimestampLayout is the ledger's upload time format.
const TimestampLayout = "2006-01-02 15:04:05"

const chunksVersion = 1

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{0,127}$`)

// Store implements driven.IndexStore on a directory tree.
type Store struct {
	root string
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{root: dir}, nil
}

// Root returns the data directory.
func (s *Store) Root() string {
	return s.root
}

// ledgerRecord is the on-disk form of a ledger entry.
type ledgerRecord struct {
	File       string `json:"file"`
	Chunks     int    `json:"chunks"`
	UploadedAt string `json:"uploaded_at"`
}

// chunkFile is the gob envelope of chunks.bin.
type chunkFile struct {
	Version int
	Chunks  []domain.Chunk
}

// ValidateUserID reports whether id is safe to use as a directory name.
func ValidateUserID(id string) error {
	if !userIDPattern.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("user id %q: %w", id, domain.ErrInvalidInput)
	}
	return nil
}

// ValidateFilename reports whether name is a single, safe path element.
func ValidateFilename(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\\\x00") || filepath.Base(name) != name {
		return fmt.Errorf("filename %q: %w", name, domain.ErrInvalidInput)
	}
	return nil
}

func (s *Store) userDir(userID string) (string, error) {
	if err := ValidateUserID(userID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, userID), nil
}

func (s *Store) artifact(userID, name string) (string, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (s *Store) sourcePath(userID, filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	dir, err := s.userDir(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SourcesDir, filename), nil
}

// LoadVectors returns the encoded vector index.
func (s *Store) LoadVectors(_ context.Context, userID string) ([]byte, error) {
	path, err := s.artifact(userID, VectorsFile)
	if err != nil {
		return nil, err
	}
	return readFile(path)
}

// SaveVectors replaces the encoded vector index.
func (s *Store) SaveVectors(_ context.Context, userID string, data []byte) error {
	path, err := s.artifact(userID, VectorsFile)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// LoadChunks returns the ordered chunk list.
// Undecodable data wraps domain.ErrIndexCorrupt.
func (s *Store) LoadChunks(_ context.Context, userID string) ([]domain.Chunk, error) {
	path, err := s.artifact(userID, ChunksFile)
	if err != nil {
		return nil, err
	}
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	var cf chunkFile
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&cf); err != nil {
		return nil, fmt.Errorf("decode chunks: %v: %w", err, domain.ErrIndexCorrupt)
	}
	if cf.Version != chunksVersion {
		return nil, fmt.Errorf("chunks version %d: %w", cf.Version, domain.ErrIndexCorrupt)
	}
	return cf.Chunks, nil
}

// SaveChunks replaces the ordered chunk list.
func (s *Store) SaveChunks(_ context.Context, userID string, chunks []domain.Chunk) error {
	path, err := s.artifact(userID, ChunksFile)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(chunkFile{Version: chunksVersion, Chunks: chunks}); err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	return writeAtomic(path, buf.Bytes())
}

// LoadLedger returns the ledger. A missing ledger is an empty ledger.
func (s *Store) LoadLedger(_ context.Context, userID string) (domain.Ledger, error) {
	path, err := s.artifact(userID, LedgerFile)
	if err != nil {
		return nil, err
	}
	data, err := readFile(path)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Ledger{}, nil
	}
	if err != nil {
		return nil, err
	}

	var records []ledgerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse ledger: %v: %w", err, domain.ErrIndexCorrupt)
	}
	ledger := make(domain.Ledger, 0, len(records))
	for _, r := range records {
		ts, err := time.ParseInLocation(TimestampLayout, r.UploadedAt, time.Local)
		if err != nil {
			ts = time.Time{}
		}
		ledger = append(ledger, domain.LedgerEntry{
			Filename:   r.File,
			ChunkCount: r.Chunks,
			UploadedAt: ts,
		})
	}
	return ledger, nil
}

// SaveLedger replaces the ledger.
func (s *Store) SaveLedger(_ context.Context, userID string, ledger domain.Ledger) error {
	path, err := s.artifact(userID, LedgerFile)
	if err != nil {
		return err
	}
	records := make([]ledgerRecord, len(ledger))
	for i, e := range ledger {
		records[i] = ledgerRecord{
			File:       e.Filename,
			Chunks:     e.ChunkCount,
			UploadedAt: e.UploadedAt.Local().Format(TimestampLayout),
		}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

// ClearIndex deletes the vector and chunk artifacts.
func (s *Store) ClearIndex(_ context.Context, userID string) error {
	for _, name := range []string{VectorsFile, ChunksFile} {
		path, err := s.artifact(userID, name)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

// SaveSource stores an uploaded file.
func (s *Store) SaveSource(_ context.Context, userID, filename string, r io.Reader) error {
	path, err := s.sourcePath(userID, filename)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	return writeAtomic(path, data)
}

// ReadSource returns the bytes of an uploaded file.
func (s *Store) ReadSource(_ context.Context, userID, filename string) ([]byte, error) {
	path, err := s.sourcePath(userID, filename)
	if err != nil {
		return nil, err
	}
	return readFile(path)
}

// RemoveSource deletes an uploaded file. Missing files are not an error.
func (s *Store) RemoveSource(_ context.Context, userID, filename string) error {
	path, err := s.sourcePath(userID, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove source: %w", err)
	}
	return nil
}

// ListSources returns the names of the user's uploaded files, sorted.
// Interrupted writes are not listed.
func (s *Store) ListSources(_ context.Context, userID string) ([]string, error) {
	dir, err := s.userDir(userID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(dir, SourcesDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || (strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Users lists user directories in sorted order.
func (s *Store) Users(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var users []string
	for _, e := range entries {
		if e.IsDir() && ValidateUserID(e.Name()) == nil {
			users = append(users, e.Name())
		}
	}
	sort.Strings(users)
	return users, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// writeAtomic writes data to a temporary sibling file and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // sync error takes precedence
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
