package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bft-labs/mdsync/internal/domain"
)

const sessionsFileName = "uploads.json"

// UploadSessionFile implements ports.UploadSessionStore with a JSON file
// holding all unfinished uploads keyed by fingerprint.
type UploadSessionFile struct {
	dir string
	mu  sync.Mutex
}

// NewUploadSessionFile creates a store in dir.
func NewUploadSessionFile(dir string) *UploadSessionFile {
	return &UploadSessionFile{dir: dir}
}

// Path returns the full path to the sessions file.
func (r *UploadSessionFile) Path() string {
	return filepath.Join(r.dir, sessionsFileName)
}

// load reads all sessions. A missing file is an empty store.
func (r *UploadSessionFile) load() (map[string]domain.UploadSession, error) {
	sessions := make(map[string]domain.UploadSession)

	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return sessions, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.Path(), err)
	}
	return sessions, nil
}

// store writes all sessions atomically (temp file, then rename).
func (r *UploadSessionFile) store(sessions map[string]domain.UploadSession) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.Path())
}

// Find returns the session stored for fingerprint.
func (r *UploadSessionFile) Find(ctx context.Context, fingerprint string) (domain.UploadSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load()
	if err != nil {
		return domain.UploadSession{}, false, err
	}
	s, ok := sessions[fingerprint]
	return s, ok, nil
}

// Save stores or replaces the session.
func (r *UploadSessionFile) Save(ctx context.Context, session domain.UploadSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load()
	if err != nil {
		return err
	}
	sessions[session.Fingerprint] = session
	return r.store(sessions)
}

// Remove deletes the session for fingerprint.
func (r *UploadSessionFile) Remove(ctx context.Context, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := sessions[fingerprint]; !ok {
		return nil
	}
	delete(sessions, fingerprint)
	return r.store(sessions)
}
