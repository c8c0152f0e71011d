package fs

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/mdsync/internal/ports"
)

// DefaultSettleDelay is how long the watcher waits after the last file event
// before reading the document. Editors often save in several steps.
const DefaultSettleDelay = 50 * time.Millisecond

// DocumentFile implements ports.DocumentSource with a local file.
// The parent directory is watched so saves that replace the file
// (write to temp, then rename) are seen.
type DocumentFile struct {
	path   string
	settle time.Duration
	logger ports.Logger

	mu   sync.Mutex
	last string
	seen bool
}

// NewDocumentFile creates a document source for path.
func NewDocumentFile(path string, settle time.Duration, logger ports.Logger) (*DocumentFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &DocumentFile{path: abs, settle: settle, logger: logger}, nil
}

// Path returns the absolute path of the document.
func (d *DocumentFile) Path() string {
	return d.path
}

// Read returns the file content. A missing file reads as empty.
func (d *DocumentFile) Read(ctx context.Context) (string, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			d.observe("")
			return "", nil
		}
		return "", err
	}
	content := string(data)
	d.observe(content)
	return content, nil
}

// Write replaces the file atomically. The resulting file event is not
// reported by Watch.
func (d *DocumentFile) Write(ctx context.Context, content string) error {
	d.observe(content)

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(d.path), "."+filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// observe records content as the last known value and reports whether it changed.
func (d *DocumentFile) observe(content string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen && content == d.last {
		return false
	}
	d.last = content
	d.seen = true
	return true
}

// Watch delivers the document content after external changes.
func (d *DocumentFile) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(d.path)); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan string, 1)
	go d.watchLoop(ctx, watcher, out)
	return out, nil
}

func (d *DocumentFile) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer watcher.Close()

	settle := time.NewTimer(d.settle)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != d.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			settle.Reset(d.settle)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("document watcher error", ports.Err(err))

		case <-settle.C:
			data, err := os.ReadFile(d.path)
			if err != nil {
				// Mid-rename saves briefly leave no file.
				if !os.IsNotExist(err) {
					d.logger.Warn("failed to read document", ports.String("path", d.path), ports.Err(err))
				}
				continue
			}
			content := string(data)
			if !d.observe(content) {
				continue
			}
			select {
			case out <- content:
			case <-ctx.Done():
				return
			}
		}
	}
}
