package fs

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/bft-labs/mdsync/internal/domain"
)

// OpenUploadFile opens path for a chunked upload. The caller closes the
// returned file once the upload is done.
func OpenUploadFile(path string) (domain.UploadFile, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.UploadFile{}, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return domain.UploadFile{}, nil, err
	}
	if info.IsDir() {
		f.Close()
		return domain.UploadFile{}, nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}

	ct, err := contentType(f, path)
	if err != nil {
		f.Close()
		return domain.UploadFile{}, nil, err
	}

	return domain.UploadFile{
		Name:        filepath.Base(path),
		ContentType: ct,
		Size:        info.Size(),
		Body:        f,
	}, f, nil
}

// contentType prefers the extension and falls back to sniffing the first 512 bytes.
func contentType(r io.ReaderAt, path string) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct, nil
	}
	head := make([]byte, 512)
	n, err := r.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}
