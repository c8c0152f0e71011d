package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

// UploaderConfig contains configuration for resumable uploads.
type UploaderConfig struct {
	// StorageRoot is the project root, e.g. https://<project>.supabase.co
	StorageRoot string

	// Endpoint identifies the upload destination for fingerprinting.
	Endpoint string

	Bucket string

	// Folder is an optional prefix for object names.
	Folder string

	ChunkSize int64

	// RetryDelays is the retry schedule for transient failures.
	RetryDelays []time.Duration
}

// Uploader uploads files in fixed-size chunks through a resumable transport.
// An interrupted upload of the same file to the same destination resumes
// from the last acknowledged byte.
type Uploader struct {
	cfg       UploaderConfig
	transport ports.UploadTransport
	sessions  ports.UploadSessionStore
	logger    ports.Logger
	events    *UploadEvents
	retry     *RetrySchedule
	newName   func() string
}

// NewUploader creates an uploader.
func NewUploader(cfg UploaderConfig, transport ports.UploadTransport, sessions ports.UploadSessionStore, logger ports.Logger) *Uploader {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = domain.DefaultChunkSize
	}
	if cfg.RetryDelays == nil {
		cfg.RetryDelays = DefaultRetryDelays
	}
	return &Uploader{
		cfg:       cfg,
		transport: transport,
		sessions:  sessions,
		logger:    logger,
		events:    NewUploadEvents(),
		retry:     NewRetrySchedule(cfg.RetryDelays, logger),
		newName:   randomObjectName,
	}
}

// Events returns the broadcaster for upload notifications.
func (u *Uploader) Events() *UploadEvents {
	return u.events
}

// PublicURL returns the stable public URL of an object.
func PublicURL(storageRoot, bucket, objectName string) string {
	return strings.TrimRight(storageRoot, "/") + "/storage/v1/object/public/" + bucket + "/" + objectName
}

func randomObjectName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Fingerprint identifies a (file, destination) pair.
func Fingerprint(file domain.UploadFile, endpoint, bucket, folder string) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "mdsync-v1\x00%s\x00%s\x00%s\x00%s\x00%d\x00", endpoint, bucket, folder, file.ContentType, file.Size)
	if _, err := io.Copy(h, io.NewSectionReader(file.Body, 0, file.Size)); err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Upload transfers file and returns its public URL.
// An empty file fails with domain.ErrEmptyFile before any network call.
func (u *Uploader) Upload(ctx context.Context, file domain.UploadFile) (string, error) {
	if file.Empty() {
		return "", domain.ErrEmptyFile
	}

	start := time.Now()
	sess, err := u.upload(ctx, file)
	if err != nil {
		u.logger.Error("upload failed",
			ports.String("file", file.Name),
			ports.Object(sess.ObjectName),
			ports.Int64("bytes_uploaded", sess.BytesUploaded),
			ports.Err(err),
		)
		u.events.publishError(domain.UploadFailure{ObjectName: sess.ObjectName, Err: err})
		return "", err
	}

	url := PublicURL(u.cfg.StorageRoot, sess.Bucket, sess.ObjectName)
	u.logger.Info("upload complete",
		ports.String("file", file.Name),
		ports.String("url", url),
		ports.Int64("bytes", sess.BytesTotal),
		ports.Duration("duration", time.Since(start)),
	)
	u.events.publishSuccess(domain.UploadSuccess{
		Message:    "Success",
		ObjectName: sess.ObjectName,
		URL:        url,
	})
	return url, nil
}

func (u *Uploader) upload(ctx context.Context, file domain.UploadFile) (domain.UploadSession, error) {
	fp, err := Fingerprint(file, u.cfg.Endpoint, u.cfg.Bucket, u.cfg.Folder)
	if err != nil {
		return domain.UploadSession{}, err
	}

	sess, err := u.prepare(ctx, file, fp)
	if err != nil {
		return sess, err
	}

	chunk := make([]byte, sess.ChunkSize)
	for sess.BytesUploaded < sess.BytesTotal {
		offset := sess.BytesUploaded
		n := sess.ChunkSize
		if remaining := sess.BytesTotal - offset; remaining < n {
			n = remaining
		}

		read, err := file.Body.ReadAt(chunk[:n], offset)
		if err != nil && !(errors.Is(err, io.EOF) && int64(read) == n) {
			return sess, fmt.Errorf("read chunk at %d: %w", offset, err)
		}
		if read == 0 {
			return sess, domain.ErrEmptyChunk
		}

		next, err := u.writeChunk(ctx, sess, offset, chunk[:read])
		if err != nil {
			return sess, err
		}
		if next <= offset {
			return sess, fmt.Errorf("write chunk at %d: server offset %d did not advance: %w", offset, next, domain.ErrOffsetMismatch)
		}

		sess.Acknowledge(next)
		if err := u.sessions.Save(ctx, sess); err != nil {
			u.logger.Warn("failed to save upload session", ports.Err(err))
		}

		progress := sess.Progress()
		progress.ObjectName = sess.ObjectName
		u.logger.Debug("chunk acknowledged",
			ports.Object(sess.ObjectName),
			ports.Int64("bytes_uploaded", progress.BytesUploaded),
			ports.Int64("bytes_total", progress.BytesTotal),
		)
		u.events.publishProgress(progress)
	}

	if err := u.retry.Do(ctx, "finish upload", func(ctx context.Context) error {
		return u.transport.Finish(ctx, sess)
	}); err != nil {
		return sess, err
	}

	// A finished transfer must not be resumed by the next upload of the same file.
	if err := u.sessions.Remove(ctx, sess.Fingerprint); err != nil {
		u.logger.Warn("failed to remove upload session", ports.Err(err))
	}
	return sess, nil
}

// prepare resumes a stored session for fp or creates a new one.
func (u *Uploader) prepare(ctx context.Context, file domain.UploadFile, fp string) (domain.UploadSession, error) {
	prev, found, err := u.sessions.Find(ctx, fp)
	if err != nil {
		u.logger.Warn("failed to load upload session, starting fresh", ports.Err(err))
		found = false
	}

	if found && prev.BytesTotal == file.Size && prev.UploadURL != "" && prev.ChunkSize > 0 {
		offset, err := retryValue(ctx, u.retry, "query upload offset", func(ctx context.Context) (int64, error) {
			return u.transport.Offset(ctx, prev)
		})
		switch {
		case err == nil && offset < prev.BytesUploaded:
			// bytes_uploaded never decreases within one session.
			u.logger.Warn("server holds fewer bytes than recorded, starting fresh",
				ports.Object(prev.ObjectName),
				ports.Int64("recorded", prev.BytesUploaded),
				ports.Int64("server", offset),
			)
			if err := u.sessions.Remove(ctx, fp); err != nil {
				u.logger.Warn("failed to remove stale upload session", ports.Err(err))
			}
		case err == nil:
			if offset > prev.BytesTotal {
				offset = prev.BytesTotal
			}
			prev.BytesUploaded = offset
			u.logger.Info("resuming upload",
				ports.Object(prev.ObjectName),
				ports.Int64("offset", offset),
				ports.Int64("bytes_total", prev.BytesTotal),
			)
			return prev, nil
		case errors.Is(err, domain.ErrUploadNotFound):
			u.logger.Info("previous upload expired, starting fresh", ports.Object(prev.ObjectName))
			if err := u.sessions.Remove(ctx, fp); err != nil {
				u.logger.Warn("failed to remove stale upload session", ports.Err(err))
			}
		default:
			return prev, err
		}
	}

	objectName := u.newName()
	if u.cfg.Folder != "" {
		objectName = strings.Trim(u.cfg.Folder, "/") + "/" + objectName
	}
	now := time.Now()
	sess := domain.UploadSession{
		Fingerprint: fp,
		ObjectName:  objectName,
		Bucket:      u.cfg.Bucket,
		ContentType: file.ContentType,
		ChunkSize:   u.cfg.ChunkSize,
		BytesTotal:  file.Size,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	handle, err := retryValue(ctx, u.retry, "create upload", func(ctx context.Context) (string, error) {
		return u.transport.Create(ctx, sess)
	})
	if err != nil {
		return sess, err
	}
	sess.UploadURL = handle

	if err := u.sessions.Save(ctx, sess); err != nil {
		u.logger.Warn("failed to save upload session", ports.Err(err))
	}
	return sess, nil
}

// writeChunk sends one chunk with retries. Before a retry the server offset
// is re-read so bytes the server already stored are not sent twice.
func (u *Uploader) writeChunk(ctx context.Context, sess domain.UploadSession, offset int64, chunk []byte) (int64, error) {
	end := offset + int64(len(chunk))
	retrying := false

	return retryValue(ctx, u.retry, "write chunk", func(ctx context.Context) (int64, error) {
		if !retrying {
			retrying = true
			return u.transport.WriteChunk(ctx, sess, offset, chunk)
		}

		server, err := u.transport.Offset(ctx, sess)
		if err != nil {
			return 0, err
		}
		switch {
		case server >= end:
			return server, nil
		case server < offset:
			return 0, fmt.Errorf("server offset %d, acknowledged %d: %w", server, offset, domain.ErrOffsetMismatch)
		default:
			return u.transport.WriteChunk(ctx, sess, server, chunk[server-offset:])
		}
	})
}

// Abandon discards any unfinished upload of file: the server-side upload is
// aborted when possible and the local record removed.
func (u *Uploader) Abandon(ctx context.Context, file domain.UploadFile) error {
	if file.Empty() {
		return domain.ErrEmptyFile
	}
	fp, err := Fingerprint(file, u.cfg.Endpoint, u.cfg.Bucket, u.cfg.Folder)
	if err != nil {
		return err
	}
	sess, found, err := u.sessions.Find(ctx, fp)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if sess.UploadURL != "" {
		if err := u.transport.Abort(ctx, sess); err != nil && !errors.Is(err, domain.ErrUploadNotFound) {
			return fmt.Errorf("abort upload: %w", err)
		}
	}
	u.logger.Info("abandoned upload", ports.Object(sess.ObjectName))
	return u.sessions.Remove(ctx, fp)
}
