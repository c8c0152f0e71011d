package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

const (
	tusVersion = "1.0.0"

	// ResumablePath is the tus endpoint below the project root.
	ResumablePath = "/storage/v1/upload/resumable"
)

// TusConfig configures a TusTransport.
type TusConfig struct {
	// Endpoint is the tus creation URL.
	Endpoint string
	APIKey   string

	// CacheControl is sent as object metadata, in seconds.
	CacheControl string

	// Upsert overwrites an existing object with the same name.
	Upsert bool
}

// TusTransport implements ports.UploadTransport with the tus 1.0.0
// resumable upload protocol.
type TusTransport struct {
	cfg    TusConfig
	creds  credentials
	client ports.HTTPClient
	logger ports.Logger
}

// NewTusTransport creates a tus transport.
func NewTusTransport(cfg TusConfig, tokens ports.TokenSource, client ports.HTTPClient, logger ports.Logger) *TusTransport {
	if cfg.CacheControl == "" {
		cfg.CacheControl = "3600"
	}
	return &TusTransport{
		cfg:    cfg,
		creds:  credentials{apiKey: cfg.APIKey, tokens: tokens},
		client: client,
		logger: logger,
	}
}

// encodeMetadata builds an Upload-Metadata header: comma separated
// "key base64(value)" pairs.
func encodeMetadata(meta map[string]string) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+" "+base64.StdEncoding.EncodeToString([]byte(meta[k])))
	}
	return strings.Join(pairs, ",")
}

func (t *TusTransport) newRequest(ctx context.Context, method, target string, body []byte) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Tus-Resumable", tusVersion)
	if err := t.creds.apply(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Create issues the creation POST and returns the absolute upload URL.
func (t *TusTransport) Create(ctx context.Context, s domain.UploadSession) (string, error) {
	req, err := t.newRequest(ctx, http.MethodPost, t.cfg.Endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Upload-Length", strconv.FormatInt(s.BytesTotal, 10))
	req.Header.Set("Upload-Metadata", encodeMetadata(map[string]string{
		"bucketName":   s.Bucket,
		"objectName":   s.ObjectName,
		"contentType":  s.ContentType,
		"cacheControl": t.cfg.CacheControl,
	}))
	if t.cfg.Upsert {
		req.Header.Set("x-upsert", "true")
	}

	resp, err := send(t.client, req, "create upload")
	if err != nil {
		return "", err
	}
	if !isSuccess(resp) {
		defer resp.Body.Close()
		return "", statusError("create upload", resp)
	}
	drain(resp)

	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("create upload: response has no Location header")
	}
	base, err := url.Parse(t.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse Location: %w", err)
	}
	uploadURL := base.ResolveReference(ref).String()

	t.logger.Debug("created upload",
		ports.Object(s.ObjectName),
		ports.String("upload_url", uploadURL),
	)
	return uploadURL, nil
}

// Offset issues a HEAD and returns Upload-Offset.
func (t *TusTransport) Offset(ctx context.Context, s domain.UploadSession) (int64, error) {
	req, err := t.newRequest(ctx, http.MethodHead, s.UploadURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := send(t.client, req, "query offset")
	if err != nil {
		return 0, err
	}
	defer drain(resp)
	if gone(resp) {
		return 0, domain.ErrUploadNotFound
	}
	if !isSuccess(resp) {
		return 0, statusError("query offset", resp)
	}
	return parseOffset(resp, "query offset")
}

// WriteChunk issues a PATCH with the chunk body.
func (t *TusTransport) WriteChunk(ctx context.Context, s domain.UploadSession, offset int64, chunk []byte) (int64, error) {
	if len(chunk) == 0 {
		return 0, domain.ErrEmptyChunk
	}
	req, err := t.newRequest(ctx, http.MethodPatch, s.UploadURL, chunk)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/offset+octet-stream")
	req.Header.Set("Upload-Offset", strconv.FormatInt(offset, 10))

	resp, err := send(t.client, req, "write chunk")
	if err != nil {
		return 0, err
	}
	defer drain(resp)
	if gone(resp) {
		return 0, domain.ErrUploadNotFound
	}
	if !isSuccess(resp) {
		return 0, statusError("write chunk", resp)
	}
	return parseOffset(resp, "write chunk")
}

// Finish is a no-op: a tus upload completes when its last byte is acknowledged.
func (t *TusTransport) Finish(ctx context.Context, s domain.UploadSession) error {
	return nil
}

// Abort terminates the upload (tus termination extension).
func (t *TusTransport) Abort(ctx context.Context, s domain.UploadSession) error {
	req, err := t.newRequest(ctx, http.MethodDelete, s.UploadURL, nil)
	if err != nil {
		return err
	}

	resp, err := send(t.client, req, "abort upload")
	if err != nil {
		return err
	}
	defer drain(resp)
	if gone(resp) {
		return domain.ErrUploadNotFound
	}
	if !isSuccess(resp) {
		return statusError("abort upload", resp)
	}
	return nil
}

func gone(resp *http.Response) bool {
	return resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone
}

func parseOffset(resp *http.Response, op string) (int64, error) {
	raw := resp.Header.Get("Upload-Offset")
	off, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || off < 0 {
		return 0, fmt.Errorf("%s: invalid Upload-Offset %q", op, raw)
	}
	return off, nil
}
