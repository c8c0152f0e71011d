// Package s3 implements resumable uploads with S3 multipart uploads.
//
// The upload handle stored in a session is the multipart UploadId; the
// acknowledged offset is the total size of the contiguous parts the bucket
// already holds.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

// Client is the subset of *s3.Client used for multipart uploads.
type Client interface {
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	ListParts(ctx context.Context, in *s3.ListPartsInput, optFns ...func(*s3.Options)) (*s3.ListPartsOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// ClientConfig configures the S3 client.
type ClientConfig struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewClient builds an S3 client for an S3-compatible endpoint with
// path-style addressing. Without static keys the default credential chain
// is used.
func NewClient(ctx context.Context, cfg ClientConfig) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// MultipartTransport implements ports.UploadTransport on S3 multipart uploads.
// Every part except the last must be exactly the session chunk size.
type MultipartTransport struct {
	client Client
	logger ports.Logger
}

// NewMultipartTransport creates a transport using client.
func NewMultipartTransport(client Client, logger ports.Logger) *MultipartTransport {
	return &MultipartTransport{client: client, logger: logger}
}

// Create starts a multipart upload and returns its UploadId.
func (t *MultipartTransport) Create(ctx context.Context, s domain.UploadSession) (string, error) {
	out, err := t.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.ObjectName),
		ContentType: aws.String(s.ContentType),
	})
	if err != nil {
		return "", mapError("create upload", err)
	}
	id := aws.ToString(out.UploadId)
	if id == "" {
		return "", fmt.Errorf("create upload: empty upload id")
	}
	t.logger.Debug("created multipart upload", ports.Object(s.ObjectName))
	return id, nil
}

// parts lists every uploaded part, ordered by part number.
func (t *MultipartTransport) parts(ctx context.Context, s domain.UploadSession) ([]types.Part, error) {
	var parts []types.Part
	p := s3.NewListPartsPaginator(t.client, &s3.ListPartsInput{
		Bucket:   aws.String(s.Bucket),
		Key:      aws.String(s.ObjectName),
		UploadId: aws.String(s.UploadURL),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, mapError("list parts", err)
		}
		parts = append(parts, page.Parts...)
	}
	sort.Slice(parts, func(i, j int) bool {
		return aws.ToInt32(parts[i].PartNumber) < aws.ToInt32(parts[j].PartNumber)
	})
	return parts, nil
}

// contiguous returns the leading parts numbered 1, 2, ... without gaps.
func contiguous(parts []types.Part) []types.Part {
	for i, p := range parts {
		if aws.ToInt32(p.PartNumber) != int32(i+1) {
			return parts[:i]
		}
	}
	return parts
}

// Offset returns the size of the contiguous uploaded prefix.
func (t *MultipartTransport) Offset(ctx context.Context, s domain.UploadSession) (int64, error) {
	parts, err := t.parts(ctx, s)
	if err != nil {
		return 0, err
	}
	var off int64
	for _, p := range contiguous(parts) {
		off += aws.ToInt64(p.Size)
	}
	return off, nil
}

// WriteChunk uploads chunk as the part starting at offset.
func (t *MultipartTransport) WriteChunk(ctx context.Context, s domain.UploadSession, offset int64, chunk []byte) (int64, error) {
	if len(chunk) == 0 {
		return 0, domain.ErrEmptyChunk
	}
	if s.ChunkSize <= 0 || offset%s.ChunkSize != 0 {
		return 0, fmt.Errorf("write chunk: offset %d is not a part boundary for chunk size %d: %w",
			offset, s.ChunkSize, domain.ErrOffsetMismatch)
	}
	part := int32(offset/s.ChunkSize) + 1

	_, err := t.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(s.ObjectName),
		UploadId:      aws.String(s.UploadURL),
		PartNumber:    aws.Int32(part),
		Body:          bytes.NewReader(chunk),
		ContentLength: aws.Int64(int64(len(chunk))),
	})
	if err != nil {
		return 0, mapError("write chunk", err)
	}
	return offset + int64(len(chunk)), nil
}

// Finish completes the multipart upload with the parts the bucket holds.
func (t *MultipartTransport) Finish(ctx context.Context, s domain.UploadSession) error {
	parts, err := t.parts(ctx, s)
	if err != nil {
		return err
	}
	parts = contiguous(parts)

	completed := make([]types.CompletedPart, 0, len(parts))
	var size int64
	for _, p := range parts {
		completed = append(completed, types.CompletedPart{
			ETag:       p.ETag,
			PartNumber: p.PartNumber,
		})
		size += aws.ToInt64(p.Size)
	}
	if size != s.BytesTotal {
		return fmt.Errorf("finish upload: parts hold %d of %d bytes: %w", size, s.BytesTotal, domain.ErrOffsetMismatch)
	}

	_, err = t.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.Bucket),
		Key:             aws.String(s.ObjectName),
		UploadId:        aws.String(s.UploadURL),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return mapError("finish upload", err)
	}
	return nil
}

// Abort discards the multipart upload and its parts.
func (t *MultipartTransport) Abort(ctx context.Context, s domain.UploadSession) error {
	_, err := t.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.Bucket),
		Key:      aws.String(s.ObjectName),
		UploadId: aws.String(s.UploadURL),
	})
	if err != nil {
		return mapError("abort upload", err)
	}
	return nil
}

// mapError translates SDK errors: an unknown upload becomes
// domain.ErrUploadNotFound and HTTP failures become *domain.StatusError so
// they are classified like the tus transport's.
func mapError(op string, err error) error {
	var noUpload *types.NoSuchUpload
	if errors.As(err, &noUpload) {
		return fmt.Errorf("%s: %w", op, domain.ErrUploadNotFound)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchUpload" {
		return fmt.Errorf("%s: %w", op, domain.ErrUploadNotFound)
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		body := err.Error()
		if apiErr != nil {
			body = apiErr.ErrorMessage()
		}
		return &domain.StatusError{Op: op, Code: respErr.HTTPStatusCode(), Body: body}
	}
	return fmt.Errorf("%s: %w", op, err)
}
