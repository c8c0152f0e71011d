package cliconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/mdsync/internal/domain"
)

const (
	// DefaultBucket is the storage bucket images are uploaded to.
	DefaultBucket = "media"

	// DefaultTable is the REST table holding posts.
	DefaultTable = "posts"

	// DefaultShareBase is the site share links point at.
	DefaultShareBase = "https://www.quickmde.com"

	// DefaultChunkSize is the upload chunk size. The storage service
	// requires 6 MiB chunks for resumable uploads.
	DefaultChunkSize = 6 << 20

	BackendTus = "tus"
	BackendS3  = "s3"
)

// Config holds CLI configuration for mdsync.
type Config struct {
	// StorageRoot is the project base URL serving both the REST and the
	// storage APIs.
	StorageRoot string
	APIKey      string
	AccessToken string

	PostID   string
	Document string

	Bucket    string
	Folder    string
	Table     string
	ShareBase string
	StateDir  string

	Debounce    time.Duration
	MinBusy     time.Duration
	Sentinel    string
	ChunkSize   int
	HTTPTimeout time.Duration

	UploadBackend string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string

	PreviewUnsafe bool
	LogLevel      string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Bucket:        DefaultBucket,
		Table:         DefaultTable,
		ShareBase:     DefaultShareBase,
		StateDir:      "", // Derived during Validate
		Debounce:      time.Second,
		MinBusy:       time.Second,
		Sentinel:      domain.DefaultSentinel,
		ChunkSize:     DefaultChunkSize,
		HTTPTimeout:   30 * time.Second,
		UploadBackend: BackendTus,
		LogLevel:      "info",
	}
}

// DefaultStateDir returns ~/.mdsync, or .mdsync if the home directory is unknown.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".mdsync")
	}
	return ".mdsync"
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.StorageRoot == "" {
		return invalid("storage-root is required")
	}
	c.StorageRoot = strings.TrimRight(c.StorageRoot, "/")
	if err := checkURL("storage-root", c.StorageRoot); err != nil {
		return err
	}

	if c.ShareBase == "" {
		c.ShareBase = DefaultShareBase
	}
	c.ShareBase = strings.TrimRight(c.ShareBase, "/")
	if err := checkURL("share-base", c.ShareBase); err != nil {
		return err
	}

	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
	c.Folder = strings.Trim(c.Folder, "/")

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}
	if c.Document == "" && c.PostID != "" {
		c.Document = c.PostID + ".md"
	}

	if c.Debounce <= 0 {
		return invalid("debounce must be positive")
	}
	if c.MinBusy < 0 {
		return invalid("min-busy must not be negative")
	}
	if c.ChunkSize <= 0 {
		return invalid("chunk-size must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return invalid("timeout must be positive")
	}

	switch c.UploadBackend {
	case "":
		c.UploadBackend = BackendTus
	case BackendTus:
	case BackendS3:
		if c.S3Region == "" {
			return invalid("s3-region is required for the s3 upload backend")
		}
		if (c.S3AccessKey == "") != (c.S3SecretKey == "") {
			return invalid("s3-access-key and s3-secret-key must be set together")
		}
	default:
		return invalid("unknown upload-backend %q (want %s or %s)", c.UploadBackend, BackendTus, BackendS3)
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return invalid("log-level: %v", err)
	}

	return nil
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	mask := func(s *string) {
		if *s != "" {
			*s = "*****"
		}
	}
	mask(&c.APIKey)
	mask(&c.AccessToken)
	mask(&c.S3SecretKey)
	return c
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func checkURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses an environment value as an int.
// Sizes accept a KiB/MiB suffix.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := parseSize(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

func parseSize(v string) (int, error) {
	mult := 1
	switch {
	case strings.HasSuffix(v, "MiB"):
		mult, v = 1<<20, strings.TrimSuffix(v, "MiB")
	case strings.HasSuffix(v, "KiB"):
		mult, v = 1<<10, strings.TrimSuffix(v, "KiB")
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}
