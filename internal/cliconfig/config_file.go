package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations and sizes to make TOML friendly.
type FileConfig struct {
	StorageRoot   string `toml:"storage_root"`
	APIKey        string `toml:"api_key"`
	AccessToken   string `toml:"access_token"`
	PostID        string `toml:"post_id"`
	Document      string `toml:"document"`
	Bucket        string `toml:"bucket"`
	Folder        string `toml:"folder"`
	Table         string `toml:"table"`
	ShareBase     string `toml:"share_base"`
	StateDir      string `toml:"state_dir"`
	Debounce      string `toml:"debounce"`
	MinBusy       string `toml:"min_busy"`
	Sentinel      string `toml:"sentinel"`
	ChunkSize     string `toml:"chunk_size"`
	HTTPTimeout   string `toml:"http_timeout"`
	UploadBackend string `toml:"upload_backend"`
	S3Region      string `toml:"s3_region"`
	S3Endpoint    string `toml:"s3_endpoint"`
	S3AccessKey   string `toml:"s3_access_key"`
	S3SecretKey   string `toml:"s3_secret_key"`
	PreviewUnsafe *bool  `toml:"preview_unsafe"`
	LogLevel      string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.mdsync/config.toml, or "" if the home
// directory is not accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".mdsync", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("storage-root", fc.StorageRoot, &cfg.StorageRoot)
	s.setString("api-key", fc.APIKey, &cfg.APIKey)
	s.setString("access-token", fc.AccessToken, &cfg.AccessToken)
	s.setString("post-id", fc.PostID, &cfg.PostID)
	s.setString("document", fc.Document, &cfg.Document)
	s.setString("bucket", fc.Bucket, &cfg.Bucket)
	s.setString("folder", fc.Folder, &cfg.Folder)
	s.setString("table", fc.Table, &cfg.Table)
	s.setString("share-base", fc.ShareBase, &cfg.ShareBase)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("sentinel", fc.Sentinel, &cfg.Sentinel)
	s.setString("upload-backend", fc.UploadBackend, &cfg.UploadBackend)
	s.setString("s3-region", fc.S3Region, &cfg.S3Region)
	s.setString("s3-endpoint", fc.S3Endpoint, &cfg.S3Endpoint)
	s.setString("s3-access-key", fc.S3AccessKey, &cfg.S3AccessKey)
	s.setString("s3-secret-key", fc.S3SecretKey, &cfg.S3SecretKey)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("debounce", fc.Debounce, &cfg.Debounce); err != nil {
		return err
	}
	if err := s.setDuration("min-busy", fc.MinBusy, &cfg.MinBusy); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setIntFromString("chunk-size", fc.ChunkSize, &cfg.ChunkSize); err != nil {
		return err
	}

	s.setBool("preview-unsafe", fc.PreviewUnsafe, &cfg.PreviewUnsafe)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
