package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (MDSYNC_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("storage-root", os.Getenv("MDSYNC_STORAGE_ROOT"), &cfg.StorageRoot)
	s.setString("api-key", os.Getenv("MDSYNC_API_KEY"), &cfg.APIKey)
	s.setString("access-token", os.Getenv("MDSYNC_ACCESS_TOKEN"), &cfg.AccessToken)
	s.setString("post-id", os.Getenv("MDSYNC_POST_ID"), &cfg.PostID)
	s.setString("document", os.Getenv("MDSYNC_DOCUMENT"), &cfg.Document)
	s.setString("bucket", os.Getenv("MDSYNC_BUCKET"), &cfg.Bucket)
	s.setString("folder", os.Getenv("MDSYNC_FOLDER"), &cfg.Folder)
	s.setString("table", os.Getenv("MDSYNC_TABLE"), &cfg.Table)
	s.setString("share-base", os.Getenv("MDSYNC_SHARE_BASE"), &cfg.ShareBase)
	s.setString("state-dir", os.Getenv("MDSYNC_STATE_DIR"), &cfg.StateDir)
	s.setString("sentinel", os.Getenv("MDSYNC_SENTINEL"), &cfg.Sentinel)
	s.setString("upload-backend", os.Getenv("MDSYNC_UPLOAD_BACKEND"), &cfg.UploadBackend)
	s.setString("s3-region", os.Getenv("MDSYNC_S3_REGION"), &cfg.S3Region)
	s.setString("s3-endpoint", os.Getenv("MDSYNC_S3_ENDPOINT"), &cfg.S3Endpoint)
	s.setString("s3-access-key", os.Getenv("MDSYNC_S3_ACCESS_KEY"), &cfg.S3AccessKey)
	s.setString("s3-secret-key", os.Getenv("MDSYNC_S3_SECRET_KEY"), &cfg.S3SecretKey)
	s.setString("log-level", os.Getenv("MDSYNC_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("debounce", os.Getenv("MDSYNC_DEBOUNCE"), &cfg.Debounce); err != nil {
		return err
	}
	if err := s.setDuration("min-busy", os.Getenv("MDSYNC_MIN_BUSY"), &cfg.MinBusy); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("MDSYNC_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setIntFromString("chunk-size", os.Getenv("MDSYNC_CHUNK_SIZE"), &cfg.ChunkSize); err != nil {
		return err
	}

	s.setBoolFromString("preview-unsafe", os.Getenv("MDSYNC_PREVIEW_UNSAFE"), &cfg.PreviewUnsafe)

	return nil
}

// Apply applies the config file at path (if it exists), then the
// environment. Values of flags named in changed are left untouched.
func Apply(cfg *Config, path string, changed map[string]bool) error {
	if path != "" && FileExists(path) {
		fc, err := LoadFileConfig(path)
		if err != nil {
			return err
		}
		if err := ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	return ApplyEnvConfig(cfg, changed)
}

// Load is Apply followed by Validate.
func Load(cfg *Config, path string, changed map[string]bool) error {
	if err := Apply(cfg, path, changed); err != nil {
		return err
	}
	return cfg.Validate()
}
