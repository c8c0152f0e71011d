package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies env vars",
			envVars: map[string]string{
				"MDSYNC_STORAGE_ROOT":   "https://env.example.co",
				"MDSYNC_POST_ID":        "env-post",
				"MDSYNC_MIN_BUSY":       "2s",
				"MDSYNC_CHUNK_SIZE":     "1048576",
				"MDSYNC_PREVIEW_UNSAFE": "1",
				"MDSYNC_S3_REGION":      "us-east-1",
			},
			changed: map[string]bool{},
			expected: Config{
				StorageRoot:   "https://env.example.co",
				PostID:        "env-post",
				MinBusy:       2 * time.Second,
				ChunkSize:     1 << 20,
				PreviewUnsafe: true,
				S3Region:      "us-east-1",
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"MDSYNC_POST_ID": "env-post",
				"MDSYNC_BUCKET":  "env-bucket",
			},
			changed:  map[string]bool{"post-id": true},
			initial:  Config{PostID: "flag-post"},
			expected: Config{PostID: "flag-post", Bucket: "env-bucket"},
		},
		{
			name:     "bool false",
			envVars:  map[string]string{"MDSYNC_PREVIEW_UNSAFE": "false"},
			changed:  map[string]bool{},
			initial:  Config{PreviewUnsafe: true},
			expected: Config{PreviewUnsafe: false},
		},
		{
			name:    "invalid duration",
			envVars: map[string]string{"MDSYNC_DEBOUNCE": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "invalid size",
			envVars: map[string]string{"MDSYNC_CHUNK_SIZE": "lots"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
storage_root = "https://file.example.co"
post_id = "file-post"
bucket = "file-bucket"
table = "file-table"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MDSYNC_BUCKET", "env-bucket")
	t.Setenv("MDSYNC_POST_ID", "env-post")

	cfg := DefaultConfig()
	cfg.PostID = "flag-post"
	if err := Load(&cfg, path, map[string]bool{"post-id": true}); err != nil {
		t.Fatalf("Load() = %v", err)
	}

	if cfg.PostID != "flag-post" {
		t.Errorf("PostID = %q, flag should win", cfg.PostID)
	}
	if cfg.Bucket != "env-bucket" {
		t.Errorf("Bucket = %q, env should beat file", cfg.Bucket)
	}
	if cfg.Table != "file-table" {
		t.Errorf("Table = %q, file should beat default", cfg.Table)
	}
	if cfg.StorageRoot != "https://file.example.co" {
		t.Errorf("StorageRoot = %q", cfg.StorageRoot)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("MDSYNC_STORAGE_ROOT", "https://env.example.co")
	cfg := DefaultConfig()
	if err := Load(&cfg, filepath.Join(t.TempDir(), "absent.toml"), map[string]bool{}); err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if cfg.Bucket != DefaultBucket {
		t.Errorf("Bucket = %q", cfg.Bucket)
	}
}
