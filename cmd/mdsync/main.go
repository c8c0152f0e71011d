package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/mdsync"
	eventlog "github.com/bft-labs/mdsync/internal/adapters/log"
	"github.com/bft-labs/mdsync/internal/cliconfig"
	"github.com/bft-labs/mdsync/pkg/log"
)

const longHelp = `
Edit a Markdown post as a local file. Every save is pushed to the remote
post after a short quiet period, and images are uploaded in resumable chunks.

Configuration is read from $HOME/.mdsync/config.toml, then MDSYNC_* environment
variables, then flags.`

var exampleUsage = strings.TrimSpace(`
  mdsync edit --post-id 42 --storage-root https://<project>.supabase.co
  mdsync upload diagram.png --folder posts
  mdsync preview 42.md > 42.html
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app carries the state shared by subcommands.
type app struct {
	cfg     cliconfig.Config
	cfgPath string
	logger  *log.ZerologAdapter
}

// load resolves the configuration. Call from RunE so flag values are parsed.
// Remote settings are only validated when validate is set.
func (a *app) load(cmd *cobra.Command, validate bool) error {
	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	apply := cliconfig.Apply
	if validate {
		apply = cliconfig.Load
	}
	if err := apply(&a.cfg, cfgFile, changed); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a.logger = log.NewZerologAdapter(log.WithLevel(a.cfg.LogLevel))
	a.logger.Debug("configuration", log.String("config", fmt.Sprintf("%+v", a.cfg.Redacted())))
	return nil
}

func main() {
	a := &app{cfg: cliconfig.DefaultConfig()}

	root := &cobra.Command{
		Use:           "mdsync",
		Short:         "Sync a local Markdown document with a remote post",
		Long:          strings.TrimSpace(longHelp),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bindFlags(root.PersistentFlags(), a)

	root.AddCommand(editCmd(a), uploadCmd(a), previewCmd(a))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mdsync:", err)
		os.Exit(1)
	}
}

func bindFlags(fs *pflag.FlagSet, a *app) {
	cfg := &a.cfg
	fs.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.mdsync/config.toml)")

	fs.StringVar(&cfg.StorageRoot, "storage-root", cfg.StorageRoot, "project base URL of the REST and storage APIs")
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "project API key")
	fs.StringVar(&cfg.AccessToken, "access-token", cfg.AccessToken, "user session token (JWT)")
	fs.StringVar(&cfg.PostID, "post-id", cfg.PostID, "id of the post to edit")
	fs.StringVar(&cfg.Document, "document", cfg.Document, "local document path (default: <post-id>.md)")

	fs.StringVar(&cfg.Bucket, "bucket", cfg.Bucket, "storage bucket for uploads")
	fs.StringVar(&cfg.Folder, "folder", cfg.Folder, "object name prefix for uploads")
	fs.StringVar(&cfg.Table, "table", cfg.Table, "REST table holding posts")
	fs.StringVar(&cfg.ShareBase, "share-base", cfg.ShareBase, "site root of share links")
	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for resumable upload state (default: $HOME/.mdsync)")

	fs.DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "quiet period before an edit is saved")
	fs.DurationVar(&cfg.MinBusy, "min-busy", cfg.MinBusy, "minimum time the saving indicator stays on")
	fs.StringVar(&cfg.Sentinel, "sentinel", cfg.Sentinel, "placeholder content that is never saved")
	fs.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "upload chunk size in bytes")
	fs.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")

	fs.StringVar(&cfg.UploadBackend, "upload-backend", cfg.UploadBackend, "upload backend: tus or s3")
	fs.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "S3-compatible endpoint URL")
	fs.StringVar(&cfg.S3AccessKey, "s3-access-key", cfg.S3AccessKey, "S3 access key")
	fs.StringVar(&cfg.S3SecretKey, "s3-secret-key", cfg.S3SecretKey, "S3 secret key")

	fs.BoolVar(&cfg.PreviewUnsafe, "preview-unsafe", cfg.PreviewUnsafe, "pass raw HTML through in previews")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
}

func editCmd(a *app) *cobra.Command {
	var image string
	var cursor int

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Open the post as a local file and autosave changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd, true); err != nil {
				return err
			}
			events := eventlog.NewEventLogger(a.logger)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			ed, err := mdsync.Open(ctx, a.cfg,
				mdsync.WithLogger(a.logger),
				mdsync.WithSaveEvents(events),
				mdsync.WithStateEvents(events),
				mdsync.WithUploadEvents(events),
			)
			if err != nil {
				return fmt.Errorf("open post: %w", err)
			}

			a.logger.Info("editing",
				log.String("document", ed.Path()),
				log.String("share_url", ed.ShareURL()),
			)

			if image != "" {
				url, err := ed.InsertImage(ctx, image, cursor)
				if err != nil {
					a.logger.Error("image insert failed", log.Err(err))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), url)
				}
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
			defer signal.Stop(sigCh)

			for sig := range sigCh {
				if sig == syscall.SIGHUP {
					if err := ed.Refresh(ctx); err != nil {
						a.logger.Warn("refresh failed", log.Err(err))
					}
					continue
				}
				a.logger.Info("received signal, stopping...", log.String("signal", sig.String()))
				break
			}

			ed.SaveNow()
			if err := ed.Close(); err != nil {
				return fmt.Errorf("close: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&image, "insert-image", "", "upload an image and insert it after opening")
	cmd.Flags().IntVar(&cursor, "cursor", 0, "character offset for --insert-image")
	return cmd
}

func uploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file and print its public URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd, true); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			url, err := mdsync.Upload(ctx, a.cfg, args[0],
				mdsync.WithLogger(a.logger),
				mdsync.WithUploadEvents(eventlog.NewEventLogger(a.logger)),
			)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func previewCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Render a Markdown document to HTML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Rendering needs no remote settings.
			if err := a.load(cmd, false); err != nil {
				return err
			}
			path := a.cfg.Document
			if len(args) == 1 {
				path = args[0]
			} else if path == "" && a.cfg.PostID != "" {
				path = a.cfg.PostID + ".md"
			}
			if path == "" {
				return fmt.Errorf("no document: pass a file or --document")
			}

			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			html, err := mdsync.Render(a.cfg, string(src))
			if err != nil {
				return err
			}
			if out == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), html)
				return err
			}
			return os.WriteFile(out, []byte(html), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write HTML to this file instead of stdout")
	return cmd
}
