// Package log turns application events into log entries.
package log

import (
	"time"

	"github.com/bft-labs/mdsync/internal/app"
	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

// EventLogger implements app.SaveEventEmitter, app.StateEmitter and
// app.UploadObserver by writing each event to a logger. It is the default
// sink when the CLI has no UI to drive.
type EventLogger struct {
	logger ports.Logger
}

// NewEventLogger creates an event sink writing to logger.
func NewEventLogger(logger ports.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

func (e *EventLogger) OnSaveStart(markdown string) {
	e.logger.Debug("saving post", ports.Bytes(len(markdown)))
}

func (e *EventLogger) OnSaveSuccess(post domain.Post, duration time.Duration) {
	e.logger.Info("post saved",
		ports.PostID(post.ID),
		ports.Bytes(len(post.Markdown)),
		ports.Duration("took", duration),
	)
}

func (e *EventLogger) OnSaveError(err error) {
	e.logger.Error("post save failed", ports.Err(err))
}

func (e *EventLogger) OnBusyChange(busy bool) {
	e.logger.Debug("autosave busy", ports.Bool("busy", busy))
}

func (e *EventLogger) OnStateChange(previous, current app.State, reason string) {
	fields := []ports.Field{
		ports.String("from", previous.String()),
		ports.String("to", current.String()),
	}
	if reason != "" {
		fields = append(fields, ports.String("reason", reason))
	}
	if current == app.StateFailed {
		e.logger.Warn("session state changed", fields...)
		return
	}
	e.logger.Info("session state changed", fields...)
}

func (e *EventLogger) OnUploadProgress(p domain.UploadProgress) {
	e.logger.Info("upload progress",
		ports.Object(p.ObjectName),
		ports.Int64("uploaded", p.BytesUploaded),
		ports.Int64("total", p.BytesTotal),
		ports.Float64("percent", p.Percentage),
	)
}

func (e *EventLogger) OnUploadSuccess(s domain.UploadSuccess) {
	e.logger.Info("upload complete", ports.Object(s.ObjectName), ports.String("url", s.URL))
}

func (e *EventLogger) OnUploadError(f domain.UploadFailure) {
	e.logger.Error("upload failed", ports.Object(f.ObjectName), ports.Err(f.Err))
}

var (
	_ app.SaveEventEmitter = (*EventLogger)(nil)
	_ app.StateEmitter     = (*EventLogger)(nil)
	_ app.UploadObserver   = (*EventLogger)(nil)
)
