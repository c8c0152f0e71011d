package log

import (
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/mdsync/internal/app"
	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
)

type entry struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type captureLogger struct {
	entries []entry
}

func (c *captureLogger) add(level, msg string, fields []ports.Field) {
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	c.entries = append(c.entries, entry{level, msg, m})
}

func (c *captureLogger) Debug(msg string, fields ...ports.Field) { c.add("debug", msg, fields) }
func (c *captureLogger) Info(msg string, fields ...ports.Field)  { c.add("info", msg, fields) }
func (c *captureLogger) Warn(msg string, fields ...ports.Field)  { c.add("warn", msg, fields) }
func (c *captureLogger) Error(msg string, fields ...ports.Field) { c.add("error", msg, fields) }

func (c *captureLogger) last(t *testing.T) entry {
	t.Helper()
	if len(c.entries) == 0 {
		t.Fatal("no log entries")
	}
	return c.entries[len(c.entries)-1]
}

func TestEventLogger_Save(t *testing.T) {
	logger := &captureLogger{}
	events := NewEventLogger(logger)

	events.OnSaveStart("# hi")
	if e := logger.last(t); e.level != "debug" || e.fields["bytes"] != 4 {
		t.Errorf("OnSaveStart logged %+v", e)
	}

	events.OnSaveSuccess(domain.Post{ID: "p1", Markdown: "# hi"}, 20*time.Millisecond)
	e := logger.last(t)
	if e.level != "info" || e.fields["post_id"] != "p1" || e.fields["took"] != 20*time.Millisecond {
		t.Errorf("OnSaveSuccess logged %+v", e)
	}

	boom := errors.New("boom")
	events.OnSaveError(boom)
	if e := logger.last(t); e.level != "error" || e.fields["error"] != boom {
		t.Errorf("OnSaveError logged %+v", e)
	}
}

func TestEventLogger_State(t *testing.T) {
	logger := &captureLogger{}
	events := NewEventLogger(logger)

	events.OnStateChange(app.StateClosed, app.StateOpening, "")
	e := logger.last(t)
	if e.level != "info" || e.fields["from"] != "Closed" || e.fields["to"] != "Opening" {
		t.Errorf("logged %+v", e)
	}
	if _, ok := e.fields["reason"]; ok {
		t.Error("empty reason logged")
	}

	events.OnStateChange(app.StateOpening, app.StateFailed, "load post")
	if e := logger.last(t); e.level != "warn" || e.fields["reason"] != "load post" {
		t.Errorf("logged %+v", e)
	}
}

func TestEventLogger_Upload(t *testing.T) {
	logger := &captureLogger{}
	events := NewEventLogger(logger)

	events.OnUploadProgress(domain.UploadProgress{ObjectName: "abc", BytesUploaded: 6, BytesTotal: 20, Percentage: 30})
	if e := logger.last(t); e.fields["percent"] != 30.0 || e.fields["total"] != int64(20) {
		t.Errorf("progress logged %+v", e)
	}

	events.OnUploadSuccess(domain.UploadSuccess{ObjectName: "abc", URL: "https://x/abc"})
	if e := logger.last(t); e.fields["url"] != "https://x/abc" {
		t.Errorf("success logged %+v", e)
	}

	events.OnUploadError(domain.UploadFailure{ObjectName: "abc", Err: domain.ErrUploadNotFound})
	if e := logger.last(t); e.level != "error" || e.fields["error"] != domain.ErrUploadNotFound {
		t.Errorf("failure logged %+v", e)
	}
}
