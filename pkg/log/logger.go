package log

import "time"

// Logger is the structured logger every mdsync component writes through.
// Messages are short lowercase phrases ("autosaved", "resuming upload");
// context goes into fields.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field is one key-value pair of a log entry.
type Field struct {
	Key   string
	Value any
}

// Keys shared by the autosave, session and upload logs, so one post or
// object can be followed across components.
const (
	KeyPostID = "post_id"
	KeyObject = "object"
	KeyBytes  = "bytes"
)

// PostID tags an entry with the post being edited.
func PostID(id string) Field {
	return Field{Key: KeyPostID, Value: id}
}

// Object tags an entry with the storage object name of an upload.
func Object(name string) Field {
	return Field{Key: KeyObject, Value: name}
}

// Bytes records a document or payload size.
func Bytes(n int) Field {
	return Field{Key: KeyBytes, Value: n}
}

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 is used for upload offsets, which exceed int on 32-bit targets.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field with key "error".
// A nil error renders as null.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}
