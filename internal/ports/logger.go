package ports

import (
	"time"

	"github.com/bft-labs/mdsync/pkg/log"
)

// Logger is the structured logger used by the application layer.
type Logger = log.Logger

// Field is a key-value pair attached to a log entry.
type Field = log.Field

// PostID tags an entry with the post being edited.
func PostID(id string) Field { return log.PostID(id) }

// Object tags an entry with the storage object name of an upload.
func Object(name string) Field { return log.Object(name) }

// Bytes records a document or payload size.
func Bytes(n int) Field { return log.Bytes(n) }

// String creates a string field.
func String(key, value string) Field { return log.String(key, value) }

// Int creates an int field.
func Int(key string, value int) Field { return log.Int(key, value) }

// Int64 creates an int64 field.
func Int64(key string, value int64) Field { return log.Int64(key, value) }

// Float64 creates a float64 field.
func Float64(key string, value float64) Field { return log.Float64(key, value) }

// Bool creates a bool field.
func Bool(key string, value bool) Field { return log.Bool(key, value) }

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field { return log.Duration(key, value) }

// Err creates an error field.
func Err(err error) Field { return log.Err(err) }
