// Package log provides the logging abstraction used by mdsync components.
//
// The Logger interface can be implemented on top of any logging library.
// A zerolog adapter and a discarding logger are provided.
//
// # Usage
//
//	logger := log.NewZerologAdapter(log.WithLevel("debug"))
//	logger.Info("autosave complete", log.PostID(id), log.Bytes(len(markdown)))
//
// Pass Discard when embedding mdsync quietly:
//
//	cfg.Logger = log.Discard
package log
