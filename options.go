package mdsync

import (
	"github.com/bft-labs/mdsync/internal/app"
	"github.com/bft-labs/mdsync/internal/domain"
	"github.com/bft-labs/mdsync/internal/ports"
	"github.com/bft-labs/mdsync/pkg/log"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Event sinks. Handlers are called synchronously from mdsync goroutines and
// must not block.
type (
	SaveEvents     = app.SaveEventEmitter
	StateEvents    = app.StateEmitter
	UploadEvents   = app.UploadObserver
	UploadFuncs    = app.ObserverFuncs
	State          = app.State
	Post           = domain.Post
	UploadProgress = domain.UploadProgress
)

// Option configures optional behavior of Open and Upload.
type Option func(*options)

type options struct {
	httpClient ports.HTTPClient
	logger     ports.Logger
	saves      app.SaveEventEmitter
	states     app.StateEmitter
	uploads    app.UploadObserver
}

func applyOptions(opts []Option) options {
	o := options{logger: log.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithHTTPClient sets a custom HTTP client for the REST and upload APIs.
// If not provided, a client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger. If not provided, nothing is logged.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSaveEvents receives autosave activity.
func WithSaveEvents(h SaveEvents) Option {
	return func(o *options) {
		o.saves = h
	}
}

// WithStateEvents receives session state changes.
func WithStateEvents(h StateEvents) Option {
	return func(o *options) {
		o.states = h
	}
}

// WithUploadEvents receives upload notifications.
func WithUploadEvents(h UploadEvents) Option {
	return func(o *options) {
		o.uploads = h
	}
}
