// Package ports defines the interfaces that connect the application layer to
// infrastructure adapters.
//
// # Port Interfaces
//
//   - [PostStore]: Reads and writes the remote post record
//   - [UploadTransport]: Chunked resumable upload protocol (tus, S3 multipart)
//   - [UploadSessionStore]: Persists upload resume state by fingerprint
//   - [TokenSource]: Supplies the session-scoped bearer token
//   - [DocumentSource]: Local document storage and change notifications
//   - [Renderer]: Markdown to HTML conversion
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them.
package ports
