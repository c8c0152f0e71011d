// Package domain contains the core entities and value objects for mdsync.
//
// This package is the innermost layer of the application. It has no
// dependencies on infrastructure concerns (HTTP, file system, logging) and
// contains only document and upload rules.
//
// # Entities
//
//   - [Document]: The editable Markdown buffer owned by an edit session
//   - [Post]: The persisted remote representation of a document
//   - [UploadSession]: Resume state for one chunked upload
//   - [UploadFile]: A binary file handed to the uploader
//
// # Events
//
//   - [UploadProgress], [UploadSuccess], [UploadFailure]: upload lifecycle
//     notifications broadcast to observers
package domain
