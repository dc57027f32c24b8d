// Package backup copies collections to and from a blobstore.Store.
//
// A snapshot uploads the five files of a quiescent collection, each
// compressed as an independent stream, plus a JSON manifest describing the
// backup. Uploads run in parallel and can be throttled with a
// resource.Controller. Restore reverses the process and refuses to
// overwrite an existing collection.
//
// Snapshots must be taken while the collection has no open writer; the
// files are read directly from disk.
package backup
