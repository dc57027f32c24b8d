// Package fs abstracts the file system operations used by the storage
// layer so that tests can inject faults at precise points (short writes,
// failed fsyncs) without touching the real disk semantics.
package fs
