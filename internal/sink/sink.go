// Package sink provides the persistence targets the collector writes
// normalized documents through: local filesystem, S3-compatible object
// storage, or nothing at all.
package sink

// Sink reads and writes JSON documents addressed by key. Write is a
// whole-document overwrite; read-merge-write is the caller's job.
type Sink interface {
	// Read returns the document for key. A missing document is reported as
	// ok=false with a nil error, never as an error.
	Read(key string) (data []byte, ok bool, err error)
	Write(key string, data []byte) error
	Name() string
}
