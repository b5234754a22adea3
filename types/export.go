package types

// ExportResult describes a log snapshot written to object storage.
type ExportResult struct {
	// Bucket is the object storage bucket the snapshot was written to.
	Bucket string `json:"bucket"`

	// Key is the object key of the snapshot.
	Key string `json:"key"`

	// Count is the number of log entries in the snapshot.
	Count int `json:"count"`
}
