package constants

// JobStatus is the phase of an in-flight archive download.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSaving    JobStatus = "SAVING" // all records visited, archive being serialized
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

