package model

// SessionState is the explicit state of one processing session as seen by
// the client. Button availability is derived from it, never the other way
// around.
type SessionState string

const (
	// SessionIdle means nothing has been uploaded yet
	SessionIdle SessionState = "Idle"

	// SessionUploaded means the server accepted a video and processing can start
	SessionUploaded SessionState = "Uploaded"

	// SessionProcessing means the push channel is open
	SessionProcessing SessionState = "Processing"

	// SessionStopped means the last session ended (stop, error or completion)
	SessionStopped SessionState = "Stopped"
)

// String returns the string representation of SessionState
func (s SessionState) String() string {
	return string(s)
}

// CanStart reports whether the process action is enabled
func (s SessionState) CanStart() bool {
	return s == SessionUploaded || s == SessionStopped
}

// CanStop reports whether the stop action is enabled
func (s SessionState) CanStop() bool {
	return s == SessionProcessing
}

// CanUpload reports whether a new upload may be sent
func (s SessionState) CanUpload() bool {
	return s != SessionProcessing
}

// JobStatus represents the status of a background media job (import or shrink)
type JobStatus string

const (
	// JobStatusPending means the job is queued but not started
	JobStatusPending JobStatus = "Pending"

	// JobStatusStarting means the job is in the process of starting
	JobStatusStarting JobStatus = "Starting"

	// JobStatusRunning means the job is making progress
	JobStatusRunning JobStatus = "Running"

	// JobStatusStopping means the job was asked to stop
	JobStatusStopping JobStatus = "Stopping"

	// JobStatusStopped means the job was stopped by user
	JobStatusStopped JobStatus = "Stopped"

	// JobStatusCompleted means the job finished successfully
	JobStatusCompleted JobStatus = "Completed"

	// JobStatusError means the job failed with an error
	JobStatusError JobStatus = "Error"
)

// String returns the string representation of JobStatus
func (js JobStatus) String() string {
	return string(js)
}

// IsActive returns true if the job is in an active state
func (js JobStatus) IsActive() bool {
	return js == JobStatusStarting || js == JobStatusRunning || js == JobStatusStopping
}

// IsFinished returns true if the job is in a finished state (completed, stopped, or error)
func (js JobStatus) IsFinished() bool {
	return js == JobStatusCompleted || js == JobStatusStopped || js == JobStatusError
}
