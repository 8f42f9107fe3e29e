package constants

// RunStatus is the canonical terminal state for rows in run history.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusOK      RunStatus = "OK"      // aggregate produced, verification ran
	RunStatusFailed  RunStatus = "FAILED"  // structural or extraction failure, no aggregate
	RunStatusAborted RunStatus = "ABORTED" // cooperative cancellation, no aggregate
)
