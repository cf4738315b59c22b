package query

// Status values reported by Result.Status.
const (
	StatusIdle    = "idle"
	StatusLoading = "loading"
	StatusError   = "error"
	StatusSuccess = "success"
)

// Result is the outcome of a read hook.
type Result[T any] struct {
	Data      *T
	Err       error
	IsLoading bool
	// Enabled is false when the read was skipped, e.g. a detail read with
	// an empty id.
	Enabled bool
}

// Status summarizes the result as idle, loading, error or success.
func (r Result[T]) Status() string {
	switch {
	case !r.Enabled:
		return StatusIdle
	case r.IsLoading:
		return StatusLoading
	case r.Err != nil:
		return StatusError
	default:
		return StatusSuccess
	}
}

// Loading returns an enabled result that has not resolved yet.
func Loading[T any]() Result[T] {
	return Result[T]{IsLoading: true, Enabled: true}
}
