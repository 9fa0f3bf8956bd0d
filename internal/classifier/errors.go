package classifier

import "fmt"

// ConnectivityFailure is returned for any failed call to the classification service:
// transport errors, non-success statuses and malformed responses alike.
type ConnectivityFailure struct {
	Reason string
	Err    error
}

func newConnectivityFailure(stage string, err error) *ConnectivityFailure {
	reason := err.Error()
	if stage != "" {
		reason = fmt.Sprintf("%s: %s", stage, reason)
	}
	return &ConnectivityFailure{Reason: reason, Err: err}
}

// Error implements the error interface
func (e *ConnectivityFailure) Error() string {
	return fmt.Sprintf("Error connecting to the server: %s. Please ensure the classification API is running.", e.Reason)
}

func (e *ConnectivityFailure) Unwrap() error {
	return e.Err
}
