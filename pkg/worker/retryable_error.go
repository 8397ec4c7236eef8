package worker

import "fmt"

// RetryableError marks a job failure as transient. The job is attempted
// again while it has attempts left.
type RetryableError struct {
	Cause error
}

func (re *RetryableError) Error() string {
	return fmt.Sprintf("retryable-error: %v", re.Cause)
}

func (re *RetryableError) Unwrap() error { return re.Cause }
