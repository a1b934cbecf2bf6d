package cli

import "fmt"

// Process exit codes.
const (
	ExitApprove = 0
	ExitBlock   = 1
	ExitFailure = 2
)

// ExitError carries a non-zero exit code that is not a failure of the tool
// itself, such as a BLOCK verdict. main maps it with errors.As.
type ExitError struct {
	Code   int
	Reason string
}

func (e *ExitError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func blockError(critical int) error {
	return &ExitError{Code: ExitBlock, Reason: fmt.Sprintf("verdict BLOCK: %d critical finding(s)", critical)}
}
