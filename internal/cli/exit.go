package cli

import (
	"errors"
	"fmt"
)

// ExitError carries an intended process exit code: 2 for usage mistakes,
// 1 for a check that ran and failed (verify, verify-sig).
type ExitError struct {
	Code   int
	Silent bool   // already reported; main prints nothing more
	Msg    string // user-facing
}

func (e *ExitError) Error() string {
	return e.Msg
}

func usageErrorf(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Msg: fmt.Sprintf(format, args...)}
}

// checkFailed reports a negative verification result that has already been
// printed.
func checkFailed(msg string) *ExitError {
	return &ExitError{Code: 1, Silent: true, Msg: msg}
}

// ExitCode extracts the exit code from err. ok is false for ordinary errors,
// which main reports with exit code 1.
func ExitCode(err error) (code int, silent bool, ok bool) {
	var ee *ExitError
	if !errors.As(err, &ee) {
		return 0, false, false
	}
	return ee.Code, ee.Silent, true
}
