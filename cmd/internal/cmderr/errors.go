package cmderr

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ExitErr specific error for ExitOnErr function that passes the exit code and error caused.
// Nil Cause makes the exit silent.
type ExitErr struct {
	Code  int
	Cause error
}

func (x ExitErr) Error() string {
	if x.Cause == nil {
		return fmt.Sprintf("exit code %d", x.Code)
	}
	return x.Cause.Error()
}

func (x ExitErr) Unwrap() error { return x.Cause }

// Code returns the exit code for err: the one carried by ExitErr, 1 for other
// errors and 0 for nil.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var e ExitErr
	if errors.As(err, &e) {
		return e.Code
	}
	return 1
}

// PrintErr writes err to w unless it is a silent ExitErr.
func PrintErr(w io.Writer, err error) {
	var e ExitErr
	if err == nil || errors.As(err, &e) && e.Cause == nil {
		return
	}
	fmt.Fprintln(w, "Error:", err)
}

// ExitOnErr writes error to os.Stderr and calls os.Exit with passed exit code or by default 1.
// Does nothing if err is nil.
func ExitOnErr(err error) {
	if err != nil {
		PrintErr(os.Stderr, err)
		os.Exit(Code(err))
	}
}
