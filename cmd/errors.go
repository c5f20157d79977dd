package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// Process exit codes used by snakewrap. A failed snakemake run exits with
// the child's own code instead.
const (
	ExitOK       = 0
	ExitFault    = 1
	ExitUsage    = 2
	ExitNotFound = 127
)

// ErrorKind classifies the failures the resolver and executor can report.
type ErrorKind int

const (
	InvalidOption ErrorKind = iota + 1
	NoWorkflowsAvailable
	UnknownWorkflow
	MissingScheduler
	InvalidFile
	MissingRequiredFile
	SubprocessFailed
	UnexpectedFault
)

var kindNames = map[ErrorKind]string{
	InvalidOption:        "InvalidOption",
	NoWorkflowsAvailable: "NoWorkflowsAvailable",
	UnknownWorkflow:      "UnknownWorkflow",
	MissingScheduler:     "MissingScheduler",
	InvalidFile:          "InvalidFile",
	MissingRequiredFile:  "MissingRequiredFile",
	SubprocessFailed:     "SubprocessFailed",
	UnexpectedFault:      "UnexpectedFault",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ErrHelpRequested is returned by a command that has nothing to do except
// show its own help text. It maps to exit code 0.
var ErrHelpRequested = errors.New("help requested")

// Error is the typed error returned by validation and execution.
type Error struct {
	Kind ErrorKind
	Flag string // offending flag, e.g. "-c/--configfile"; may be empty
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Flag != "" {
		msg = fmt.Sprintf("%s: %s", e.Flag, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, &cmd.Error{Kind: cmd.InvalidFile}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, flag, format string, a ...any) *Error {
	return &Error{Kind: kind, Flag: flag, Msg: fmt.Sprintf(format, a...)}
}

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, ErrHelpRequested) {
		return ExitOK
	}
	var e *Error
	if !errors.As(err, &e) {
		return ExitFault
	}
	switch e.Kind {
	case SubprocessFailed:
		var exitErr *exec.ExitError
		if errors.As(e.Err, &exitErr) {
			if code := exitErr.ExitCode(); code > 0 {
				return code
			}
			return ExitFault
		}
		if errors.Is(e.Err, exec.ErrNotFound) || errors.Is(e.Err, fs.ErrNotExist) {
			return ExitNotFound
		}
		return ExitFault
	case UnexpectedFault:
		return ExitFault
	default:
		return ExitUsage
	}
}
