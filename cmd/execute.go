package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"
)

// submittedJobPattern matches sbatch's acknowledgment line.
var submittedJobPattern = regexp.MustCompile(`Submitted batch job (\d+)`)

// Result is the outcome of one snakemake run.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	JobID    int
	HasJobID bool
}

// Executor runs an assembled Command. Stdout receives snakemake's output when
// no job submission is detected, Stderr receives its diagnostics when it
// fails. A nil Stderr drops them.
type Executor struct {
	Logger zerolog.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// Execute creates the command's log directory, runs it without a shell and
// interprets its output.
//
// A non-zero exit from snakemake is returned as SubprocessFailed wrapping the
// *exec.ExitError unchanged, so the caller can propagate the child's code.
// Errors are returned, not logged.
func (e *Executor) Execute(c Command) (*Result, error) {
	if err := os.MkdirAll(c.LogDir, 0755); err != nil {
		return nil, &Error{Kind: UnexpectedFault, Msg: fmt.Sprintf("failed to create log directory '%s'", c.LogDir), Err: err}
	}

	argv := c.Argv()
	proc := exec.Command(argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	e.Logger.Debug().Strs("argv", argv).Str("log_dir", c.LogDir).Msg("Executing snakemake.")

	runErr := proc.Run()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: proc.ProcessState.ExitCode(),
	}
	if runErr != nil {
		if e.Stderr != nil {
			_, _ = e.Stderr.Write(result.Stderr)
		}
		return result, &Error{Kind: SubprocessFailed, Msg: fmt.Sprintf("command '%s' failed", c), Err: runErr}
	}

	jobID, ok, err := ParseJobID(result.Stderr)
	if err != nil {
		return result, err
	}
	if ok {
		result.JobID, result.HasJobID = jobID, true
		e.Logger.Info().Int("job_id", jobID).Msg("Submitted batch job.")
		return result, nil
	}

	if _, err := e.Stdout.Write(result.Stdout); err != nil {
		return result, &Error{Kind: UnexpectedFault, Msg: "failed to write snakemake output", Err: err}
	}
	e.Logger.Info().Msgf("COMMAND: %s", c)
	return result, nil
}

// ParseJobID extracts the job identifier from snakemake's stderr. It reports
// false when no "Submitted batch job <digits>" line is present.
func ParseJobID(stderr []byte) (int, bool, error) {
	m := submittedJobPattern.FindSubmatch(stderr)
	if m == nil {
		return 0, false, nil
	}
	id, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, false, &Error{Kind: UnexpectedFault, Msg: fmt.Sprintf("invalid job id '%s'", m[1]), Err: err}
	}
	return id, true, nil
}
