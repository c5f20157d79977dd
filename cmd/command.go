package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kballard/go-shellquote"
)

// DefaultLogDir is the cluster log directory used when --log-dir is not set.
const DefaultLogDir = "snakemake_logs"

// logStampLayout renders the per-run sbatch log directory suffix (YYMMDD-HHMM).
const logStampLayout = "060102-1504"

// Command is a fully assembled snakemake invocation. It is built once by
// Assemble and not modified afterwards.
type Command struct {
	Program string
	// Args are the snakemake arguments, without the --cluster template.
	Args []string
	// Submit is the cluster submission template passed to --cluster. The
	// {cluster.*} placeholders are expanded by snakemake, not here. Empty for
	// drmaa and local.
	Submit string
	// LogDir is the directory cluster logs are written to. For sbatch it is
	// a timestamped subdirectory of the configured log directory.
	LogDir string
}

// Argv returns the complete argument vector, program first.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+3)
	argv = append(argv, c.Program)
	argv = append(argv, c.Args...)
	if c.Submit != "" {
		argv = append(argv, "--cluster", c.Submit)
	}
	return argv
}

// String renders the command as a shell-quoted line for logging.
func (c Command) String() string {
	return shellquote.Join(c.Argv()...)
}

// Assemble renders an Invocation into a Command. The result depends only on
// its inputs: equal inputs give equal commands. Local worker threads are
// always capped at one.
func Assemble(inv *Invocation, settings WrapperSettings, now time.Time) Command {
	args := []string{"--local-cores", "1"}
	if inv.DryRun {
		args = append(args, "--printshellcmds", "--dryrun")
	}
	args = append(args, "--jobs", strconv.Itoa(inv.Jobs))
	if inv.ConfigFile != "" {
		args = append(args, "--configfile", inv.ConfigFile)
	}
	if inv.ClusterConfig != "" {
		args = append(args, "--cluster-config", inv.ClusterConfig)
	}
	if inv.Snakefile != "" {
		args = append(args, "--snakefile", inv.Snakefile)
	}

	program := settings.SnakemakeBin
	if program == "" {
		program = "snakemake"
	}

	submit, logDir := SubmitTemplate(inv.Scheduler, inv.LogDir, now)
	return Command{
		Program: program,
		Args:    args,
		Submit:  submit,
		LogDir:  logDir,
	}
}

// SubmitTemplate returns the cluster submission template for a scheduler
// together with the log directory the template writes to.
func SubmitTemplate(scheduler Scheduler, logDir string, now time.Time) (string, string) {
	switch scheduler {
	case Drmaa, Local:
		return "", logDir
	case Qsub:
		return fmt.Sprintf("qsub -b -n -o %s -e %s -S {cluster.shell} -q {cluster.queue} -l h_rt={cluster.runtime} -l mem_free={cluster.memory} -l {cluster.other_resources} -pe smp {cluster.cpu}",
			logDir, logDir), logDir
	default:
		stamped := SbatchLogDir(logDir, now)
		return fmt.Sprintf("sbatch --output=%s --error=%s --time={cluster.runtime} --mem-per-cpu={cluster.memory} --cpus-per-task {cluster.cpu}",
			filepath.Join(stamped, "slurm-%j.out"), filepath.Join(stamped, "slurm-%j.err")), stamped
	}
}

// SbatchLogDir returns <logDir>/<base>_<YYMMDD-HHMM> for the given time, where
// base is the last element of logDir.
func SbatchLogDir(logDir string, now time.Time) string {
	return filepath.Join(logDir, fmt.Sprintf("%s_%s", filepath.Base(logDir), now.Format(logStampLayout)))
}
