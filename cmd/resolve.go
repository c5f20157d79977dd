package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Flag labels used in error messages.
const (
	flagJobs          = "-j/--jobs"
	flagScheduler     = "-w/--job-scheduler"
	flagWorkflow      = "-f/--workflow"
	flagConfigFile    = "-c/--configfile"
	flagClusterConfig = "-u/--cluster-config"
	flagSnakefile     = "-s/--snakefile"
)

// Options are the raw option values collected from the command line.
type Options struct {
	Institution   Institution
	DryRun        bool
	PrintOnly     bool
	ConfigFile    string
	ClusterConfig string
	Snakefile     string
	Scheduler     Scheduler
	Jobs          int
	LogDir        string
	Workflow      string
	ListWorkflows bool
}

// Invocation is the validated form of Options. All file paths are absolute
// and were readable regular files at validation time.
type Invocation struct {
	Institution   Institution
	DryRun        bool
	PrintOnly     bool
	ConfigFile    string
	ClusterConfig string
	Snakefile     string
	Scheduler     Scheduler
	Jobs          int
	LogDir        string
	Workflow      string
}

// Resolve validates opts against an institution profile and returns the
// resulting Invocation.
//
// Checks run in this order:
//  1. jobs must be positive (InvalidOption).
//  2. An institution run with neither a workflow nor a scheduler is a help
//     request (ErrHelpRequested).
//  3. A workflow name must match a listed workflow (UnknownWorkflow); its
//     definition file becomes the snakefile.
//  4. The scheduler is mandatory for an institution (MissingScheduler) and
//     must be in the profile's set (InvalidOption). The flat variant
//     defaults to sbatch.
//  5. Config file, cluster config and snakefile must be readable files
//     (InvalidFile) and must all be set (MissingRequiredFile). The cluster
//     config falls back to the profile's default.
//
// Listing workflows is handled by the caller before Resolve.
func Resolve(opts Options, profile *InstitutionProfile, logger zerolog.Logger) (*Invocation, error) {
	if opts.Jobs < 1 {
		return nil, newError(InvalidOption, flagJobs, "%d: provide a positive integer", opts.Jobs)
	}

	institutional := opts.Institution != Flat
	if institutional && opts.Workflow == "" && opts.Scheduler == "" {
		return nil, ErrHelpRequested
	}

	inv := &Invocation{
		Institution: opts.Institution,
		DryRun:      opts.DryRun,
		PrintOnly:   opts.PrintOnly,
		Jobs:        opts.Jobs,
		LogDir:      opts.LogDir,
		Workflow:    opts.Workflow,
	}
	if inv.LogDir == "" {
		inv.LogDir = DefaultLogDir
	}

	if opts.Workflow != "" {
		workflows, err := ListWorkflows(opts.Institution, profile)
		if err != nil {
			return nil, err
		}
		wf, ok := findWorkflow(workflows, opts.Workflow)
		if !ok {
			return nil, newError(UnknownWorkflow, flagWorkflow, "'%s' is not a valid snakemake workflow for %s", opts.Workflow, opts.Institution)
		}
		if opts.Snakefile != "" {
			logger.Warn().Str("workflow", wf.Name).Str("snakefile", opts.Snakefile).Msg("Ignoring --snakefile because a workflow was selected.")
		}
		path, err := checkFile(flagWorkflow, wf.Path)
		if err != nil {
			return nil, err
		}
		inv.Snakefile = path
	}

	switch {
	case opts.Scheduler == "" && institutional:
		return nil, newError(MissingScheduler, flagScheduler, "provide a valid scheduler (%s)", joinSchedulers(profile.Schedulers))
	case opts.Scheduler == "":
		inv.Scheduler = Sbatch
	case !profile.Allows(opts.Scheduler):
		return nil, newError(InvalidOption, flagScheduler, "'%s' is not supported for %s (%s)", opts.Scheduler, opts.Institution, joinSchedulers(profile.Schedulers))
	default:
		inv.Scheduler = opts.Scheduler
	}

	var err error
	clusterConfig := opts.ClusterConfig
	if clusterConfig == "" && institutional {
		clusterConfig = profile.ClusterConfig
		logger.Debug().Str("institution", string(opts.Institution)).Str("cluster_config", clusterConfig).Msg("Using the institution's default cluster config.")
	}
	if inv.ClusterConfig, err = requireFile(flagClusterConfig, clusterConfig, "cluster-config file"); err != nil {
		return nil, err
	}
	if inv.ConfigFile, err = requireFile(flagConfigFile, opts.ConfigFile, "config file"); err != nil {
		return nil, err
	}
	if inv.Snakefile == "" {
		if inv.Snakefile, err = requireFile(flagSnakefile, opts.Snakefile, "snakefile"); err != nil {
			return nil, err
		}
	}

	return inv, nil
}

// requireFile checks a mandatory file path.
func requireFile(flag, path, what string) (string, error) {
	if path == "" {
		return "", newError(MissingRequiredFile, flag, "provide a valid %s", what)
	}
	return checkFile(flag, path)
}

// checkFile verifies that path names a readable regular file and returns
// its absolute form.
func checkFile(flag, path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		e := newError(InvalidFile, flag, "'%s' is not a valid path", path)
		e.Err = err
		return "", e
	}
	info, err := os.Stat(absPath)
	if err != nil {
		e := newError(InvalidFile, flag, "'%s' does not exist", path)
		e.Err = err
		return "", e
	}
	if !info.Mode().IsRegular() {
		return "", newError(InvalidFile, flag, "'%s' is not a regular file", path)
	}
	f, err := os.Open(absPath)
	if err != nil {
		e := newError(InvalidFile, flag, "'%s' is not readable", path)
		e.Err = err
		return "", e
	}
	f.Close()
	return absPath, nil
}

func joinSchedulers(schedulers []Scheduler) string {
	names := make([]string, len(schedulers))
	for i, s := range schedulers {
		names[i] = "'" + string(s) + "'"
	}
	return strings.Join(names, ", ")
}
