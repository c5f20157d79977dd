package cmd

import (
	"io"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
)

// Globals are the flags shared by every command. Most of them are passed
// through to snakemake.
type Globals struct {
	Print         bool   `help:"Print the snakemake command and exit." short:"p" name:"print"`
	LogDir        string `help:"Log directory for cluster jobs." short:"l" name:"log-dir" placeholder:"DIRECTORY" default:"snakemake_logs"`
	DryRun        bool   `help:"Do not execute anything, and display what would be done." short:"n" name:"dryrun" group:"snakemake"`
	ConfigFile    string `help:"Configuration file needed to run the workflow." short:"c" name:"configfile" placeholder:"FILE" group:"snakemake"`
	ClusterConfig string `help:"Configuration file specifying required cluster resources." short:"u" name:"cluster-config" placeholder:"FILE" group:"snakemake"`
	Snakefile     string `help:"The workflow definition in a snakefile." short:"s" name:"snakefile" placeholder:"FILE" group:"snakemake"`
	Jobs          int    `help:"Run at most N jobs in parallel." short:"j" name:"jobs" placeholder:"INT" default:"1" group:"snakemake"`

	Settings []string `help:"snakewrap settings file (YAML or TOML). May be repeated; later files override earlier ones." name:"settings" placeholder:"FILE" env:"SNAKEWRAP_SETTINGS" sep:","`
	Output   string   `help:"Output format for listings (table, json, yaml)." short:"o" enum:"table,json,yaml" default:"table"`
	Debug    bool     `help:"Enable debug logging."`
	LogFile  string   `help:"Also write JSON log records to this file." name:"log-file" placeholder:"FILE"`
}

// CLI is the complete snakewrap command-line grammar.
type CLI struct {
	Globals

	CMCB    CMCBCmd    `cmd:"" name:"CMCB" aliases:"cmcb" help:"Run a CMCB workflow (schedulers: qsub, drmaa, local)."`
	ZIH     ZIHCmd     `cmd:"" name:"ZIH" aliases:"zih" help:"Run a ZIH workflow (schedulers: sbatch, drmaa, local)."`
	Run     RunCmd     `cmd:"" default:"withargs" help:"Run an explicit snakefile (default command)."`
	Config  ConfigCmd  `cmd:"" help:"Inspect snakewrap settings."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Context carries process-wide state into command handlers.
type Context struct {
	Globals *Globals
	Config  *Config
	Logger  zerolog.Logger
	Stdout  io.Writer
	// Stderr receives snakemake's diagnostics when it fails.
	Stderr io.Writer
	// Now returns the current time; it timestamps sbatch log directories.
	Now func() time.Time
}

// NewParser builds the kong parser for cli. Extra options are appended to
// the defaults, which lets tests replace Exit and the help writers.
func NewParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	defaults := []kong.Option{
		kong.Name("snakewrap"),
		kong.Description("Wrapper around snakemake that selects a cluster submission strategy."),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.ExplicitGroups([]kong.Group{{Key: "snakemake", Title: "snakemake specific arguments"}}),
	}
	return kong.New(cli, append(defaults, options...)...)
}

// PrintRootUsage prints the top-level help, as shown when snakewrap is run
// without arguments. Like --help, it ends in the parser's Exit(0).
func PrintRootUsage(parser *kong.Kong) error {
	_, err := parser.Parse([]string{"--help"})
	return err
}

// options converts the global flags plus command specific values into
// resolver Options.
func (g *Globals) options(inst Institution, scheduler, workflow string, list bool) Options {
	return Options{
		Institution:   inst,
		DryRun:        g.DryRun,
		PrintOnly:     g.Print,
		ConfigFile:    g.ConfigFile,
		ClusterConfig: g.ClusterConfig,
		Snakefile:     g.Snakefile,
		Scheduler:     Scheduler(scheduler),
		Jobs:          g.Jobs,
		LogDir:        g.LogDir,
		Workflow:      workflow,
		ListWorkflows: list,
	}
}
