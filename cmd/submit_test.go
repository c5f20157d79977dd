package cmd_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"dcgc.io/snakewrap/cmd"
)

// newTestContext returns a Context writing stdout and JSON logs to buffers.
func newTestContext(config *cmd.Config, output string) (*cmd.Context, *bytes.Buffer, *bytes.Buffer) {
	var stdout, logs bytes.Buffer
	ctx := &cmd.Context{
		Globals: &cmd.Globals{Output: output},
		Config:  config,
		Logger:  zerolog.New(&logs).Level(zerolog.InfoLevel),
		Stdout:  &stdout,
		Now:     func() time.Time { return fixedTime },
	}
	return ctx, &stdout, &logs
}

func TestSubmit_PrintOnly(t *testing.T) {
	f := newFixture(t)
	config := f.config()
	config.WrapperSettings.SnakemakeBin = fakeSnakemake(t, f.Dir, "", "", 0)
	ctx, stdout, logs := newTestContext(config, "table")

	err := ctx.Submit(cmd.Options{
		Institution:   cmd.Flat,
		PrintOnly:     true,
		ConfigFile:    f.ConfigFile,
		ClusterConfig: f.ClusterConfig,
		Snakefile:     f.Snakefile,
		Scheduler:     cmd.Sbatch,
		Jobs:          2,
		LogDir:        filepath.Join(f.Dir, "logs"),
	})
	require.NoError(t, err)
	assert.Equal(t, cmd.ExitOK, cmd.ExitCode(err))

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 1, "the command is emitted as a single log line")
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "info", record["level"])
	message, _ := record["message"].(string)
	assert.True(t, strings.HasPrefix(message, "COMMAND: "+config.WrapperSettings.SnakemakeBin+" --local-cores 1 --jobs 2"), "got %q", message)
	assert.Contains(t, message, "--cluster 'sbatch --output=")

	assert.Empty(t, stdout.String())
	_, statErr := os.Stat(filepath.Join(f.Dir, "invoked"))
	assert.True(t, os.IsNotExist(statErr), "print-only must not spawn snakemake")
	_, statErr = os.Stat(filepath.Join(f.Dir, "logs"))
	assert.True(t, os.IsNotExist(statErr), "print-only must not create the log directory")
}

func TestSubmit_InvalidFileSpawnsNothing(t *testing.T) {
	f := newFixture(t)
	config := f.config()
	config.WrapperSettings.SnakemakeBin = fakeSnakemake(t, f.Dir, "", "", 0)
	ctx, _, _ := newTestContext(config, "table")

	err := ctx.Submit(cmd.Options{
		Institution:   cmd.Flat,
		ConfigFile:    filepath.Join(f.Dir, "nope.yaml"),
		ClusterConfig: f.ClusterConfig,
		Snakefile:     f.Snakefile,
		Scheduler:     cmd.Local,
		Jobs:          1,
	})
	assert.True(t, errors.Is(err, &cmd.Error{Kind: cmd.InvalidFile}), "got %v", err)
	assert.Equal(t, cmd.ExitUsage, cmd.ExitCode(err))

	_, statErr := os.Stat(filepath.Join(f.Dir, "invoked"))
	assert.True(t, os.IsNotExist(statErr), "no subprocess may be spawned after a validation failure")
}

func TestSubmit_InstitutionWorkflowRun(t *testing.T) {
	f := newFixture(t)
	config := f.config()
	config.WrapperSettings.SnakemakeBin = fakeSnakemake(t, f.Dir, "", "Submitted batch job 4242\n", 0)
	ctx, stdout, _ := newTestContext(config, "table")
	t.Chdir(f.Dir)

	err := ctx.Submit(cmd.Options{
		Institution: cmd.ZIH,
		ConfigFile:  f.ConfigFile,
		Scheduler:   cmd.Sbatch,
		Workflow:    "atacseq",
		Jobs:        3,
		LogDir:      "logs",
	})
	require.NoError(t, err)
	assert.Equal(t, "Submitted batch job 4242\n", stdout.String())

	info, err := os.Stat(filepath.Join(f.Dir, "logs", "logs_261019-1437"))
	require.NoError(t, err, "the timestamped sbatch log directory is created")
	assert.True(t, info.IsDir())

	invoked, err := os.ReadFile(filepath.Join(f.Dir, "invoked"))
	require.NoError(t, err)
	args := strings.Split(strings.TrimSuffix(string(invoked), "\n"), "\n")
	assert.Equal(t, []string{
		"--local-cores", "1",
		"--jobs", "3",
		"--configfile", f.ConfigFile,
		"--cluster-config", f.ZIHCluster,
		"--snakefile", filepath.Join(f.ZIHWorkflows, "do_atacseq.snakemake"),
		"--cluster", "sbatch --output=logs/logs_261019-1437/slurm-%j.out --error=logs/logs_261019-1437/slurm-%j.err " +
			"--time={cluster.runtime} --mem-per-cpu={cluster.memory} --cpus-per-task {cluster.cpu}",
	}, args)
}

func TestSubmit_StructuredResult(t *testing.T) {
	f := newFixture(t)
	config := f.config()
	config.WrapperSettings.SnakemakeBin = fakeSnakemake(t, f.Dir, "Nothing to be done.\n", "", 0)
	ctx, stdout, _ := newTestContext(config, "json")

	err := ctx.Submit(cmd.Options{
		Institution:   cmd.Flat,
		ConfigFile:    f.ConfigFile,
		ClusterConfig: f.ClusterConfig,
		Snakefile:     f.Snakefile,
		Scheduler:     cmd.Local,
		Jobs:          1,
		LogDir:        filepath.Join(f.Dir, "logs"),
	})
	require.NoError(t, err)

	var submission cmd.Submission
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &submission), "stdout holds only the JSON record")
	assert.Equal(t, 0, submission.JobID)
	assert.Equal(t, "Nothing to be done.\n", submission.Output)
	assert.Equal(t, filepath.Join(f.Dir, "logs"), submission.LogDir)
	assert.Equal(t, config.WrapperSettings.SnakemakeBin, submission.Command[0])
}

func TestSubmit_FailurePassesStderrThrough(t *testing.T) {
	f := newFixture(t)
	config := f.config()
	config.WrapperSettings.SnakemakeBin = fakeSnakemake(t, f.Dir, "", "MissingInputException\n", 4)
	ctx, stdout, logs := newTestContext(config, "table")
	var stderr bytes.Buffer
	ctx.Stderr = &stderr

	err := ctx.Submit(cmd.Options{
		Institution:   cmd.Flat,
		ConfigFile:    f.ConfigFile,
		ClusterConfig: f.ClusterConfig,
		Snakefile:     f.Snakefile,
		Scheduler:     cmd.Local,
		Jobs:          1,
		LogDir:        filepath.Join(f.Dir, "logs"),
	})
	assert.True(t, errors.Is(err, &cmd.Error{Kind: cmd.SubprocessFailed}), "got %v", err)
	assert.Equal(t, 4, cmd.ExitCode(err))
	assert.Equal(t, "MissingInputException\n", stderr.String())
	assert.Empty(t, stdout.String())
	assert.Empty(t, logs.String(), "failures are logged once, by the caller")
}

func TestSubmit_ListWorkflows(t *testing.T) {
	f := newFixture(t)
	ctx, stdout, _ := newTestContext(f.config(), "table")

	err := ctx.Submit(cmd.Options{Institution: cmd.CMCB, ListWorkflows: true, Jobs: 1})
	require.NoError(t, err)

	assert.Equal(t, "chipseq\nrnaseq\n", stdout.String(), "names are printed without prefix or suffix")
}

func TestSubmit_ListWorkflowsYAML(t *testing.T) {
	f := newFixture(t)
	ctx, stdout, _ := newTestContext(f.config(), "yaml")

	require.NoError(t, ctx.Submit(cmd.Options{Institution: cmd.ZIH, ListWorkflows: true, Jobs: 1}))

	var workflows []cmd.Workflow
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &workflows))
	assert.Equal(t, []cmd.Workflow{{Name: "atacseq", Path: filepath.Join(f.ZIHWorkflows, "do_atacseq.snakemake")}}, workflows)
}

func TestSubmit_ListWorkflowsEmpty(t *testing.T) {
	f := newFixture(t)
	config := f.config()
	config.Institutions.ZIH.WorkflowDir = t.TempDir()
	ctx, stdout, _ := newTestContext(config, "table")

	err := ctx.Submit(cmd.Options{Institution: cmd.ZIH, ListWorkflows: true, Jobs: 1})
	assert.True(t, errors.Is(err, &cmd.Error{Kind: cmd.NoWorkflowsAvailable}), "got %v", err)
	assert.Equal(t, cmd.ExitUsage, cmd.ExitCode(err))
	assert.Empty(t, stdout.String())
}

func TestSubmit_JobsCheckedBeforeListing(t *testing.T) {
	f := newFixture(t)
	ctx, stdout, _ := newTestContext(f.config(), "table")

	err := ctx.Submit(cmd.Options{Institution: cmd.CMCB, ListWorkflows: true, Jobs: 0})
	assert.True(t, errors.Is(err, &cmd.Error{Kind: cmd.InvalidOption}), "got %v", err)
	assert.Empty(t, stdout.String())
}

func TestInstitutionCommand_HelpRequest(t *testing.T) {
	f := newFixture(t)
	ctx, _, _ := newTestContext(f.config(), "table")
	ctx.Globals.Jobs = 1

	err := (&cmd.CMCBCmd{}).Run(ctx)
	assert.ErrorIs(t, err, cmd.ErrHelpRequested)
}
