package cmd_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"dcgc.io/snakewrap/cmd"
)

// fixture is a throwaway directory with everything a snakewrap run reads.
type fixture struct {
	Dir           string
	ConfigFile    string
	ClusterConfig string
	Snakefile     string
	CMCBWorkflows string
	ZIHWorkflows  string
	CMCBCluster   string
	ZIHCluster    string
}

// writeFile creates dir/name with the given content and mode.
func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		Dir:           dir,
		ConfigFile:    writeFile(t, dir, "config.yaml", "samples: []\n", 0644),
		ClusterConfig: writeFile(t, dir, "cluster.yaml", "__default__:\n  cpu: 1\n", 0644),
		Snakefile:     writeFile(t, dir, "Snakefile", "rule all:\n", 0644),
		CMCBWorkflows: filepath.Join(dir, "cmcb"),
		ZIHWorkflows:  filepath.Join(dir, "zih"),
		CMCBCluster:   writeFile(t, dir, "cmcb_cluster.yaml", "__default__:\n  queue: short\n", 0644),
		ZIHCluster:    writeFile(t, dir, "zih_cluster.yaml", "__default__:\n  runtime: 60\n", 0644),
	}
	writeFile(t, f.CMCBWorkflows, "do_rnaseq.snakemake", "rule all:\n", 0644)
	writeFile(t, f.CMCBWorkflows, "do_chipseq.snakemake", "rule all:\n", 0644)
	writeFile(t, f.CMCBWorkflows, "README.md", "not a workflow\n", 0644)
	writeFile(t, f.CMCBWorkflows, "rnaseq.snakemake", "missing prefix\n", 0644)
	writeFile(t, f.ZIHWorkflows, "do_atacseq.snakemake", "rule all:\n", 0644)
	return f
}

// config returns a snakewrap configuration pointing at the fixture.
func (f *fixture) config() *cmd.Config {
	config := cmd.DefaultConfig()
	config.Institutions.CMCB.WorkflowDir = f.CMCBWorkflows
	config.Institutions.CMCB.ClusterConfig = f.CMCBCluster
	config.Institutions.ZIH.WorkflowDir = f.ZIHWorkflows
	config.Institutions.ZIH.ClusterConfig = f.ZIHCluster
	return config
}

// profile returns the fixture's profile for an institution.
func (f *fixture) profile(t *testing.T, inst cmd.Institution) *cmd.InstitutionProfile {
	t.Helper()
	profile, err := f.config().Profile(inst)
	require.NoError(t, err)
	return profile
}

// fakeSnakemake writes an executable shell script standing in for
// snakemake. It records its arguments in <dir>/invoked, one per line.
func fakeSnakemake(t *testing.T, dir, stdout, stderr string, exitCode int) string {
	t.Helper()
	script := "#!/bin/sh\n" +
		"for arg in \"$@\"; do printf '%s\\n' \"$arg\"; done > \"$(dirname \"$0\")/invoked\"\n" +
		"printf '%s' '" + stdout + "'\n" +
		"printf '%s' '" + stderr + "' >&2\n" +
		"exit " + strconv.Itoa(exitCode) + "\n"
	return writeFile(t, dir, "snakemake", script, 0755)
}
