package cmd

import (
	"os"
	"runtime"
)

// Set with -ldflags "-X dcgc.io/snakewrap/cmd.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	ew := &errorWriter{w: os.Stdout}
	ew.Printf("snakewrap version: %s\n", Version)
	ew.Printf("commit: %s, built: %s, %s %s/%s\n", Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	return ew.err
}
