package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	cmd "dcgc.io/snakewrap/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes snakewrap and returns the process exit code. Keeping this out
// of main lets deferred cleanup (the log file) happen before os.Exit.
func run(args []string) int {
	var cli cmd.CLI

	parser, err := cmd.NewParser(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snakewrap: %v\n", err)
		return cmd.ExitFault
	}

	// No arguments at all is a request for help, not an error.
	if len(args) == 0 {
		if err := cmd.PrintRootUsage(parser); err != nil {
			return cmd.ExitUsage
		}
		return cmd.ExitOK
	}

	ctxKong, err := parser.Parse(args)
	if err != nil {
		var parseErr *kong.ParseError
		if errors.As(err, &parseErr) && parseErr.Context != nil {
			_ = parseErr.Context.PrintUsage(true)
		}
		parser.Errorf("%s", err)
		return cmd.ExitUsage
	}

	// The 'version' command does not need settings or a logger.
	if ctxKong.Command() == "version" {
		if err := ctxKong.Run(); err != nil {
			parser.Errorf("%s", err)
			return cmd.ExitFault
		}
		return cmd.ExitOK
	}

	// Initialize Zerolog.
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	// Disable color output if NO_COLOR is set or stderr is not a terminal.
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stderr.Fd())) {
		output.NoColor = true
	}

	var sink io.Writer = output
	if cli.LogFile != "" {
		logFile, err := os.OpenFile(cli.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "snakewrap: failed to open log file '%s': %v\n", cli.LogFile, err)
			return cmd.ExitUsage
		}
		defer logFile.Close()
		sink = zerolog.MultiLevelWriter(output, logFile)
	}

	logLevel := zerolog.InfoLevel
	if cli.Debug {
		logLevel = zerolog.DebugLevel
	}
	logger := zerolog.New(sink).Level(logLevel).With().Timestamp().Logger()

	// Route messages printed with the standard log package through zerolog.
	log.SetFlags(0)
	log.SetOutput(logger)

	config, err := cmd.LoadConfig(cli.Settings...)
	if err != nil {
		logger.Error().Err(err).Strs("settings", cli.Settings).Msg("Failed to load snakewrap settings.")
		return cmd.ExitUsage
	}

	cmdCtx := &cmd.Context{
		Globals: &cli.Globals,
		Config:  config,
		Logger:  logger,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Now:     time.Now,
	}

	err = ctxKong.Run(cmdCtx)
	if errors.Is(err, cmd.ErrHelpRequested) {
		// An institution command without workflow or scheduler shows its help.
		if err := ctxKong.PrintUsage(false); err != nil {
			return cmd.ExitFault
		}
		return cmd.ExitOK
	}
	if err != nil {
		event := logger.Error().Err(err)
		var cmdErr *cmd.Error
		if errors.As(err, &cmdErr) {
			event = event.Stringer("kind", cmdErr.Kind)
			if cmdErr.Flag != "" {
				event = event.Str("flag", cmdErr.Flag)
			}
		}
		event.Msg("snakewrap command failed.")
	}
	return cmd.ExitCode(err)
}
