package cmd

import (
	"fmt"
	"io"
	"time"
)

// Submission is the structured record rendered for json/yaml output after a
// successful run.
type Submission struct {
	Command  []string `json:"command" yaml:"command"`
	LogDir   string   `json:"log_dir" yaml:"log_dir"`
	JobID    int      `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	ExitCode int      `json:"exit_code" yaml:"exit_code"`
	// Output is snakemake's stdout, set when no job id was found.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// Submit takes one invocation through validation, assembly and execution.
//
// The stages are:
//  1. Listing: with ListWorkflows set, the institution's workflows are
//     printed and nothing else happens.
//  2. Validation: Resolve turns the options into an Invocation.
//  3. Assembly: Assemble builds the snakemake Command.
//  4. Print-only: with --print the command is logged and nothing runs.
//  5. Execution: the Executor runs snakemake and looks for a job id.
func (ctx *Context) Submit(opts Options) error {
	profile, err := ctx.Config.Profile(opts.Institution)
	if err != nil {
		return err
	}

	if opts.Jobs < 1 {
		return newError(InvalidOption, flagJobs, "%d: provide a positive integer", opts.Jobs)
	}

	if opts.ListWorkflows {
		workflows, err := ListWorkflows(opts.Institution, profile)
		if err != nil {
			return err
		}
		return ctx.renderWorkflows(opts.Institution, workflows)
	}

	inv, err := Resolve(opts, profile, ctx.Logger)
	if err != nil {
		return err
	}
	ctx.Logger.Debug().
		Str("institution", string(inv.Institution)).
		Str("scheduler", string(inv.Scheduler)).
		Str("workflow", inv.Workflow).
		Msg("Options validated.")

	command := Assemble(inv, ctx.Config.WrapperSettings, ctx.now())

	if inv.PrintOnly {
		ctx.Logger.Info().Msgf("COMMAND: %s", command)
		return nil
	}

	// Structured output carries snakemake's stdout inside the record instead.
	executor := &Executor{Logger: ctx.Logger, Stdout: ctx.stdout(), Stderr: ctx.Stderr}
	if ctx.Globals.Output != "table" {
		executor.Stdout = io.Discard
	}
	result, err := executor.Execute(command)
	if err != nil {
		return err
	}
	return ctx.renderResult(command, result)
}

func (ctx *Context) renderWorkflows(inst Institution, workflows []Workflow) error {
	if ctx.Globals.Output != "table" {
		return RenderData(ctx.stdout(), workflows, ctx.Globals.Output)
	}
	ctx.Logger.Info().Int("count", len(workflows)).Msgf("Workflows for %s:", inst)
	for _, wf := range workflows {
		if _, err := fmt.Fprintln(ctx.stdout(), wf.Name); err != nil {
			return err
		}
	}
	return nil
}

func (ctx *Context) renderResult(command Command, result *Result) error {
	if ctx.Globals.Output != "table" {
		submission := Submission{
			Command:  command.Argv(),
			LogDir:   command.LogDir,
			ExitCode: result.ExitCode,
		}
		if result.HasJobID {
			submission.JobID = result.JobID
		} else {
			submission.Output = string(result.Stdout)
		}
		return RenderData(ctx.stdout(), submission, ctx.Globals.Output)
	}
	if result.HasJobID {
		_, err := fmt.Fprintf(ctx.stdout(), "Submitted batch job %d\n", result.JobID)
		return err
	}
	return nil
}

func (ctx *Context) stdout() io.Writer {
	if ctx.Stdout == nil {
		return io.Discard
	}
	return ctx.Stdout
}

func (ctx *Context) now() time.Time {
	if ctx.Now == nil {
		return time.Now()
	}
	return ctx.Now()
}
