package cmd

import "strings"

// ConfigCmd represents the 'config' command group.
type ConfigCmd struct {
	Get GetConfigCmd `cmd:"" help:"Show the merged snakewrap settings."`
}

// GetConfigCmd handles 'config get'.
type GetConfigCmd struct{}

// Run prints the merged settings. The table view summarizes each variant's
// profile; json and yaml render the settings document.
func (c *GetConfigCmd) Run(ctx *Context) error {
	if ctx.Globals.Output != "table" {
		return RenderData(ctx.stdout(), ctx.Config, ctx.Globals.Output)
	}

	ctx.Logger.Info().Str("snakemake_bin", ctx.Config.WrapperSettings.SnakemakeBin).Msg("Wrapper settings:")
	table := NewTableRenderer(ctx.stdout(), "INSTITUTION", "SCHEDULERS", "WORKFLOW_DIR", "CLUSTER_CONFIG")
	for _, inst := range []Institution{CMCB, ZIH, Flat} {
		profile, err := ctx.Config.Profile(inst)
		if err != nil {
			return err
		}
		names := make([]string, len(profile.Schedulers))
		for i, s := range profile.Schedulers {
			names[i] = string(s)
		}
		table.AddRow(string(inst), strings.Join(names, ","), orNone(profile.WorkflowDir), orNone(profile.ClusterConfig))
	}
	return table.Render()
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}
