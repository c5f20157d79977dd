package cmd

// InstitutionFlags are the options of the institutional commands.
type InstitutionFlags struct {
	Scheduler     string `help:"Job scheduler system." short:"w" name:"job-scheduler" placeholder:"STRING"`
	Workflow      string `help:"Choose a workflow." short:"f" name:"workflow" placeholder:"STRING"`
	ListWorkflows bool   `help:"List the available workflows." short:"L" name:"list-workflows"`
}

// CMCBCmd runs snakemake with the CMCB profile.
type CMCBCmd struct {
	InstitutionFlags
}

// ZIHCmd runs snakemake with the ZIH profile.
type ZIHCmd struct {
	InstitutionFlags
}

// RunCmd runs snakemake on an explicitly given snakefile, without an
// institution profile.
type RunCmd struct {
	Scheduler string `help:"Job scheduler system (qsub, sbatch, drmaa, local). Defaults to sbatch." short:"w" name:"job-scheduler" placeholder:"STRING"`
}

func (c *CMCBCmd) Run(ctx *Context) error {
	return ctx.runInstitution(CMCB, &c.InstitutionFlags)
}

func (c *ZIHCmd) Run(ctx *Context) error {
	return ctx.runInstitution(ZIH, &c.InstitutionFlags)
}

func (r *RunCmd) Run(ctx *Context) error {
	return ctx.Submit(ctx.Globals.options(Flat, r.Scheduler, "", false))
}

func (ctx *Context) runInstitution(inst Institution, f *InstitutionFlags) error {
	return ctx.Submit(ctx.Globals.options(inst, f.Scheduler, f.Workflow, f.ListWorkflows))
}
