package cmd

import (
	"os"
	"path/filepath"
	"strings"
)

// Workflow is a snakemake workflow definition shipped in an institution's
// workflow directory.
type Workflow struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// ListWorkflows enumerates the regular files in the profile's workflow
// directory whose names carry the workflow prefix and suffix. Names are
// returned with the decoration stripped, in directory order.
//
// An empty result, or a directory that cannot be read, is reported as
// NoWorkflowsAvailable.
func ListWorkflows(inst Institution, profile *InstitutionProfile) ([]Workflow, error) {
	if profile.WorkflowDir == "" {
		return nil, newError(NoWorkflowsAvailable, "", "no workflow directory configured for %s", inst)
	}

	entries, err := os.ReadDir(profile.WorkflowDir)
	if err != nil {
		e := newError(NoWorkflowsAvailable, "", "no workflow available for %s", inst)
		e.Err = err
		return nil, e
	}

	var workflows []Workflow
	for _, entry := range entries {
		fileName := entry.Name()
		if !strings.HasPrefix(fileName, profile.WorkflowPrefix) || !strings.HasSuffix(fileName, profile.WorkflowSuffix) {
			continue
		}
		path := filepath.Join(profile.WorkflowDir, fileName)
		// Stat follows symlinks, so linked workflow files are listed too.
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(fileName, profile.WorkflowPrefix), profile.WorkflowSuffix)
		if name == "" {
			continue
		}
		workflows = append(workflows, Workflow{
			Name: name,
			Path: path,
		})
	}

	if len(workflows) == 0 {
		return nil, newError(NoWorkflowsAvailable, "", "no workflow available for %s in '%s'", inst, profile.WorkflowDir)
	}
	return workflows, nil
}

// findWorkflow returns the workflow with exactly the given name.
func findWorkflow(workflows []Workflow, name string) (Workflow, bool) {
	for _, wf := range workflows {
		if wf.Name == name {
			return wf, true
		}
	}
	return Workflow{}, false
}
