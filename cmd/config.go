package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Institution selects one of the preconfigured default-path/scheduler profiles.
type Institution string

const (
	CMCB Institution = "CMCB"
	ZIH  Institution = "ZIH"
	Flat Institution = "flat"
)

// Scheduler is the cluster batch system snakemake submits jobs through.
type Scheduler string

const (
	Qsub   Scheduler = "qsub"
	Sbatch Scheduler = "sbatch"
	Drmaa  Scheduler = "drmaa"
	Local  Scheduler = "local"
)

// WrapperSettings holds settings that apply to every invocation.
type WrapperSettings struct {
	SnakemakeBin string `yaml:"snakemake_bin" json:"snakemake_bin" toml:"snakemake_bin"`
}

// InstitutionProfile describes where an institution keeps its workflows and
// which schedulers it supports. Schedulers is not part of the settings file;
// Profile fills it from the fixed per-institution set.
type InstitutionProfile struct {
	WorkflowDir    string      `yaml:"workflow_dir" json:"workflow_dir" toml:"workflow_dir"`
	WorkflowPrefix string      `yaml:"workflow_prefix" json:"workflow_prefix" toml:"workflow_prefix"`
	WorkflowSuffix string      `yaml:"workflow_suffix" json:"workflow_suffix" toml:"workflow_suffix"`
	ClusterConfig  string      `yaml:"cluster_config" json:"cluster_config" toml:"cluster_config"`
	Schedulers     []Scheduler `yaml:"-" json:"-" toml:"-"`
}

// Institutions has one profile per supported institution tag.
type Institutions struct {
	CMCB InstitutionProfile `yaml:"CMCB" json:"CMCB" toml:"CMCB"`
	ZIH  InstitutionProfile `yaml:"ZIH" json:"ZIH" toml:"ZIH"`
}

// Config is the merged snakewrap configuration.
type Config struct {
	WrapperSettings WrapperSettings `yaml:"wrapper_settings" json:"wrapper_settings" toml:"wrapper_settings"`
	Institutions    Institutions    `yaml:"institutions" json:"institutions" toml:"institutions"`
}

// DefaultConfig returns the built-in settings used when no settings file
// overrides them.
func DefaultConfig() *Config {
	return &Config{
		WrapperSettings: WrapperSettings{
			SnakemakeBin: "snakemake",
		},
		Institutions: Institutions{
			CMCB: InstitutionProfile{
				WorkflowDir:    "/projects/seq-work/snakemake/cmcb/workflows",
				WorkflowPrefix: "do_",
				WorkflowSuffix: ".snakemake",
				ClusterConfig:  "/projects/seq-work/snakemake/cmcb/cluster_config.yaml",
			},
			ZIH: InstitutionProfile{
				WorkflowDir:    "/projects/seq-work/snakemake/zih/workflows",
				WorkflowPrefix: "do_",
				WorkflowSuffix: ".snakemake",
				ClusterConfig:  "/projects/seq-work/snakemake/zih/cluster_config.yaml",
			},
		},
	}
}

// allowedSchedulers is the scheduler set of each variant. Settings files
// cannot change it.
var allowedSchedulers = map[Institution][]Scheduler{
	CMCB: {Qsub, Drmaa, Local},
	ZIH:  {Sbatch, Drmaa, Local},
	Flat: {Qsub, Sbatch, Drmaa, Local},
}

// Profile returns a copy of the profile for an institution with its scheduler
// set filled in. The flat variant has no workflow directory and no default
// cluster config.
func (c *Config) Profile(inst Institution) (*InstitutionProfile, error) {
	var profile InstitutionProfile
	switch inst {
	case CMCB:
		profile = c.Institutions.CMCB
	case ZIH:
		profile = c.Institutions.ZIH
	case Flat:
	default:
		return nil, fmt.Errorf("unknown institution '%s'", inst)
	}
	profile.Schedulers = allowedSchedulers[inst]
	return &profile, nil
}

// Allows reports whether the profile accepts the given scheduler.
func (p *InstitutionProfile) Allows(s Scheduler) bool {
	for _, allowed := range p.Schedulers {
		if allowed == s {
			return true
		}
	}
	return false
}

// LoadConfig merges the given settings files, in order, over DefaultConfig.
// Later files win. Relative paths inside a file are resolved against that
// file's directory. Files ending in .toml are decoded as TOML, everything
// else as YAML.
func LoadConfig(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		layer, err := loadConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(config, layer, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge settings file '%s': %w", path, err)
		}
	}
	return config, nil
}

func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file '%s': %w", path, err)
	}

	var layer Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &layer); err != nil {
			return nil, fmt.Errorf("failed to parse TOML settings file '%s': %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &layer); err != nil {
			return nil, fmt.Errorf("failed to parse YAML settings file '%s': %w", path, err)
		}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve settings file path '%s': %w", path, err)
	}
	baseDir := filepath.Dir(absPath)
	for _, profile := range []*InstitutionProfile{&layer.Institutions.CMCB, &layer.Institutions.ZIH} {
		profile.WorkflowDir = resolveRelative(baseDir, profile.WorkflowDir)
		profile.ClusterConfig = resolveRelative(baseDir, profile.ClusterConfig)
	}
	// A bare command name is looked up on PATH; only explicit relative paths
	// are anchored to the settings file.
	if strings.ContainsRune(layer.WrapperSettings.SnakemakeBin, filepath.Separator) {
		layer.WrapperSettings.SnakemakeBin = resolveRelative(baseDir, layer.WrapperSettings.SnakemakeBin)
	}
	return &layer, nil
}

func resolveRelative(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Clean(filepath.Join(baseDir, path))
}
