package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/cncslice/pkg/config"
	"github.com/chazu/cncslice/pkg/kernel"
	"github.com/chazu/cncslice/pkg/kernel/sdfx"
	"github.com/chazu/cncslice/pkg/logging"
	"github.com/chazu/cncslice/pkg/mesh"
	"github.com/chazu/cncslice/pkg/meshio"
	"github.com/chazu/cncslice/pkg/script"
	"github.com/chazu/cncslice/pkg/tessellate"
	"github.com/spf13/pflag"
)

// App resolves the inputs of a command: the configuration layers and the
// mesh to slice.
type App struct {
	kernel kernel.Kernel

	// ConfigFile is an optional YAML file applied over the defaults.
	ConfigFile string
	// Set holds key=value overrides from --set.
	Set []string
	// Options holds the option flags; changed flags override everything
	// else.
	Options *pflag.FlagSet
}

// NewApp creates an App that tessellates job scripts with the sdfx kernel.
func NewApp() *App {
	return &App{kernel: sdfx.New()}
}

// Input is a loaded job.
type Input struct {
	Path   string
	Mesh   *mesh.Mesh
	Config config.Config
	// Script is set when the input was a job script.
	Script *script.Job
}

// IsScript reports whether path names a job script.
func IsScript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lisp", ".zy", ".cnc":
		return true
	}
	return false
}

// BaseConfig returns the defaults with the config file applied.
func (a *App) BaseConfig() (config.Config, error) {
	if a.ConfigFile == "" {
		return config.Default(), nil
	}
	return config.Load(a.ConfigFile)
}

// Overrides applies --set pairs and then changed option flags to cfg.
func (a *App) Overrides(cfg *config.Config) error {
	for _, pair := range a.Set {
		if err := cfg.SetPair(pair); err != nil {
			return err
		}
	}
	if a.Options == nil {
		return nil
	}
	var err error
	a.Options.VisitAll(func(f *pflag.Flag) {
		if err == nil && f.Changed {
			err = cfg.Set(f.Name, f.Value.String())
		}
	})
	return err
}

// Config resolves the configuration without an input: defaults, config
// file, then overrides.
func (a *App) Config() (config.Config, error) {
	cfg, err := a.BaseConfig()
	if err != nil {
		return cfg, err
	}
	if err := a.Overrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Load reads the input at path. Mesh files are read directly. A job script
// is evaluated on top of the base configuration and its model tessellated.
// Overrides are applied last and the result is validated.
func (a *App) Load(ctx context.Context, path string) (*Input, error) {
	cfg, err := a.BaseConfig()
	if err != nil {
		return nil, err
	}
	in := &Input{Path: path}
	if IsScript(path) {
		job, err := script.LoadFile(ctx, path, cfg)
		if err != nil {
			return nil, err
		}
		if job.Graph.NodeCount() == 0 {
			return nil, fmt.Errorf("%s: script defines no model", path)
		}
		m, err := tessellate.Tessellate(job.Graph, a.kernel)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		in.Script, in.Mesh, cfg = job, m, job.Config
		logging.Logger().Debug("script evaluated", "path", path,
			"nodes", job.Graph.NodeCount(), "options", job.Set, "triangles", m.Len())
	} else {
		if in.Mesh, err = meshio.Load(path); err != nil {
			return nil, err
		}
	}
	if err := a.Overrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	in.Config = cfg
	return in, nil
}
