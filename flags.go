package main

import (
	"github.com/chazu/cncslice/pkg/config"
	"github.com/spf13/pflag"
)

// optionFlags returns one flag per commonly tuned job option. Flag names
// are the option keys in kebab case, so a changed flag is applied with
// config.Config.Set. Defaults are shown for reference only; unchanged
// flags never override the config file or a job script.
func optionFlags() *pflag.FlagSet {
	d := config.Default()
	fs := pflag.NewFlagSet("options", pflag.ContinueOnError)
	fs.Float64("layer-height", d.LayerHeight, "layer thickness")
	fs.Float64("tool-diameter", d.ToolDiameter, "cutter diameter")
	fs.Float64("kerf", d.Kerf, "kerf width added to the tool diameter")
	fs.Float64("cut-feed-rate", d.CutFeedRate, "feed rate while cutting")
	fs.Float64("plunge-feed-rate", d.PlungeFeedRate, "feed rate while plunging")
	fs.Float64("travel-feed-rate", d.TravelFeedRate, "feed rate for travel moves")
	fs.Float64("safe-z", d.SafeZ, "clearance height for travel")
	fs.Bool("hatch-enabled", d.HatchEnabled, "fill layer interiors with hatch passes")
	fs.Float64("hatch-spacing", d.HatchSpacing, "distance between hatch passes")
	fs.Float64("hatch-angle", d.HatchAngle, "hatch direction in degrees from +X")
	fs.String("units", string(d.Units), "program units (mm, inch)")
	fs.String("direction", string(d.Direction), "layer order (top-down, bottom-up)")
	fs.String("compensation", string(d.Compensation), "tool compensation (outside, inside, none)")
	fs.String("origin", string(d.Origin), "model placement (model, top, bottom)")
	fs.Int("workers", d.Workers, "layer workers, 0 for one per CPU")
	fs.String("job-name", d.JobName, "job name written to the program header")
	fs.SortFlags = false
	return fs
}
