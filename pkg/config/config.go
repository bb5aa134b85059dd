// Package config defines the slicing job configuration: defaults, YAML
// loading, string overrides, and validation.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Units selects the G-code unit mode. Geometry is never rescaled; the unit
// only picks G21 or G20 and is expected to match the model.
type Units string

const (
	UnitsMM   Units = "mm"
	UnitsInch Units = "inch"
)

// Direction is the order in which layers are machined.
type Direction string

const (
	TopDown  Direction = "top-down"
	BottomUp Direction = "bottom-up"
)

// Compensation picks which side of the part contour the tool runs on.
type Compensation string

const (
	CompensateOutside Compensation = "outside" // tool outside the material, part keeps its size
	CompensateInside  Compensation = "inside"  // tool inside the outline, cut-out keeps its size
	CompensateNone    Compensation = "none"    // tool center on the contour
)

// Join is the corner style used when offsetting contours.
type Join string

const (
	JoinRound  Join = "round"
	JoinMiter  Join = "miter"
	JoinSquare Join = "square"
)

// Origin picks where the model is placed in machine coordinates before
// slicing.
type Origin string

const (
	OriginModel  Origin = "model"  // coordinates as loaded
	OriginTop    Origin = "top"    // XY minimum at 0, top face at Z=0
	OriginBottom Origin = "bottom" // bounding box minimum at the origin
)

// Config is the full set of job options. Zero values are not meaningful;
// start from Default.
type Config struct {
	LayerHeight    float64 `yaml:"layer_height"`
	ToolDiameter   float64 `yaml:"tool_diameter"`
	Kerf           float64 `yaml:"kerf"`
	CutFeedRate    float64 `yaml:"cut_feed_rate"`
	PlungeFeedRate float64 `yaml:"plunge_feed_rate"`
	TravelFeedRate float64 `yaml:"travel_feed_rate"`
	SafeZ          float64 `yaml:"safe_z"`
	HatchEnabled   bool    `yaml:"hatch_enabled"`
	HatchSpacing   float64 `yaml:"hatch_spacing"`
	HatchAngle     float64 `yaml:"hatch_angle"` // degrees from +X

	Units             Units        `yaml:"units"`
	Direction         Direction    `yaml:"direction"`
	Compensation      Compensation `yaml:"compensation"`
	Join              Join         `yaml:"join"`
	Origin            Origin       `yaml:"origin"`
	ArcTolerance      float64      `yaml:"arc_tolerance"`
	MiterLimit        float64      `yaml:"miter_limit"`
	SimplifyTolerance float64      `yaml:"simplify_tolerance"`
	WeldTolerance     float64      `yaml:"weld_tolerance"`
	Precision         int          `yaml:"precision"`
	SpindleSpeed      float64      `yaml:"spindle_speed"`
	ZOffset           float64      `yaml:"z_offset"`
	WorkOffset        bool         `yaml:"work_offset"`
	Workers           int          `yaml:"workers"` // 0 means GOMAXPROCS
	JobName           string       `yaml:"job_name"`
}

// Default returns the stock configuration. Feeds follow the usual hobby
// router values: 800 mm/min cutting, 1200 mm/min travel.
func Default() Config {
	return Config{
		LayerHeight:       1,
		ToolDiameter:      3.175,
		CutFeedRate:       800,
		PlungeFeedRate:    300,
		TravelFeedRate:    1200,
		SafeZ:             10,
		HatchSpacing:      1.5,
		HatchAngle:        0,
		Units:             UnitsMM,
		Direction:         TopDown,
		Compensation:      CompensateOutside,
		Join:              JoinRound,
		Origin:            OriginModel,
		ArcTolerance:      0.01,
		MiterLimit:        2,
		SimplifyTolerance: 0.001,
		WeldTolerance:     1e-6,
		Precision:         3,
	}
}

// Parse decodes YAML on top of Default. Unknown keys are rejected. The
// result is not validated.
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// Load reads and parses the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Marshal renders c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ToolRadius is the offset magnitude: half the cutter diameter plus half
// the kerf width.
func (c Config) ToolRadius() float64 {
	return c.ToolDiameter/2 + c.Kerf/2
}

// OffsetDistance is the signed offset applied to part contours. Positive
// grows the part outline.
func (c Config) OffsetDistance() float64 {
	switch c.Compensation {
	case CompensateInside:
		return -c.ToolRadius()
	case CompensateNone:
		return 0
	default:
		return c.ToolRadius()
	}
}
