package config

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ConfigError reports an invalid option. It is fatal and returned before
// any slicing work starts.
type ConfigError struct {
	Field  string // yaml key
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s = %v: %s", e.Field, e.Value, e.Reason)
}

// Validate checks every option and returns the first problem as a
// *ConfigError.
func (c Config) Validate() error {
	positive := []struct {
		field string
		v     float64
	}{
		{"layer_height", c.LayerHeight},
		{"cut_feed_rate", c.CutFeedRate},
		{"plunge_feed_rate", c.PlungeFeedRate},
		{"travel_feed_rate", c.TravelFeedRate},
	}
	for _, p := range positive {
		if err := finite(p.field, p.v); err != nil {
			return err
		}
		if p.v <= 0 {
			return &ConfigError{Field: p.field, Value: p.v, Reason: "must be positive"}
		}
	}

	nonNegative := []struct {
		field string
		v     float64
	}{
		{"tool_diameter", c.ToolDiameter},
		{"kerf", c.Kerf},
		{"arc_tolerance", c.ArcTolerance},
		{"simplify_tolerance", c.SimplifyTolerance},
		{"weld_tolerance", c.WeldTolerance},
		{"spindle_speed", c.SpindleSpeed},
	}
	for _, p := range nonNegative {
		if err := finite(p.field, p.v); err != nil {
			return err
		}
		if p.v < 0 {
			return &ConfigError{Field: p.field, Value: p.v, Reason: "must not be negative"}
		}
	}

	for _, p := range []struct {
		field string
		v     float64
	}{{"safe_z", c.SafeZ}, {"z_offset", c.ZOffset}, {"hatch_angle", c.HatchAngle}, {"miter_limit", c.MiterLimit}} {
		if err := finite(p.field, p.v); err != nil {
			return err
		}
	}

	if c.HatchEnabled && !(c.HatchSpacing > 0) {
		return &ConfigError{Field: "hatch_spacing", Value: c.HatchSpacing, Reason: "must be positive when hatching is enabled"}
	}
	if c.Precision < 0 || c.Precision > 6 {
		return &ConfigError{Field: "precision", Value: c.Precision, Reason: "must be between 0 and 6"}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Value: c.Workers, Reason: "must not be negative"}
	}

	switch c.Units {
	case UnitsMM, UnitsInch:
	default:
		return &ConfigError{Field: "units", Value: c.Units, Reason: "expected mm or inch"}
	}
	switch c.Direction {
	case TopDown, BottomUp:
	default:
		return &ConfigError{Field: "direction", Value: c.Direction, Reason: "expected top-down or bottom-up"}
	}
	switch c.Compensation {
	case CompensateOutside, CompensateInside, CompensateNone:
	default:
		return &ConfigError{Field: "compensation", Value: c.Compensation, Reason: "expected outside, inside or none"}
	}
	switch c.Join {
	case JoinRound, JoinMiter, JoinSquare:
	default:
		return &ConfigError{Field: "join", Value: c.Join, Reason: "expected round, miter or square"}
	}
	switch c.Origin {
	case OriginModel, OriginTop, OriginBottom:
	default:
		return &ConfigError{Field: "origin", Value: c.Origin, Reason: "expected model, top or bottom"}
	}
	return nil
}

func finite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ConfigError{Field: field, Value: v, Reason: "must be finite"}
	}
	return nil
}

// setters maps yaml keys to string setters. Hyphens in keys are accepted
// as underscores so job scripts and CLI flags can use kebab-case.
var setters = map[string]func(c *Config, v string) error{
	"layer_height":       floatSetter(func(c *Config) *float64 { return &c.LayerHeight }),
	"tool_diameter":      floatSetter(func(c *Config) *float64 { return &c.ToolDiameter }),
	"kerf":               floatSetter(func(c *Config) *float64 { return &c.Kerf }),
	"cut_feed_rate":      floatSetter(func(c *Config) *float64 { return &c.CutFeedRate }),
	"plunge_feed_rate":   floatSetter(func(c *Config) *float64 { return &c.PlungeFeedRate }),
	"travel_feed_rate":   floatSetter(func(c *Config) *float64 { return &c.TravelFeedRate }),
	"safe_z":             floatSetter(func(c *Config) *float64 { return &c.SafeZ }),
	"hatch_spacing":      floatSetter(func(c *Config) *float64 { return &c.HatchSpacing }),
	"hatch_angle":        floatSetter(func(c *Config) *float64 { return &c.HatchAngle }),
	"arc_tolerance":      floatSetter(func(c *Config) *float64 { return &c.ArcTolerance }),
	"miter_limit":        floatSetter(func(c *Config) *float64 { return &c.MiterLimit }),
	"simplify_tolerance": floatSetter(func(c *Config) *float64 { return &c.SimplifyTolerance }),
	"weld_tolerance":     floatSetter(func(c *Config) *float64 { return &c.WeldTolerance }),
	"spindle_speed":      floatSetter(func(c *Config) *float64 { return &c.SpindleSpeed }),
	"z_offset":           floatSetter(func(c *Config) *float64 { return &c.ZOffset }),
	"hatch_enabled":      boolSetter(func(c *Config) *bool { return &c.HatchEnabled }),
	"work_offset":        boolSetter(func(c *Config) *bool { return &c.WorkOffset }),
	"precision":          intSetter(func(c *Config) *int { return &c.Precision }),
	"workers":            intSetter(func(c *Config) *int { return &c.Workers }),
	"job_name":           func(c *Config, v string) error { c.JobName = v; return nil },
	"units":              func(c *Config, v string) error { c.Units = Units(v); return nil },
	"direction":          func(c *Config, v string) error { c.Direction = Direction(v); return nil },
	"compensation":       func(c *Config, v string) error { c.Compensation = Compensation(v); return nil },
	"join":               func(c *Config, v string) error { c.Join = Join(v); return nil },
	"origin":             func(c *Config, v string) error { c.Origin = Origin(v); return nil },
}

func floatSetter(field func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}
}

func boolSetter(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

// NormalizeKey maps "layer-height" and "Layer_Height" to "layer_height".
func NormalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", "_"))
}

// Set assigns a single option from its string form. Unknown keys and
// unparsable values are reported as *ConfigError.
func (c *Config) Set(key, value string) error {
	k := NormalizeKey(key)
	set, ok := setters[k]
	if !ok {
		return &ConfigError{Field: key, Value: value, Reason: "unknown option"}
	}
	if err := set(c, value); err != nil {
		return &ConfigError{Field: k, Value: value, Reason: err.Error()}
	}
	return nil
}

// SetPair applies a "key=value" assignment.
func (c *Config) SetPair(pair string) error {
	key, value, ok := strings.Cut(pair, "=")
	if !ok {
		return &ConfigError{Field: pair, Value: "", Reason: "expected key=value"}
	}
	return c.Set(key, value)
}

// Keys lists the option names accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
