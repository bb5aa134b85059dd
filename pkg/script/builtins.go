package script

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/cncslice/pkg/config"
	"github.com/chazu/cncslice/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites job script source for zygomys:
//
//  1. ; line comments become // comments.
//  2. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols and cannot clash with user variables.
//  3. kebab-case identifiers become snake_case (layer-height ->
//     layer_height); zygomys reads a hyphen as subtraction.
//
// String literals are copied unchanged.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)
	for i := 0; i < len(b); {
		switch c := b[i]; {
		case c == '"' || c == '`':
			j := skipString(b, i)
			out = append(out, b[i:j]...)
			i = j
		case c == ';':
			for i < len(b) && b[i] == ';' {
				i++
			}
			j := i
			for j < len(b) && b[j] != '\n' {
				j++
			}
			out = append(out, '/', '/')
			out = append(out, b[i:j]...)
			i = j
		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2
		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j
		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// skipString returns the index just past the string literal starting at
// b[i]. Double-quoted strings honour backslash escapes; backtick strings
// are raw.
func skipString(b []byte, i int) int {
	quote := b[i]
	for j := i + 1; j < len(b); j++ {
		switch {
		case quote == '"' && b[j] == '\\':
			j++
		case b[j] == quote:
			return j + 1
		}
	}
	return len(b)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpSolid refers to a solid node of the part graph.
type sexpSolid struct {
	id   graph.NodeID
	kind string // builtin that created it, for printing
	name string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	if s.name != "" {
		return fmt.Sprintf("(%s %q)", s.kind, s.name)
	}
	return fmt.Sprintf("(%s %s)", s.kind, s.id.Short())
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a graph.Vec3.
type sexpVec3 struct {
	vec graph.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds a mixed positional and keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	keys       []string // keyword names in call order
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if _, seen := result.kw[name]; !seen {
			result.keys = append(result.keys, name)
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// Trailing keyword with no value acts as a flag.
			result.kw[name] = &zygo.SexpBool{Val: true}
		}
	}
	return result
}

// numbers reads the named numeric arguments, each given by keyword or by
// position. Trailing names without a value fall back to defaults, which
// align with the end of names.
func (pa kwArgs) numbers(fn string, names []string, defaults ...float64) ([]float64, error) {
	required := len(names) - len(defaults)
	out := make([]float64, len(names))
	pos := 0
	for i, name := range names {
		var v zygo.Sexp
		if kv, ok := pa.kw[name]; ok {
			v = kv
		} else if pos < len(pa.positional) {
			v = pa.positional[pos]
			pos++
		} else if i >= required {
			out[i] = defaults[i-required]
			continue
		} else {
			return nil, fmt.Errorf("%s: missing %s", fn, name)
		}
		f, err := toFloat64(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", fn, name, err)
		}
		out[i] = f
	}
	if pos < len(pa.positional) {
		return nil, fmt.Errorf("%s: too many arguments", fn)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a plain string or a keyword name from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toOption renders a script value in the string form accepted by
// config.Config.Set.
func toOption(s zygo.Sexp) (string, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return strconv.FormatInt(v.Val, 10), nil
	case *zygo.SexpFloat:
		return strconv.FormatFloat(v.Val, 'g', -1, 64), nil
	case *zygo.SexpBool:
		return strconv.FormatBool(v.Val), nil
	case *zygo.SexpStr:
		return toString(v)
	}
	return "", fmt.Errorf("expected number, boolean or string, got %T (%s)", s, s.SexpString(nil))
}

// toSolid extracts a node reference.
func toSolid(s zygo.Sexp) (*sexpSolid, error) {
	if ref, ok := s.(*sexpSolid); ok {
		return ref, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 reads a vector given either as a (vec3 ...) value or as three
// numbers.
func toVec3(fn string, args []zygo.Sexp) (graph.Vec3, error) {
	if len(args) == 1 {
		if v, ok := args[0].(*sexpVec3); ok {
			return v.vec, nil
		}
	}
	if len(args) != 3 {
		return graph.Vec3{}, fmt.Errorf("%s: expected (vec3 x y z) or three numbers, got %d arguments", fn, len(args))
	}
	var xyz [3]float64
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return graph.Vec3{}, fmt.Errorf("%s: %c: %w", fn, "xyz"[i], err)
		}
		xyz[i] = f
	}
	return graph.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

// ---------------------------------------------------------------------------
// Graph building
// ---------------------------------------------------------------------------

// builder collects the graph and options a script produces. Node IDs are
// numbered per evaluation, so the same script always yields the same IDs.
type builder struct {
	g   *graph.DesignGraph
	cfg config.Config
	set []string
	n   int
}

func newBuilder(base config.Config) *builder {
	return &builder{g: graph.New(), cfg: base}
}

func (b *builder) job() *Job {
	return &Job{Graph: b.g, Config: b.cfg, Set: b.set}
}

func (b *builder) add(fn, name string, kind graph.NodeKind, data graph.NodeData, children ...graph.NodeID) *sexpSolid {
	id := graph.NewNodeID(fmt.Sprintf("%s/%d", fn, b.n))
	b.n++
	b.g.AddNode(&graph.Node{ID: id, Kind: kind, Name: name, Children: children, Data: data})
	return &sexpSolid{id: id, kind: fn, name: name}
}

// solids reads a list of solid arguments.
func solids(fn string, args []zygo.Sexp) ([]graph.NodeID, error) {
	ids := make([]graph.NodeID, 0, len(args))
	for i, a := range args {
		ref, err := toSolid(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", fn, i+1, err)
		}
		ids = append(ids, ref.id)
	}
	return ids, nil
}

// optName reads the optional :name keyword.
func optName(fn string, pa kwArgs) (string, error) {
	v, ok := pa.kw["name"]
	if !ok {
		return "", nil
	}
	name, err := toString(v)
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", fn, err)
	}
	return name, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// primitive registers a solid builtin whose numeric arguments are named by
// dims; data turns them into node data.
func (b *builder) primitive(fn string, dims []string, defaults []float64, data func(v []float64) graph.NodeData) builtin {
	return func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		name, err := optName(fn, pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		v, err := pa.numbers(fn, dims, defaults...)
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.add(fn, name, graph.NodePrimitive, data(v)), nil
	}
}

func (b *builder) boolean(fn string, op graph.BooleanOp) builtin {
	return func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		name, err := optName(fn, pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) < 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires at least two solids", fn)
		}
		ids, err := solids(fn, pa.positional)
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.add(fn, name, graph.NodeBoolean, graph.BooleanData{Op: op}, ids...), nil
	}
}

// transform registers translate or rotate: (fn solid x y z) or
// (fn solid (vec3 x y z)).
func (b *builder) transform(fn string, data func(v graph.Vec3) graph.TransformData) builtin {
	return func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("%s requires a solid and a vector", fn)
		}
		ref, err := toSolid(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		v, err := toVec3(fn, args[1:])
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.add(fn, "", graph.NodeTransform, data(v), ref.id), nil
	}
}

// registerBuiltins installs the job script builtins into a zygomys
// environment. They populate b during evaluation.
//
//	(job :layer-height 2 :tool-diameter 3 :hatch-enabled true)
//	(box 40 40 10) (cylinder 12 5) (cone 10 4 1) (sphere 3)
//	(translate s 20 20 -1) (rotate s (vec3 0 0 45))
//	(union a b ...) (difference a b ...) (intersection a b ...)
//	(group "name" a b ...) (part "name") (model a b ...)
//
// Source must be preprocessed with preprocessSource first so that keywords
// are recognizable.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	env.AddFunction("job", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("job takes only keyword options, got %s", pa.positional[0].SexpString(nil))
		}
		for _, key := range pa.keys {
			v, err := toOption(pa.kw[key])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("job: %s: %w", key, err)
			}
			if err := b.cfg.Set(key, v); err != nil {
				return zygo.SexpNull, fmt.Errorf("job: %w", err)
			}
			b.set = append(b.set, config.NormalizeKey(key))
		}
		return zygo.SexpNull, nil
	})

	env.AddFunction("box", b.primitive("box", []string{"x", "y", "z"}, nil, func(v []float64) graph.NodeData {
		return graph.BoxData{Size: graph.Vec3{X: v[0], Y: v[1], Z: v[2]}}
	}))
	env.AddFunction("cylinder", b.primitive("cylinder", []string{"height", "radius"}, nil, func(v []float64) graph.NodeData {
		return graph.CylinderData{Height: v[0], Radius: v[1]}
	}))
	env.AddFunction("cone", b.primitive("cone", []string{"height", "bottom", "top"}, []float64{0}, func(v []float64) graph.NodeData {
		return graph.ConeData{Height: v[0], Bottom: v[1], Top: v[2]}
	}))
	env.AddFunction("sphere", b.primitive("sphere", []string{"radius"}, nil, func(v []float64) graph.NodeData {
		return graph.SphereData{Radius: v[0]}
	}))

	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		v, err := toVec3("vec3", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{vec: v}, nil
	})

	env.AddFunction("translate", b.transform("translate", func(v graph.Vec3) graph.TransformData {
		return graph.TransformData{Translation: &v}
	}))
	env.AddFunction("rotate", b.transform("rotate", func(v graph.Vec3) graph.TransformData {
		return graph.TransformData{Rotation: &v}
	}))

	env.AddFunction("union", b.boolean("union", graph.OpUnion))
	env.AddFunction("difference", b.boolean("difference", graph.OpDifference))
	env.AddFunction("intersection", b.boolean("intersection", graph.OpIntersection))

	env.AddFunction("group", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("group requires a name and at least one solid")
		}
		groupName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("group: name: %w", err)
		}
		ids, err := solids("group", args[1:])
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.add("group", groupName, graph.NodeGroup, graph.GroupData{Description: groupName}, ids...), nil
	})

	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("part requires a name argument")
		}
		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}
		n := b.g.Lookup(partName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("part: no solid named %q", partName)
		}
		return &sexpSolid{id: n.ID, kind: "part", name: partName}, nil
	})

	env.AddFunction("model", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("model requires at least one solid")
		}
		ids, err := solids("model", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		for _, id := range ids {
			b.g.AddRoot(id)
		}
		return zygo.SexpNull, nil
	})
}
