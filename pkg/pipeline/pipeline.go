// Package pipeline runs a slicing job: layers are computed in parallel and
// handed to a single consumer that plans and emits them in Z order.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"math"
	"runtime"
	"time"

	"github.com/chazu/cncslice/pkg/config"
	"github.com/chazu/cncslice/pkg/contour"
	"github.com/chazu/cncslice/pkg/gcode"
	"github.com/chazu/cncslice/pkg/geom"
	"github.com/chazu/cncslice/pkg/layer"
	"github.com/chazu/cncslice/pkg/logging"
	"github.com/chazu/cncslice/pkg/mesh"
	"github.com/chazu/cncslice/pkg/offset"
	"github.com/chazu/cncslice/pkg/slicer"
	"github.com/chazu/cncslice/pkg/toolpath"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MaxLayers is the largest number of layers a job may schedule.
const MaxLayers = 100000

// Options carries hooks that are not part of the job configuration.
type Options struct {
	// JobID names the run in logs and in the result. A random id is used
	// when empty.
	JobID string
	// OnLayer is called from the consumer goroutine after each layer is
	// emitted, in Z order.
	OnLayer func(l layer.Layer, tp toolpath.Toolpath)
}

// Result summarizes a run. After a cancelled run it covers the layers
// emitted before the stop.
type Result struct {
	JobID    string
	Layers   int // layers emitted
	Planned  int // layers scheduled
	Warnings []layer.Warning
	// Skipped lists triangles rejected when the mesh was built.
	Skipped []*mesh.GeometryError

	CutLength    float64
	TravelLength float64
	CycleTime    time.Duration
	End          geom.Point3
}

// Heights returns the slicing heights of m placed under cfg, in machining
// order.
func Heights(m *mesh.Mesh, cfg config.Config) []float64 {
	b := m.Bounds()
	d := placement(b, cfg.Origin)
	return layer.Heights(b.Min.Z+d.Z, b.Max.Z+d.Z, cfg.LayerHeight, cfg.Direction)
}

// Place returns m moved to its machine position for cfg.Origin. With
// OriginModel, or a mesh already in place, m itself is returned.
func Place(m *mesh.Mesh, cfg config.Config) *mesh.Mesh {
	d := placement(m.Bounds(), cfg.Origin)
	if d == (v3.Vec{}) {
		return m
	}
	return m.Translate(d)
}

func placement(b sdf.Box3, o config.Origin) v3.Vec {
	switch o {
	case config.OriginTop:
		return v3.Vec{X: -b.Min.X, Y: -b.Min.Y, Z: -b.Max.Z}
	case config.OriginBottom:
		return v3.Vec{X: -b.Min.X, Y: -b.Min.Y, Z: -b.Min.Z}
	}
	return v3.Vec{}
}

// OffsetOptions maps the offset settings of cfg.
func OffsetOptions(cfg config.Config) offset.Options {
	join, err := offset.ParseJoin(string(cfg.Join))
	if err != nil {
		join = offset.JoinRound
	}
	o := offset.DefaultOptions()
	o.Join = join
	o.ArcTolerance = cfg.ArcTolerance
	o.MiterLimit = cfg.MiterLimit
	return o
}

// ComputeLayer slices m at z and builds the contours, tool paths and hatch
// passes of layer idx. It only reads m and is safe to call concurrently.
// Problems are recorded as warnings on the layer; a panic inside the
// computation leaves an empty layer with an internal warning.
func ComputeLayer(m *mesh.Mesh, idx int, z float64, cfg config.Config) (l layer.Layer) {
	l = layer.Layer{Index: idx, Z: z}
	defer func() {
		if r := recover(); r != nil {
			l.Contours, l.Paths, l.Hatches = nil, nil, nil
			l.Warn(fmt.Errorf("layer computation panicked: %v", r))
		}
	}()

	for _, ge := range m.SkippedAt(z) {
		l.Warn(ge)
	}

	segs := slicer.Slice(m, z, slicer.Options{Epsilon: slicer.DefaultEpsilon(m)})
	cs, errs := contour.Assemble(segs, cfg.WeldTolerance)
	for _, err := range errs {
		l.Warn(err)
	}
	cs = contour.Normalize(cs)
	cs = lo.FilterMap(cs, func(c contour.Contour, _ int) (contour.Contour, bool) {
		s := contour.Simplify(c, cfg.SimplifyTolerance)
		if s.Closed {
			return s, len(s.Points) >= 3 && s.Area() != 0
		}
		return s, len(s.Points) >= 2
	})
	l.Contours = cs

	opts := OffsetOptions(cfg)
	paths, errs := offset.Layer(cs, cfg.OffsetDistance(), opts)
	for _, err := range errs {
		l.Warn(err)
	}
	l.Paths = paths

	if cfg.HatchEnabled {
		closed := lo.Filter(cs, func(c contour.Contour, _ int) bool { return c.Closed })
		region, errs := offset.Layer(closed, -cfg.ToolRadius(), opts)
		for _, err := range errs {
			l.Warn(fmt.Errorf("hatch region: %w", err))
		}
		l.Hatches = toolpath.Hatch(region, cfg.HatchSpacing, cfg.HatchAngle)
	}
	return l
}

// PlanLayer plans the toolpath of l for a tool at prev.
func PlanLayer(l layer.Layer, prev geom.Point3, cfg config.Config) toolpath.Toolpath {
	return toolpath.NewPlanner(cfg).Plan(l, prev)
}

// Emit validates cfg and writes a complete program for tps to w.
func Emit(w io.Writer, tps []toolpath.Toolpath, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return gcode.Emit(w, tps, cfg)
}

// StartPosition is where the tool is assumed to be before the first
// layer: above the origin at safe Z.
func StartPosition(cfg config.Config) geom.Point3 {
	return geom.Point3{Z: cfg.SafeZ}
}

// Check reports the problems that would stop Slice or Run before any
// work starts: an invalid cfg, an empty mesh, too many layers, or a safe
// Z that does not clear the highest cut.
func Check(m *mesh.Mesh, cfg config.Config) error {
	_, _, err := prepare(m, cfg)
	return err
}

// prepare validates cfg, places m and schedules its layers. The tool must
// clear the highest cut at safe Z, and the layer count is bounded by
// MaxLayers.
func prepare(m *mesh.Mesh, cfg config.Config) (*mesh.Mesh, []float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if m == nil || m.Len() == 0 {
		return nil, nil, mesh.ErrEmptyMesh
	}
	m = Place(m, cfg)
	b := m.Bounds()
	if n := math.Ceil((b.Max.Z - b.Min.Z) / cfg.LayerHeight); n > MaxLayers {
		return nil, nil, &config.ConfigError{Field: "layer_height", Value: cfg.LayerHeight,
			Reason: fmt.Sprintf("gives %.0f layers, more than %d", n, MaxLayers)}
	}
	zs := Heights(m, cfg)
	if len(zs) > 0 {
		if top := lo.Max(zs) + cfg.ZOffset; cfg.SafeZ <= top {
			return nil, nil, &config.ConfigError{Field: "safe_z", Value: cfg.SafeZ,
				Reason: fmt.Sprintf("must be above the highest cut at z=%g", top)}
		}
	}
	return m, zs, nil
}

// produce computes every layer on a worker pool. Layer i is delivered on
// out[i], which is closed without a value if the layer was abandoned
// because ctx was cancelled or stop was closed. The returned wait function
// blocks until all workers have exited.
func produce(ctx context.Context, m *mesh.Mesh, cfg config.Config, zs []float64, stop <-chan struct{}) ([]chan layer.Layer, func()) {
	out := make([]chan layer.Layer, len(zs))
	for i := range out {
		out[i] = make(chan layer.Layer, 1)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	pool := newWorkerPool(min(workers, max(len(zs), 1)))
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer pool.close()
		for i, z := range zs {
			ok := pool.submit(func() {
				select {
				case <-stop:
					close(out[i])
					return
				default:
				}
				if ctx.Err() != nil {
					close(out[i])
					return
				}
				out[i] <- ComputeLayer(m, i, z, cfg)
				close(out[i])
			}, stop)
			if !ok {
				for _, ch := range out[i:] {
					close(ch)
				}
				return
			}
		}
	}()
	return out, func() { <-done }
}

// Slice validates cfg, places m for cfg.Origin and computes all layers in
// parallel, returned in machining order. Cancelling ctx abandons the layers not yet started and
// returns ctx.Err().
func Slice(ctx context.Context, m *mesh.Mesh, cfg config.Config) ([]layer.Layer, error) {
	m, zs, err := prepare(m, cfg)
	if err != nil {
		return nil, err
	}
	stop := make(chan struct{})
	out, wait := produce(ctx, m, cfg, zs, stop)
	defer wait()
	defer close(stop)

	layers := make([]layer.Layer, 0, len(zs))
	for _, ch := range out {
		l, ok := <-ch
		if !ok {
			return layers, ctx.Err()
		}
		layers = append(layers, l)
	}
	return layers, nil
}

// Run slices m and streams G-code for it to w.
//
// Layers are computed by a worker pool in any order. The calling goroutine
// plans and emits them strictly in Z order, each as soon as it and every
// earlier layer are ready. Cancellation is checked between layers; on
// cancel the layers already emitted are closed off with the program
// footer so the output stays a valid program, and Run returns ctx.Err()
// with the partial result.
func Run(ctx context.Context, m *mesh.Mesh, cfg config.Config, w io.Writer, opts Options) (*Result, error) {
	m, zs, err := prepare(m, cfg)
	if err != nil {
		return nil, err
	}
	res := &Result{JobID: opts.JobID, Skipped: m.Skipped(), End: StartPosition(cfg)}
	if res.JobID == "" {
		res.JobID = uuid.NewString()
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	log := logging.Logger().With("job", res.JobID)
	res.Planned = len(zs)
	b := m.Bounds()
	log.Info("slicing", "triangles", m.Len(), "layers", len(zs),
		"min_z", b.Min.Z, "max_z", b.Max.Z, "layer_height", cfg.LayerHeight)
	for _, ge := range res.Skipped {
		log.Warn("skipped triangle", "err", ge)
	}

	emitter := gcode.NewEmitter(w, cfg)
	if err := emitter.Header(); err != nil {
		return res, err
	}

	stop := make(chan struct{})
	out, wait := produce(ctx, m, cfg, zs, stop)
	defer wait()
	defer close(stop)

	planner := toolpath.NewPlanner(cfg)
	var tps []toolpath.Toolpath
	var runErr error
	for _, ch := range out {
		if runErr = ctx.Err(); runErr != nil {
			break
		}
		var l layer.Layer
		var ok bool
		select {
		case l, ok = <-ch:
		case <-ctx.Done():
		}
		if !ok {
			runErr = ctx.Err()
			break
		}
		tp := planner.Plan(l, res.End)
		if err := emitter.Layer(tp); err != nil {
			return res, err
		}
		for _, wn := range l.Warnings {
			log.Warn("layer warning", "layer", wn.Layer, "z", wn.Z, "kind", wn.Kind.String(), "err", wn.Err)
		}
		log.Debug("layer emitted", "layer", l.Index, "z", l.Z,
			"contours", len(l.Contours), "paths", len(l.Paths), "hatches", len(l.Hatches), "moves", len(tp.Moves))
		res.Layers++
		res.Warnings = append(res.Warnings, l.Warnings...)
		res.End = tp.End
		tps = append(tps, tp)
		if opts.OnLayer != nil {
			opts.OnLayer(l, tp)
		}
	}

	if err := emitter.Footer(); err != nil {
		return res, err
	}
	res.CutLength, res.TravelLength = toolpath.Lengths(tps)
	res.CycleTime = toolpath.CycleTime(tps, cfg)
	if runErr != nil {
		log.Warn("slicing cancelled", "layers", res.Layers, "of", res.Planned, "err", runErr)
		return res, runErr
	}
	log.Info("slicing done", "layers", res.Layers, "warnings", len(res.Warnings),
		"cut_length", res.CutLength, "travel_length", res.TravelLength, "cycle_time", res.CycleTime)
	return res, nil
}
