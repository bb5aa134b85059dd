// Package toolpath turns the contours of a layer into an ordered list of
// machine moves.
package toolpath

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/cncslice/pkg/config"
	"github.com/chazu/cncslice/pkg/contour"
	"github.com/chazu/cncslice/pkg/geom"
	"github.com/chazu/cncslice/pkg/layer"
	"github.com/samber/lo"
)

// MoveKind classifies a move by what the tool does during it.
type MoveKind int

const (
	Travel  MoveKind = iota // rapid at safe Z
	Plunge                  // down into the material
	Cut                     // in the material at layer Z
	Retract                 // up to safe Z
)

func (k MoveKind) String() string {
	switch k {
	case Travel:
		return "travel"
	case Plunge:
		return "plunge"
	case Cut:
		return "cut"
	case Retract:
		return "retract"
	default:
		return fmt.Sprintf("MoveKind(%d)", int(k))
	}
}

// Move is a straight move to To at Feed units per minute.
type Move struct {
	Kind MoveKind
	To   geom.Point3
	Feed float64
}

// Toolpath is the ordered list of moves for one layer. Start is the tool
// position before the first move and End the position after the last.
type Toolpath struct {
	Layer int
	Z     float64
	Moves []Move
	Start geom.Point3
	End   geom.Point3
}

// Empty reports whether the toolpath has no moves.
func (tp Toolpath) Empty() bool { return len(tp.Moves) == 0 }

// Lengths returns the distance moved while cutting (plunges included) and
// while travelling (retracts included).
func (tp Toolpath) Lengths() (cut, travel float64) {
	pos := tp.Start
	for _, m := range tp.Moves {
		d := pos.Dist(m.To)
		switch m.Kind {
		case Plunge, Cut:
			cut += d
		default:
			travel += d
		}
		pos = m.To
	}
	return cut, travel
}

// Planner orders a layer's paths and expands them into moves.
type Planner struct {
	Config config.Config
}

// NewPlanner returns a planner for cfg.
func NewPlanner(cfg config.Config) *Planner {
	return &Planner{Config: cfg}
}

// Plan builds the toolpath of l for a tool currently at prev.
//
// Paths are cut in order of nesting depth, outlines before the holes
// inside them. Within one depth the next path is the one whose nearest
// start point is closest to the tool; closed loops are rotated to start
// there and open paths may be run backwards. Ties go to the lower index.
// Hatch passes follow in the order they are stored on the layer.
//
// Every path is framed as travel at safe Z, plunge, cuts, retract. Closed
// paths end where they started.
func (p *Planner) Plan(l layer.Layer, prev geom.Point3) Toolpath {
	tp := Toolpath{Layer: l.Index, Z: l.Z, Start: prev, End: prev}
	if l.Empty() {
		return tp
	}
	cfg := p.Config
	z := l.Z + cfg.ZOffset
	b := builder{cfg: cfg, z: z, pos: prev}
	b.move(Retract, prev.X, prev.Y, cfg.SafeZ, cfg.TravelFeedRate)

	groups := lo.GroupBy(lo.Filter(l.Paths, func(c contour.Contour, _ int) bool {
		return len(c.Points) > 0
	}), func(c contour.Contour) int { return c.Depth })
	depths := lo.Keys(groups)
	sort.Ints(depths)
	for _, d := range depths {
		remaining := groups[d]
		for len(remaining) > 0 {
			i, pts := nearest(remaining, b.pos.XY())
			b.path(pts, remaining[i].Closed)
			remaining = append(remaining[:i:i], remaining[i+1:]...)
		}
	}
	for _, h := range l.Hatches {
		b.path([]geom.Point{h.A, h.B}, false)
	}

	tp.Moves = b.moves
	tp.End = b.pos
	return tp
}

// nearest picks the path to cut next from pos and returns its index and
// its points in cutting order.
func nearest(cs []contour.Contour, pos geom.Point) (int, []geom.Point) {
	best, bestDist := 0, math.Inf(1)
	var bestPts []geom.Point
	for i, c := range cs {
		var d float64
		var pts []geom.Point
		if c.Closed {
			j := 0
			d = math.Inf(1)
			for k, q := range c.Points {
				if dk := q.Dist(pos); dk < d {
					j, d = k, dk
				}
			}
			pts = c.Rotated(j).Points
		} else {
			d = c.Points[0].Dist(pos)
			pts = c.Points
			if e := c.Points[len(c.Points)-1].Dist(pos); e < d {
				d = e
				pts = c.Reversed().Points
			}
		}
		if d < bestDist {
			best, bestDist, bestPts = i, d, pts
		}
	}
	return best, bestPts
}

type builder struct {
	cfg   config.Config
	z     float64
	pos   geom.Point3
	moves []Move
}

func (b *builder) move(kind MoveKind, x, y, z, feed float64) {
	to := geom.Point3{X: x, Y: y, Z: z}
	b.moves = append(b.moves, Move{Kind: kind, To: to, Feed: feed})
	b.pos = to
}

func (b *builder) path(pts []geom.Point, closed bool) {
	cfg := b.cfg
	start := pts[0]
	b.move(Travel, start.X, start.Y, cfg.SafeZ, cfg.TravelFeedRate)
	b.move(Plunge, start.X, start.Y, b.z, cfg.PlungeFeedRate)
	for _, q := range pts[1:] {
		b.move(Cut, q.X, q.Y, b.z, cfg.CutFeedRate)
	}
	if closed {
		b.move(Cut, start.X, start.Y, b.z, cfg.CutFeedRate)
	}
	b.move(Retract, b.pos.X, b.pos.Y, cfg.SafeZ, cfg.TravelFeedRate)
}
