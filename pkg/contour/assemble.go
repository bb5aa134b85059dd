package contour

import (
	"github.com/chazu/cncslice/pkg/geom"
)

// DefaultTolerance is the endpoint merge distance used when Assemble is
// given a non-positive tolerance.
const DefaultTolerance = 1e-6

// assembler walks segments through an endpoint adjacency map.
type assembler struct {
	ends [][2]geom.Key           // quantized A and B of each segment
	adj  map[geom.Key][]int      // segment indices touching a key, ascending
	at   map[geom.Key]geom.Point // first seen position of each key
	used []bool

	contours []Contour
	errs     []error
}

// Assemble chains unordered segments into contours. Endpoints closer than
// tol are merged. Every non-degenerate segment is used exactly once.
//
// A chain that returns to its first point is closed. A chain that passes
// through one of its own earlier points splits there, and the loop it
// closed is returned as a separate contour, so pinch points never produce
// self-intersecting output. Chains that cannot close are returned open and
// reported as *AssemblyError.
//
// The walk is deterministic: segments are taken in index order and, at a
// branch, the lowest-index segment continuing in the same direction wins.
func Assemble(segs []geom.Segment, tol float64) ([]Contour, []error) {
	if !(tol > 0) {
		tol = DefaultTolerance
	}
	a := &assembler{
		ends: make([][2]geom.Key, len(segs)),
		adj:  make(map[geom.Key][]int),
		at:   make(map[geom.Key]geom.Point),
		used: make([]bool, len(segs)),
	}
	for i, s := range segs {
		pa, pb := s.A.XY(), s.B.XY()
		ka, kb := geom.KeyOf(pa, tol), geom.KeyOf(pb, tol)
		a.ends[i] = [2]geom.Key{ka, kb}
		if ka == kb {
			a.used[i] = true
			continue
		}
		for _, e := range []struct {
			k geom.Key
			p geom.Point
		}{{ka, pa}, {kb, pb}} {
			if _, ok := a.at[e.k]; !ok {
				a.at[e.k] = e.p
			}
			a.adj[e.k] = append(a.adj[e.k], i)
		}
	}

	for i := range segs {
		if a.used[i] {
			continue
		}
		a.used[i] = true
		chain := []geom.Key{a.ends[i][0], a.ends[i][1]}

		chain, closed := a.extend(chain, true)
		if !closed {
			reverseKeys(chain)
			chain, closed = a.extend(chain, false)
			reverseKeys(chain)
		}
		a.emit(chain, closed)
	}
	return a.contours, a.errs
}

// next finds an unused segment touching k and returns it with its far
// endpoint. Segments leaving k (forward) or entering k (backward) are
// preferred so oriented input keeps its orientation through branches.
func (a *assembler) next(k geom.Key, forward bool) (int, geom.Key, bool) {
	near := 0
	if !forward {
		near = 1
	}
	for pass := 0; pass < 2; pass++ {
		for _, i := range a.adj[k] {
			if a.used[i] {
				continue
			}
			e := a.ends[i]
			if e[near] == k {
				return i, e[1-near], true
			}
			if pass == 1 {
				return i, e[near], true
			}
		}
	}
	return -1, geom.Key{}, false
}

// extend grows chain from its tail until it closes or runs out of
// segments. Loops closed against interior keys are split off and emitted.
func (a *assembler) extend(chain []geom.Key, forward bool) ([]geom.Key, bool) {
	index := make(map[geom.Key]int, len(chain))
	for i, k := range chain {
		index[k] = i
	}
	for {
		tail := chain[len(chain)-1]
		i, k, ok := a.next(tail, forward)
		if !ok {
			return chain, false
		}
		a.used[i] = true
		if k == chain[0] {
			return chain, true
		}
		if p, seen := index[k]; seen {
			loop := append([]geom.Key(nil), chain[p:]...)
			if !forward {
				reverseKeys(loop)
			}
			a.emit(loop, true)
			for _, dropped := range chain[p+1:] {
				delete(index, dropped)
			}
			chain = chain[:p+1]
			continue
		}
		index[k] = len(chain)
		chain = append(chain, k)
	}
}

func (a *assembler) emit(chain []geom.Key, closed bool) {
	pts := make([]geom.Point, len(chain))
	for i, k := range chain {
		pts[i] = a.at[k]
	}
	switch {
	case closed && len(pts) >= 3:
		a.contours = append(a.contours, Contour{Points: pts, Closed: true})
	case closed:
		a.errs = append(a.errs, &AssemblyError{
			Start: pts[0], End: pts[len(pts)-1], Segments: len(pts), Reason: "degenerate loop",
		})
	default:
		a.contours = append(a.contours, Contour{Points: pts})
		a.errs = append(a.errs, &AssemblyError{
			Start: pts[0], End: pts[len(pts)-1], Segments: len(pts) - 1,
		})
	}
}

func reverseKeys(ks []geom.Key) {
	for i, j := 0, len(ks)-1; i < j; i, j = i+1, j-1 {
		ks[i], ks[j] = ks[j], ks[i]
	}
}
