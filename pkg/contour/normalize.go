package contour

import (
	"math"
	"sort"

	"github.com/chazu/cncslice/pkg/geom"
	"github.com/dhconnelly/rtreego"
)

// boxed is a closed contour indexed by its bounding box.
type boxed struct {
	idx  int
	rect rtreego.Rect
}

func (b *boxed) Bounds() rtreego.Rect { return b.rect }

// minSide keeps R-tree rectangles valid for axis aligned slivers.
const minSide = 1e-9

func rectOf(r geom.Rect) rtreego.Rect {
	w := math.Max(r.Max.X-r.Min.X, minSide)
	h := math.Max(r.Max.Y-r.Min.Y, minSide)
	rect, err := rtreego.NewRect(rtreego.Point{r.Min.X, r.Min.Y}, []float64{w, h})
	if err != nil {
		// Unreachable for positive lengths.
		panic(err)
	}
	return rect
}

// Normalize assigns nesting depths to the closed contours and orients them
// so that even depths (outer boundaries, islands) are counter-clockwise
// and odd depths (holes) are clockwise. Open contours are copied with
// depth 0. The input order is preserved and the input is not modified.
//
// Depth is the number of larger closed contours containing the first
// vertex. Candidates are found through an R-tree of bounding boxes before
// the exact point-in-polygon test.
func Normalize(cs []Contour) []Contour {
	out := make([]Contour, len(cs))
	var closed []int
	area := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Clone()
		out[i].Depth = 0
		if c.Closed && len(c.Points) >= 3 {
			closed = append(closed, i)
			area[i] = geom.SignedArea(c.Points)
		}
	}
	if len(closed) == 0 {
		return out
	}

	bySize := append([]int(nil), closed...)
	sort.SliceStable(bySize, func(a, b int) bool {
		return math.Abs(area[bySize[a]]) > math.Abs(area[bySize[b]])
	})
	rank := make(map[int]int, len(bySize))
	tree := rtreego.NewTree(2, 4, 16)
	for r, i := range bySize {
		rank[i] = r
		tree.Insert(&boxed{idx: i, rect: rectOf(out[i].Bounds())})
	}

	for _, i := range closed {
		p := out[i].Points[0]
		probe := rectOf(geom.Rect{Min: p, Max: p})
		depth := 0
		for _, s := range tree.SearchIntersect(probe) {
			j := s.(*boxed).idx
			if rank[j] >= rank[i] {
				continue
			}
			if geom.PointInPolygon(p, out[j].Points) {
				depth++
			}
		}
		out[i].Depth = depth
		if wantCCW := depth%2 == 0; wantCCW != (area[i] > 0) {
			out[i] = out[i].Reversed()
		}
	}
	return out
}
