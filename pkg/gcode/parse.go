package gcode

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/chazu/cncslice/pkg/geom"
)

// Command is one parsed program line. Code is the G or M word ("G0",
// "M3"), empty for lines that only carry parameters.
type Command struct {
	Line    int
	Code    string
	Params  map[byte]float64
	Comment string
}

// Has reports whether the command carries the parameter word w.
func (c Command) Has(w byte) bool {
	_, ok := c.Params[w]
	return ok
}

// Parse reads a program into commands. Comments in parentheses or after a
// semicolon are stripped and kept on the command; a comment-only line
// becomes a command with no code. Blank lines are skipped. Parsing is
// word based and accepts the subset of G-code written by Emitter and
// similar generators.
func Parse(r io.Reader) ([]Command, error) {
	var out []Command
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		code, comment := stripComments(sc.Text())
		fields := splitWords(code)
		if len(fields) == 0 && comment == "" {
			continue
		}
		cmd := Command{Line: n, Comment: comment, Params: map[byte]float64{}}
		for _, f := range fields {
			letter := byte(unicode.ToUpper(rune(f[0])))
			if letter < 'A' || letter > 'Z' || len(f) < 2 {
				return out, fmt.Errorf("gcode: line %d: bad word %q", n, f)
			}
			if (letter == 'G' || letter == 'M') && cmd.Code == "" {
				num, err := strconv.Atoi(f[1:])
				if err != nil {
					return out, fmt.Errorf("gcode: line %d: bad word %q", n, f)
				}
				cmd.Code = fmt.Sprintf("%c%d", letter, num)
				continue
			}
			v, err := strconv.ParseFloat(f[1:], 64)
			if err != nil {
				return out, fmt.Errorf("gcode: line %d: bad word %q", n, f)
			}
			cmd.Params[letter] = v
		}
		out = append(out, cmd)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("gcode: read: %w", err)
	}
	return out, nil
}

func stripComments(s string) (code, comment string) {
	var cb, cm strings.Builder
	depth := 0
	sep := func() {
		if cm.Len() > 0 {
			cm.WriteByte(' ')
		}
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == ';' && depth == 0:
			sep()
			cm.WriteString(strings.TrimSpace(s[i+1:]))
			return cb.String(), strings.TrimSpace(cm.String())
		case c == '(':
			if depth == 0 {
				sep()
			}
			depth++
		case c == ')' && depth > 0:
			depth--
		case depth > 0:
			cm.WriteByte(c)
		default:
			cb.WriteByte(c)
		}
	}
	return cb.String(), strings.TrimSpace(cm.String())
}

// splitWords splits "G1X1.5 Y2" into letter-number words.
func splitWords(s string) []string {
	var words []string
	start := -1
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' || s[i] == '\t' || unicode.IsLetter(rune(s[i])) {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			if i < len(s) && unicode.IsLetter(rune(s[i])) {
				start = i
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	return words
}

// Summary describes the motion in a parsed program.
type Summary struct {
	Commands int
	Rapids   int // G0
	Feeds    int // G1
	Layers   int // layer comments
	// Bounds of the positions reached by G0 and G1 moves in XY, and the
	// Z range.
	Bounds     geom.Rect
	MinZ, MaxZ float64
	// Distance travelled by G0 and G1 moves once all three axes are
	// known.
	RapidDist, FeedDist float64
}

// Summarize walks the commands in absolute mode and collects statistics.
func Summarize(cmds []Command) Summary {
	s := Summary{Bounds: geom.EmptyRect(), MinZ: math.Inf(1), MaxZ: math.Inf(-1)}
	var pos geom.Point3
	var known [3]bool
	motion := ""
	for _, c := range cmds {
		s.Commands++
		if strings.HasPrefix(c.Comment, "Layer ") {
			s.Layers++
		}
		switch c.Code {
		case "G0", "G1":
			motion = c.Code
		case "":
		default:
			continue
		}
		if motion == "" || !(c.Has('X') || c.Has('Y') || c.Has('Z')) {
			continue
		}
		from := known == [3]bool{true, true, true}
		next := pos
		for i, w := range []byte("XYZ") {
			if v, ok := c.Params[w]; ok {
				switch i {
				case 0:
					next.X = v
				case 1:
					next.Y = v
				case 2:
					next.Z = v
				}
				known[i] = true
			}
		}
		var d float64
		if from {
			d = pos.Dist(next)
		}
		if motion == "G0" {
			s.Rapids++
			s.RapidDist += d
		} else {
			s.Feeds++
			s.FeedDist += d
		}
		pos = next
		if known[0] && known[1] {
			s.Bounds = s.Bounds.Union(geom.Rect{Min: pos.XY(), Max: pos.XY()})
		}
		if known[2] {
			s.MinZ = math.Min(s.MinZ, pos.Z)
			s.MaxZ = math.Max(s.MaxZ, pos.Z)
		}
	}
	return s
}
