package generator

import "fmt"

// MaxHeadingLevel is the deepest heading style the target format carries
// natively. Deeper IR levels degrade to this style with a warning.
const MaxHeadingLevel = 9

// numbering IDs start above the reserved built-in range.
const firstNumberingID = 100

// Styles is the per-run style and numbering registry. It is never shared
// across conversions; parallel runs each construct their own.
type Styles struct {
	prefix string

	degradedWarned map[int]bool

	nextNum int
	byList  map[string]int // list node ID -> numbering ID
	defs    []NumberingDefinition
}

// NewStyles returns a fresh registry using the given heading style prefix
// (e.g. "Heading" yields "Heading 1".."Heading 9").
func NewStyles(prefix string) *Styles {
	return &Styles{
		prefix:         prefix,
		degradedWarned: make(map[int]bool),
		nextNum:        firstNumberingID,
		byList:         make(map[string]int),
	}
}

// HeadingStyle maps a (normalized) heading level to a style identifier.
// Levels beyond MaxHeadingLevel degrade to the deepest style; warn reports
// whether this degradation is seen for the first time at this level.
func (s *Styles) HeadingStyle(level int) (styleID string, degraded, warn bool) {
	if level > MaxHeadingLevel {
		degraded = true
		if !s.degradedWarned[level] {
			s.degradedWarned[level] = true
			warn = true
		}
		level = MaxHeadingLevel
	}
	return fmt.Sprintf("%s %d", s.prefix, level), degraded, warn
}

// NumberingFor returns the numbering definition for a List node, allocating
// one on first use. Definitions are keyed by node identity: two
// shape-identical lists never share an ID, so every list restarts at 1.
func (s *Styles) NumberingFor(listID string, ordered bool, marker string) (def NumberingDefinition, isNew bool) {
	if id, ok := s.byList[listID]; ok {
		return s.defs[id-firstNumberingID], false
	}
	def = NumberingDefinition{ID: s.nextNum, Ordered: ordered, Marker: marker}
	s.nextNum++
	s.byList[listID] = def.ID
	s.defs = append(s.defs, def)
	return def, true
}

// Definitions returns all numbering definitions allocated so far, in
// allocation order.
func (s *Styles) Definitions() []NumberingDefinition {
	return s.defs
}
