package instruction

import (
	"fmt"
	"sort"
)

type BlockID int

type BasicBlock struct {
	ID        BlockID
	RPONumber int
	Deferred  bool
}

// FrameStateDescriptor describes the interpreter frame a deoptimization
// point reconstructs. Size counts parameters, locals and stack values.
type FrameStateDescriptor struct {
	BailoutID       int
	Size            int
	ParametersCount int
}

// Height is the number of non-parameter values in the frame.
func (d *FrameStateDescriptor) Height() int {
	return d.Size - d.ParametersCount
}

const (
	noSourcePosition      = -1
	invalidSourcePosition = -2
)

// SourcePosition is a character offset into the script, or one of the
// sentinels Unknown and Invalid.
type SourcePosition struct {
	raw int
}

func UnknownPosition() SourcePosition { return SourcePosition{raw: noSourcePosition} }
func InvalidPosition() SourcePosition { return SourcePosition{raw: invalidSourcePosition} }

func NewPosition(raw int) SourcePosition { return SourcePosition{raw: raw} }

func (p SourcePosition) IsUnknown() bool { return p.raw == noSourcePosition }
func (p SourcePosition) IsInvalid() bool { return p.raw == invalidSourcePosition }
func (p SourcePosition) Raw() int        { return p.raw }

func (p SourcePosition) String() string {
	switch {
	case p.IsUnknown():
		return "unknown"
	case p.IsInvalid():
		return "invalid"
	default:
		return fmt.Sprintf("@%d", p.raw)
	}
}

// Script maps character offsets to line and column.
type Script struct {
	Name     string
	lineEnds []int
}

func NewScript(name, source string) *Script {
	s := &Script{Name: name}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			s.lineEnds = append(s.lineEnds, i)
		}
	}
	s.lineEnds = append(s.lineEnds, len(source))
	return s
}

// LineColumn returns 1-based line and column numbers for offset.
func (s *Script) LineColumn(offset int) (int, int) {
	line := sort.SearchInts(s.lineEnds, offset)
	if line >= len(s.lineEnds) {
		line = len(s.lineEnds) - 1
	}
	start := 0
	if line > 0 {
		start = s.lineEnds[line-1] + 1
	}
	return line + 1, offset - start + 1
}
