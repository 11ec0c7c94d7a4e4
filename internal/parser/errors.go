package parser

import (
	"errors"
	"fmt"
)

// ErrStructure matches every StructureError through errors.Is.
var ErrStructure = errors.New("malformed section structure")

// StructureKind classifies a heading nesting violation.
type StructureKind int

const (
	MissingLeadingHeading StructureKind = iota + 1
	InvalidRootDepth
	IllegalDepthJump
)

func (k StructureKind) String() string {
	switch k {
	case MissingLeadingHeading:
		return "missing leading heading"
	case InvalidRootDepth:
		return "invalid root depth"
	case IllegalDepthJump:
		return "illegal depth jump"
	}
	return fmt.Sprintf("StructureKind(%d)", int(k))
}

// StructureError reports malformed heading nesting. It is fatal to the
// document being parsed and carries no partial result.
type StructureError struct {
	Kind    StructureKind
	Line    int    // 1-based line number of the offending line
	Heading string // offending heading text, or the offending line for MissingLeadingHeading
	Level   int    // depth found
	Want    int    // deepest depth allowed at this point
}

func (e *StructureError) Error() string {
	switch e.Kind {
	case MissingLeadingHeading:
		return fmt.Sprintf("first line of markdown must be a heading, but got %q", e.Heading)
	case InvalidRootDepth:
		return fmt.Sprintf("first section must be level 1, but got level %d", e.Level)
	case IllegalDepthJump:
		return fmt.Sprintf("section %q is level %d, but must be level %d or lower", e.Heading, e.Level, e.Want)
	}
	return fmt.Sprintf("%s at line %d", e.Kind, e.Line)
}

func (e *StructureError) Is(target error) bool {
	return target == ErrStructure
}
