package form

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidPath is returned when a dotted path is empty or has empty segments.
	ErrInvalidPath = errors.New("form: invalid path")
	// ErrPathConflict is returned when an intermediate path segment holds a value
	// that is not a record.
	ErrPathConflict = errors.New("form: path segment is not a record")
	// ErrMissingContainer is returned by RejectMissing when an intermediate
	// record does not exist.
	ErrMissingContainer = errors.New("form: missing intermediate record")
)

// Record is the plain nested model a form reads from and writes into.
type Record = map[string]any

// Path is an ordered list of property names leading from the model root to a
// field value.
type Path []string

// ParsePath splits a dotted path such as "owner.address.city". Empty input and
// empty segments are rejected.
func ParsePath(raw string) (Path, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := strings.Split(trimmed, ".")
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, raw)
		}
		out = append(out, segment)
	}
	return out, nil
}

// MustPath mirrors ParsePath but panics on error, simplifying field literals.
func MustPath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String joins the path with dots.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Leaf returns the final segment, the property that gets assigned.
func (p Path) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns every segment before the leaf.
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return nil
	}
	return p[:len(p)-1]
}

// StepKind classifies what an intermediate path segment yields.
type StepKind int

const (
	// StepExisting means the segment resolves to an existing record.
	StepExisting StepKind = iota
	// StepMissing means the segment is absent and needs a default container.
	StepMissing
	// StepConflict means the segment holds a non-record value.
	StepConflict
)

func (k StepKind) String() string {
	switch k {
	case StepExisting:
		return "existing"
	case StepMissing:
		return "missing"
	case StepConflict:
		return "conflict"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// Step describes one intermediate segment of a path walk.
type Step struct {
	Segment string
	Kind    StepKind
	Value   any
}

// Steps walks the intermediate segments of p (the leaf excluded) against rec.
// The walk stops after the first missing or conflicting segment since nothing
// beneath it exists yet.
func (p Path) Steps(rec Record) []Step {
	parent := p.Parent()
	steps := make([]Step, 0, len(parent))
	current := rec
	for _, segment := range parent {
		value, ok := current[segment]
		if !ok || value == nil {
			steps = append(steps, Step{Segment: segment, Kind: StepMissing})
			return steps
		}
		child, ok := value.(Record)
		if !ok {
			steps = append(steps, Step{Segment: segment, Kind: StepConflict, Value: value})
			return steps
		}
		steps = append(steps, Step{Segment: segment, Kind: StepExisting, Value: child})
		current = child
	}
	return steps
}

// ContainerPolicy supplies the record created for a missing intermediate
// segment. at is the path of the container being created.
type ContainerPolicy func(at Path) (Record, error)

// CreateMissing inserts an empty record for every missing segment.
func CreateMissing(Path) (Record, error) {
	return make(Record), nil
}

// RejectMissing refuses to create intermediate records.
func RejectMissing(at Path) (Record, error) {
	return nil, fmt.Errorf("%w at %q", ErrMissingContainer, at.String())
}

// Get resolves p against rec.
func (p Path) Get(rec Record) (any, bool) {
	if len(p) == 0 || rec == nil {
		return nil, false
	}
	current := rec
	for i, segment := range p {
		value, ok := current[segment]
		if !ok {
			return nil, false
		}
		if i == len(p)-1 {
			return value, true
		}
		child, ok := value.(Record)
		if !ok {
			return nil, false
		}
		current = child
	}
	return nil, false
}

// Set returns a copy of rec with value assigned at p. The root and every record
// along p are cloned; records off the path are shared and never written to, so
// rec itself is left untouched.
func (p Path) Set(rec Record, value any, policy ContainerPolicy) (Record, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if policy == nil {
		policy = CreateMissing
	}

	root := cloneRecord(rec)
	current := root
	for i, segment := range p.Parent() {
		var next Record
		switch existing := current[segment].(type) {
		case Record:
			next = cloneRecord(existing)
		case nil:
			created, err := policy(p[:i+1])
			if err != nil {
				return nil, err
			}
			next = created
			if next == nil {
				next = make(Record)
			}
		default:
			return nil, fmt.Errorf("%w: %q holds %T", ErrPathConflict, p[:i+1].String(), existing)
		}
		current[segment] = next
		current = next
	}
	current[p.Leaf()] = value
	return root, nil
}

func cloneRecord(src Record) Record {
	out := make(Record, len(src)+1)
	for key, value := range src {
		out[key] = value
	}
	return out
}
