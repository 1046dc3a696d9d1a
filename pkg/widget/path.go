package widget

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Path is the position of a widget in the tree produced by one script pass.
// Each element is the sibling index within the enclosing container, in declaration order.
type Path []int

// String renders the path as dot-separated indices (e.g. "0.1.2").
// It is also used as the map key for path lookups.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// ParsePath parses the output of Path.String.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", s, err)
		}
		p[i] = n
	}
	return p, p.Validate()
}

// Equal reports whether both paths address the same slot.
func (p Path) Equal(other Path) bool {
	return slices.Equal(p, other)
}

// Clone returns an independent copy.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return slices.Clone(p)
}

// Child returns the path of the i-th child of p.
func (p Path) Child(i int) Path {
	c := make(Path, len(p), len(p)+1)
	copy(c, p)
	return append(c, i)
}

// Parent returns the enclosing container path, or nil for a root-level widget.
func (p Path) Parent() Path {
	if len(p) <= 1 {
		return nil
	}
	return p[:len(p)-1].Clone()
}

// HasPrefix reports whether prefix is a (not necessarily proper) prefix of p.
func (p Path) HasPrefix(prefix Path) bool {
	return len(prefix) <= len(p) && slices.Equal(p[:len(prefix)], prefix)
}

// IsAncestorOf reports whether p is a proper prefix of other.
func (p Path) IsAncestorOf(other Path) bool {
	return len(p) < len(other) && other.HasPrefix(p)
}

// Validate checks that every index is non-negative and the path is not empty.
func (p Path) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, n := range p {
		if n < 0 {
			return fmt.Errorf("%w: negative index in %v", ErrInvalidPath, []int(p))
		}
	}
	return nil
}
