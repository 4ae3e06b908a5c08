package stage

import (
	"slices"
)

// Set holds descriptors of one kind, unique by name.
type Set struct {
	kind   Kind
	byName map[string]Descriptor
}

// NewSet creates an empty set for kind.
func NewSet(kind Kind) *Set {
	return &Set{kind: kind, byName: map[string]Descriptor{}}
}

// Kind returns the kind of stages held.
func (s *Set) Kind() Kind { return s.kind }

// Add inserts d, replacing any descriptor with the same name.
func (s *Set) Add(d Descriptor) {
	d.Name = CanonicalName(d.Name)
	d.Kind = s.kind
	s.byName[d.Name] = d
}

// Get returns the descriptor called name.
func (s *Set) Get(name string) (Descriptor, bool) {
	d, ok := s.byName[CanonicalName(name)]
	return d, ok
}

// Has reports whether a stage called name is present.
func (s *Set) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Len returns the number of stages.
func (s *Set) Len() int { return len(s.byName) }

// Names returns stage names in ascending byte order.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Sorted returns descriptors ordered by name.
func (s *Set) Sorted() []Descriptor {
	names := s.Names()
	out := make([]Descriptor, len(names))
	for i, name := range names {
		out[i] = s.byName[name]
	}
	return out
}
