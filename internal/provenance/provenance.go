// Package provenance tracks which data subject contributed each element of a
// private tensor. A Set is a deduplicated, insertion-ordered lookup of
// subject identifiers plus an index array mapping element position to an
// entry in that lookup.
package provenance

import (
	"fmt"
	"strings"
)

// Set is the per-element assignment of data subjects.
type Set struct {
	subjects []string // insertion-ordered, unique
	indexes  []int32  // element position -> index into subjects
}

// FromSubject builds a set where a single subject owns all n elements.
func FromSubject(subject string, n int) *Set {
	return &Set{
		subjects: []string{subject},
		indexes:  make([]int32, n),
	}
}

// FromSubjects builds a set from one subject identifier per element,
// deduplicating into the lookup in first-seen order.
func FromSubjects(perElement []string) *Set {
	lookup := make(map[string]int32)
	subjects := make([]string, 0, 4)
	indexes := make([]int32, len(perElement))
	for i, s := range perElement {
		idx, ok := lookup[s]
		if !ok {
			idx = int32(len(subjects))
			lookup[s] = idx
			subjects = append(subjects, s)
		}
		indexes[i] = idx
	}
	return &Set{subjects: subjects, indexes: indexes}
}

// FromParts reconstructs a set from a serialized lookup and index array.
// Every index must be valid in the lookup.
func FromParts(subjects []string, indexes []int32) (*Set, error) {
	for i, idx := range indexes {
		if idx < 0 || int(idx) >= len(subjects) {
			return nil, fmt.Errorf("provenance index %d at element %d is out of range (%d subjects)",
				idx, i, len(subjects))
		}
	}
	return &Set{
		subjects: append([]string(nil), subjects...),
		indexes:  append([]int32(nil), indexes...),
	}, nil
}

// Subjects returns the ordered unique subject lookup.
func (s *Set) Subjects() []string {
	return append([]string(nil), s.subjects...)
}

// Indexes returns the element-to-subject index array.
func (s *Set) Indexes() []int32 {
	return append([]int32(nil), s.indexes...)
}

// NumElements returns the number of indexed elements.
func (s *Set) NumElements() int {
	return len(s.indexes)
}

// NumSubjects returns the number of distinct subjects.
func (s *Set) NumSubjects() int {
	return len(s.subjects)
}

// SubjectAt returns the subject owning element i.
func (s *Set) SubjectAt(i int) string {
	return s.subjects[s.indexes[i]]
}

// Equal reports whether two sets are compatible for a direct operation:
// identical subject lookups (order-sensitive) and identical index arrays.
func (s *Set) Equal(other *Set) bool {
	if len(s.subjects) != len(other.subjects) || len(s.indexes) != len(other.indexes) {
		return false
	}
	for i := range s.subjects {
		if s.subjects[i] != other.subjects[i] {
			return false
		}
	}
	for i := range s.indexes {
		if s.indexes[i] != other.indexes[i] {
			return false
		}
	}
	return true
}

// SameLookup reports whether two sets share an identical subject lookup,
// regardless of element assignment.
func (s *Set) SameLookup(other *Set) bool {
	if len(s.subjects) != len(other.subjects) {
		return false
	}
	for i := range s.subjects {
		if s.subjects[i] != other.subjects[i] {
			return false
		}
	}
	return true
}

// Copy returns a deep copy.
func (s *Set) Copy() *Set {
	return &Set{
		subjects: append([]string(nil), s.subjects...),
		indexes:  append([]int32(nil), s.indexes...),
	}
}

// Collapse reduces the set to a single element owned by the sole subject.
// It is only well-defined for single-subject sets; a reduction across
// multiple subjects is an aggregate-privacy operation and must promote.
func (s *Set) Collapse() (*Set, error) {
	if len(s.subjects) != 1 {
		return nil, fmt.Errorf("cannot collapse provenance over %d subjects", len(s.subjects))
	}
	return FromSubject(s.subjects[0], 1), nil
}

// Concat appends another set's elements, merging the subject lookups.
func (s *Set) Concat(other *Set) *Set {
	lookup := make(map[string]int32, len(s.subjects))
	subjects := append([]string(nil), s.subjects...)
	for i, sub := range subjects {
		lookup[sub] = int32(i)
	}
	indexes := append([]int32(nil), s.indexes...)
	for _, idx := range other.indexes {
		sub := other.subjects[idx]
		mapped, ok := lookup[sub]
		if !ok {
			mapped = int32(len(subjects))
			lookup[sub] = mapped
			subjects = append(subjects, sub)
		}
		indexes = append(indexes, mapped)
	}
	return &Set{subjects: subjects, indexes: indexes}
}

func (s *Set) String() string {
	return fmt.Sprintf("ProvenanceSet{%s}", strings.Join(s.subjects, ", "))
}
