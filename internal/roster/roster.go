package roster

import (
	"errors"
	"fmt"

	"github.com/example/travelbook/internal/catalog"
)

var ErrNoTraveler = errors.New("no such traveler")

// Roster holds the traveler counts for one booking and one form per traveler.
// It is not safe for concurrent use; the owning checkout session serialises access.
type Roster struct {
	kind   catalog.Kind
	counts Counts
	slots  map[Category][]TravelerForm
}

// New starts a roster with a single adult.
func New(kind catalog.Kind) *Roster {
	r := &Roster{
		kind:  kind,
		slots: make(map[Category][]TravelerForm, len(Categories)),
	}
	r.resize(Counts{Adults: 1})
	return r
}

func (r *Roster) Kind() catalog.Kind { return r.kind }
func (r *Roster) Counts() Counts     { return r.counts }

// MaxTravelers is the aggregate cap, 0 meaning unbounded.
func (r *Roster) MaxTravelers() int {
	if r.kind == catalog.KindHoliday {
		return 0
	}
	return MaxActivityTravelers
}

// SetCount applies delta to cat, clamped to the roster bounds, and resizes the
// traveler forms to match. Out-of-range requests are clamped silently.
func (r *Roster) SetCount(cat Category, delta int) Counts {
	r.resize(r.counts.Step(cat, delta, r.MaxTravelers()))
	return r.counts
}

// Travelers returns a copy of the forms for cat.
func (r *Roster) Travelers(cat Category) []TravelerForm {
	return append([]TravelerForm(nil), r.slots[cat]...)
}

// Update replaces the form at index for cat.
func (r *Roster) Update(cat Category, index int, f TravelerForm) error {
	if index < 0 || index >= len(r.slots[cat]) {
		return fmt.Errorf("%w: %s[%d]", ErrNoTraveler, cat, index)
	}
	r.slots[cat][index] = f
	return nil
}

// Complete reports whether a form exists for every declared traveler.
func (r *Roster) Complete() bool {
	for _, c := range Categories {
		if len(r.slots[c]) != r.counts.Get(c) {
			return false
		}
	}
	return true
}

// MissingNames lists "category[index]" keys of forms without a first or last name.
func (r *Roster) MissingNames() []string {
	var out []string
	for _, c := range Categories {
		for i, f := range r.slots[c] {
			if f.FirstName == "" || f.LastName == "" {
				out = append(out, fmt.Sprintf("%s[%d]", c, i))
			}
		}
	}
	return out
}

// resize grows each category with blank forms or trims from the tail.
func (r *Roster) resize(next Counts) {
	for _, c := range Categories {
		n := next.Get(c)
		cur := r.slots[c]
		switch {
		case len(cur) < n:
			cur = append(cur, make([]TravelerForm, n-len(cur))...)
		case len(cur) > n:
			cur = cur[:n:n]
		}
		r.slots[c] = cur
	}
	r.counts = next
}
