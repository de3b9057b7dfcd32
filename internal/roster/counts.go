// Package roster tracks how many travelers of each category are booked and
// the per-traveler details collected for them.
package roster

import "fmt"

type Category string

const (
	Adults   Category = "adults"
	Seniors  Category = "seniors"
	Children Category = "children"
)

// Categories lists every category in display order.
var Categories = []Category{Adults, Seniors, Children}

func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case Adults, Seniors, Children:
		return c, nil
	}
	return "", fmt.Errorf("unknown traveler category %q", s)
}

// MaxActivityTravelers caps the party size for activity bookings.
const MaxActivityTravelers = 15

type Counts struct {
	Adults   int `json:"adults"`
	Seniors  int `json:"seniors"`
	Children int `json:"children"`
}

func (c Counts) Total() int { return c.Adults + c.Seniors + c.Children }

func (c Counts) Get(cat Category) int {
	switch cat {
	case Adults:
		return c.Adults
	case Seniors:
		return c.Seniors
	case Children:
		return c.Children
	}
	return 0
}

func (c *Counts) set(cat Category, n int) {
	switch cat {
	case Adults:
		c.Adults = n
	case Seniors:
		c.Seniors = n
	case Children:
		c.Children = n
	}
}

// minFor is the floor for a category: one adult must always travel.
func minFor(cat Category) int {
	if cat == Adults {
		return 1
	}
	return 0
}

// Step applies delta (normally +1 or -1) to cat and clamps the result so that
// adults stay >= 1, the others >= 0 and, when max > 0, the total stays <= max.
// A delta that cannot be applied leaves the counts unchanged.
func (c Counts) Step(cat Category, delta, max int) Counts {
	cur := c.Get(cat)
	next := cur + delta
	if lo := minFor(cat); next < lo {
		next = lo
	}
	if max > 0 && delta > 0 {
		if room := max - (c.Total() - cur); next > room {
			next = room
		}
		if next < cur {
			next = cur
		}
	}
	out := c
	out.set(cat, next)
	return out
}
