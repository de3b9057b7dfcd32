// Package catalog holds the bookable items fetched from the catalog API.
package catalog

import (
	"encoding/json"
	"math"
)

type Kind string

const (
	KindActivity Kind = "activity"
	KindHoliday  Kind = "holiday"
)

func (k Kind) Valid() bool { return k == KindActivity || k == KindHoliday }

// Item is an activity or holiday package. Items are read-only once fetched.
type Item struct {
	ID       string  `json:"id"`
	Kind     Kind    `json:"kind"`
	Title    string  `json:"title"`
	Duration string  `json:"duration,omitempty"`
	Location string  `json:"location,omitempty"`
	Pricing  Pricing `json:"-"`
}

// Pricing is either TierPricing or FlatPricing.
type Pricing interface {
	isPricing()
}

// Tier is one price point, e.g. a vehicle or room type.
type Tier struct {
	Label string  `json:"label"`
	Price float64 `json:"price"`
}

type TierPricing struct {
	Tiers []Tier
}

type FlatPricing struct {
	PerPerson float64
}

func (TierPricing) isPricing() {}
func (FlatPricing) isPricing() {}

// LowestPrice returns the per-person price used for quoting: the cheapest tier,
// the flat price, or 0 when nothing usable is present. Never negative.
func LowestPrice(p Pricing) float64 {
	var v float64
	switch p := p.(type) {
	case TierPricing:
		if len(p.Tiers) == 0 {
			return 0
		}
		v = math.Inf(1)
		for _, t := range p.Tiers {
			if t.Price < v {
				v = t.Price
			}
		}
	case *TierPricing:
		if p == nil {
			return 0
		}
		return LowestPrice(*p)
	case FlatPricing:
		v = p.PerPerson
	case *FlatPricing:
		if p == nil {
			return 0
		}
		return LowestPrice(*p)
	default:
		return 0
	}
	return sanitize(v)
}

// MarshalJSON adds the quoted unit price and any price tiers.
func (i Item) MarshalJSON() ([]byte, error) {
	type plain Item
	out := struct {
		plain
		UnitPrice float64 `json:"unitPrice"`
		Tiers     []Tier  `json:"tiers,omitempty"`
	}{plain: plain(i), UnitPrice: i.UnitPrice()}
	if tp, ok := i.Pricing.(TierPricing); ok {
		out.Tiers = tp.Tiers
	}
	return json.Marshal(out)
}

// UnitPrice is LowestPrice of the item's pricing.
func (i Item) UnitPrice() float64 { return LowestPrice(i.Pricing) }

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
