package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// wireItem covers the field spellings the catalog API uses for experiences and
// holiday packages. Anything not listed is ignored.
type wireItem struct {
	ID        string          `json:"_id"`
	AltID     string          `json:"id"`
	Title     string          `json:"title"`
	Name      string          `json:"name"`
	Duration  json.RawMessage `json:"duration"`
	Location  json.RawMessage `json:"location"`
	Lowest    *flexFloat      `json:"lowestPrice"`
	Price     *flexFloat      `json:"price"`
	Prices    []wireTier      `json:"prices"`
	Vehicles  []wireTier      `json:"vehiclePrices"`
	RoomTypes []wireTier      `json:"roomPrices"`
}

type wireTier struct {
	Label string    `json:"label"`
	Type  string    `json:"type"`
	Name  string    `json:"name"`
	Price flexFloat `json:"price"`
}

// flexFloat accepts numbers and numeric strings ("2,499" included).
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(str), ",", "")
		if s == "" {
			*f = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("price %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

// Decode builds an Item of the given kind from a catalog API payload.
func Decode(kind Kind, data []byte) (Item, error) {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return Item{}, fmt.Errorf("decode %s: %w", kind, err)
	}
	return w.item(kind), nil
}

// DecodeList decodes a JSON array of items.
func DecodeList(kind Kind, data []byte) ([]Item, error) {
	var ws []wireItem
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", kind, err)
	}
	out := make([]Item, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.item(kind))
	}
	return out, nil
}

func (w wireItem) item(kind Kind) Item {
	it := Item{
		ID:       firstNonEmpty(w.ID, w.AltID),
		Kind:     kind,
		Title:    firstNonEmpty(w.Title, w.Name),
		Duration: looseString(w.Duration),
		Location: looseString(w.Location),
	}

	var tiers []Tier
	for _, group := range [][]wireTier{w.Prices, w.Vehicles, w.RoomTypes} {
		for _, t := range group {
			tiers = append(tiers, Tier{
				Label: firstNonEmpty(t.Label, t.Type, t.Name),
				Price: float64(t.Price),
			})
		}
	}
	switch {
	case len(tiers) > 0:
		it.Pricing = TierPricing{Tiers: tiers}
	case w.Lowest != nil:
		it.Pricing = FlatPricing{PerPerson: float64(*w.Lowest)}
	case w.Price != nil:
		it.Pricing = FlatPricing{PerPerson: float64(*w.Price)}
	}
	return it
}

// looseString renders strings as-is and objects like {"city": "..."} or numbers
// as their most readable scalar.
func looseString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, k := range []string{"name", "city", "address", "label"} {
			if v, ok := obj[k].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}
	return strings.Trim(string(raw), `"`)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
