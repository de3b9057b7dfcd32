package catalog

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowestPrice(t *testing.T) {
	tests := []struct {
		name string
		p    Pricing
		want float64
	}{
		{"nil", nil, 0},
		{"flat", FlatPricing{PerPerson: 2499}, 2499},
		{"flat negative", FlatPricing{PerPerson: -10}, 0},
		{"flat NaN", FlatPricing{PerPerson: math.NaN()}, 0},
		{"tiers min", TierPricing{Tiers: []Tier{{"SUV", 5200}, {"Sedan", 3100}, {"Tempo", 4000}}}, 3100},
		{"empty tiers", TierPricing{}, 0},
		{"negative tier", TierPricing{Tiers: []Tier{{"a", -5}, {"b", 100}}}, 0},
		{"pointer flat", &FlatPricing{PerPerson: 12}, 12},
		{"nil pointer tiers", (*TierPricing)(nil), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LowestPrice(tt.p))
		})
	}
}

func TestDecode_Tiers(t *testing.T) {
	body := []byte(`{
		"_id": "hp-42",
		"title": "Char Dham Yatra",
		"duration": "10N/11D",
		"location": {"city": "Haridwar"},
		"vehiclePrices": [{"type": "Innova", "price": "18,500"}, {"type": "Tempo", "price": 14000}]
	}`)
	it, err := Decode(KindHoliday, body)
	require.NoError(t, err)

	assert.Equal(t, "hp-42", it.ID)
	assert.Equal(t, KindHoliday, it.Kind)
	assert.Equal(t, "Char Dham Yatra", it.Title)
	assert.Equal(t, "10N/11D", it.Duration)
	assert.Equal(t, "Haridwar", it.Location)
	require.IsType(t, TierPricing{}, it.Pricing)
	assert.Equal(t, 14000.0, it.UnitPrice())
}

func TestDecode_Flat(t *testing.T) {
	it, err := Decode(KindActivity, []byte(`{"id":"exp-1","name":"River Rafting","lowestPrice":1500,"duration":3}`))
	require.NoError(t, err)
	assert.Equal(t, "exp-1", it.ID)
	assert.Equal(t, "River Rafting", it.Title)
	assert.Equal(t, "3", it.Duration)
	assert.Equal(t, FlatPricing{PerPerson: 1500}, it.Pricing)
}

func TestDecode_NoPrice(t *testing.T) {
	it, err := Decode(KindActivity, []byte(`{"_id":"exp-2","title":"Walk"}`))
	require.NoError(t, err)
	assert.Nil(t, it.Pricing)
	assert.Zero(t, it.UnitPrice())
}

func TestDecode_BadPrice(t *testing.T) {
	_, err := Decode(KindActivity, []byte(`{"_id":"x","price":"abc"}`))
	assert.Error(t, err)
}

func TestDecodeList(t *testing.T) {
	items, err := DecodeList(KindHoliday, []byte(`[{"_id":"a","price":100},{"_id":"b","roomPrices":[{"label":"Deluxe","price":900}]}]`))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 100.0, items[0].UnitPrice())
	assert.Equal(t, 900.0, items[1].UnitPrice())
}

func TestItemMarshalJSON(t *testing.T) {
	it := Item{ID: "hp-1", Kind: KindHoliday, Title: "Kashi Yatra", Pricing: TierPricing{Tiers: []Tier{
		{Label: "SUV", Price: 11000}, {Label: "Sedan", Price: 8000},
	}}}
	b, err := json.Marshal(it)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"hp-1","kind":"holiday","title":"Kashi Yatra","unitPrice":8000,
		"tiers":[{"label":"SUV","price":11000},{"label":"Sedan","price":8000}]}`, string(b))

	b, err = json.Marshal(Item{ID: "x", Kind: KindActivity})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x","kind":"activity","title":"","unitPrice":0}`, string(b))
}
