package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/travelbook/internal/catalog"
)

// Experience fetches one activity. Concurrent calls for the same id share a
// single request.
func (c *Client) Experience(ctx context.Context, id string) (catalog.Item, error) {
	return c.fetchItem(ctx, http.MethodGet, "/experience/"+url.PathEscape(id), catalog.KindActivity)
}

// HolidayPackage fetches a package's full itinerary and pricing.
func (c *Client) HolidayPackage(ctx context.Context, id string) (catalog.Item, error) {
	return c.fetchItem(ctx, http.MethodPost, "/holiday/get-holiday-package-details/"+url.PathEscape(id), catalog.KindHoliday)
}

// Item fetches an item of either kind.
func (c *Client) Item(ctx context.Context, kind catalog.Kind, id string) (catalog.Item, error) {
	if kind == catalog.KindHoliday {
		return c.HolidayPackage(ctx, id)
	}
	return c.Experience(ctx, id)
}

// fetchItem shares one upstream request between concurrent callers. The shared
// request runs detached from any single caller, bounded by the client timeout,
// and each caller stops waiting when its own ctx is done.
func (c *Client) fetchItem(ctx context.Context, method, path string, kind catalog.Kind) (catalog.Item, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(method+" "+path, func() (any, error) {
		var raw json.RawMessage
		if err := c.Do(shared, method, path, nil, &raw); err != nil {
			return catalog.Item{}, err
		}
		return catalog.Decode(kind, raw)
	})

	select {
	case <-ctx.Done():
		e := c.classify(ctx, ctx, ctx.Err())
		e.Method, e.Path = method, path
		return catalog.Item{}, e
	case res := <-ch:
		if res.Err != nil {
			return catalog.Item{}, res.Err
		}
		return res.Val.(catalog.Item), nil
	}
}

type ExperienceQuery struct {
	Category string
	Location string
	Page     int
	Limit    int
}

func (q ExperienceQuery) values() url.Values {
	v := url.Values{}
	setNonEmpty(v, "category", q.Category)
	setNonEmpty(v, "location", q.Location)
	setPositive(v, "page", q.Page)
	setPositive(v, "limit", q.Limit)
	return v
}

// Experiences lists activities matching q.
func (c *Client) Experiences(ctx context.Context, q ExperienceQuery) ([]catalog.Item, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/experience", &raw, WithQuery(q.values())); err != nil {
		return nil, err
	}
	return catalog.DecodeList(catalog.KindActivity, raw)
}

// HolidayPackages lists every holiday package.
func (c *Client) HolidayPackages(ctx context.Context) ([]catalog.Item, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/holiday/get-holiday-package/", &raw); err != nil {
		return nil, err
	}
	return catalog.DecodeList(catalog.KindHoliday, raw)
}

// CalculateBookingRequest asks the backend for the authoritative hotel and
// vehicle based package price.
type CalculateBookingRequest struct {
	HotelID         string  `json:"hotel_id"`
	RoomType        string  `json:"roomType"`
	StartDate       string  `json:"startDate"`
	EndDate         string  `json:"endDate"`
	Occupancy       int     `json:"occupancy"`
	ChildWithBed    int     `json:"childWithBed"`
	ChildWithoutBed int     `json:"childWithoutBed"`
	VehicleCost     float64 `json:"vehicleCost"`
	PriceMarkup     float64 `json:"priceMarkup"`
}

type CalculateBookingResponse struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	Days         int             `json:"days,omitempty"`
	FinalPackage float64         `json:"finalPackage,omitempty"`
	Breakdown    json.RawMessage `json:"breakdown,omitempty"`
}

func (c *Client) CalculateBooking(ctx context.Context, req CalculateBookingRequest) (CalculateBookingResponse, error) {
	var out CalculateBookingResponse
	err := c.Post(ctx, "/booking/calculateBooking", req, &out)
	return out, err
}

type SearchQuery struct {
	Query string
	Type  string
	Page  int
	Limit int
	Sort  string
}

type SearchResult struct {
	ID    string  `json:"_id"`
	Type  string  `json:"type"`
	Title string  `json:"title"`
	Price float64 `json:"price,omitempty"`
	Image string  `json:"image,omitempty"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
}

// Search runs the global cross-category search.
func (c *Client) Search(ctx context.Context, q SearchQuery) (SearchResponse, error) {
	v := url.Values{}
	v.Set("query", q.Query)
	setNonEmpty(v, "type", q.Type)
	setPositive(v, "page", q.Page)
	setPositive(v, "limit", q.Limit)
	setNonEmpty(v, "sort", q.Sort)

	var out SearchResponse
	err := c.Get(ctx, "/api/search", &out, WithQuery(v))
	return out, err
}

func setNonEmpty(v url.Values, k, s string) {
	if s != "" {
		v.Set(k, s)
	}
}

func setPositive(v url.Values, k string, n int) {
	if n > 0 {
		v.Set(k, strconv.Itoa(n))
	}
}
