package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/travelbook/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/experience/exp-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"_id":"exp-1","title":"Paragliding","lowestPrice":2000}}`))
	})
	mux.HandleFunc("/experience", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Rishikesh", r.URL.Query().Get("location"))
		_, _ = w.Write([]byte(`[{"_id":"exp-1","title":"Paragliding","price":2000},{"_id":"exp-2","title":"Rafting","price":1200}]`))
	})
	mux.HandleFunc("/holiday/get-holiday-package/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"_id":"hp-1","title":"Kashi Yatra","price":9000}]}`))
	})
	mux.HandleFunc("/holiday/get-holiday-package-details/hp-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = w.Write([]byte(`{"_id":"hp-1","title":"Kashi Yatra","vehiclePrices":[{"type":"Sedan","price":8000},{"type":"SUV","price":11000}]}`))
	})
	mux.HandleFunc("/booking/calculateBooking", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "h-9", req["hotel_id"])
		assert.Equal(t, "Deluxe", req["roomType"])
		assert.Equal(t, float64(2), req["occupancy"])
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","days":4,"finalPackage":45200,"breakdown":{"hotel":30000}}`))
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "temple", q.Get("query"))
		assert.Equal(t, "holiday", q.Get("type"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "", q.Get("limit"))
		_, _ = w.Write([]byte(`{"results":[{"_id":"hp-1","type":"holiday","title":"Kashi Yatra"}],"total":1,"page":2}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExperience(t *testing.T) {
	c := newTestClient(t, catalogServer(t).URL)
	it, err := c.Experience(context.Background(), "exp-1")
	require.NoError(t, err)
	assert.Equal(t, "Paragliding", it.Title)
	assert.Equal(t, catalog.KindActivity, it.Kind)
	assert.Equal(t, 2000.0, it.UnitPrice())
}

func TestExperiences(t *testing.T) {
	c := newTestClient(t, catalogServer(t).URL)
	items, err := c.Experiences(context.Background(), ExperienceQuery{Location: "Rishikesh"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestHolidayPackages(t *testing.T) {
	c := newTestClient(t, catalogServer(t).URL)
	items, err := c.HolidayPackages(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, catalog.KindHoliday, items[0].Kind)
}

func TestHolidayPackage_UsesPostAndTiers(t *testing.T) {
	c := newTestClient(t, catalogServer(t).URL)
	it, err := c.Item(context.Background(), catalog.KindHoliday, "hp-1")
	require.NoError(t, err)
	assert.Equal(t, 8000.0, it.UnitPrice())
}

func TestItem_NotFound(t *testing.T) {
	c := newTestClient(t, catalogServer(t).URL)
	_, err := c.Experience(context.Background(), "missing")
	assert.Equal(t, 404, StatusOf(err))
}

func TestCalculateBooking(t *testing.T) {
	c := newTestClient(t, catalogServer(t).URL)
	res, err := c.CalculateBooking(context.Background(), CalculateBookingRequest{
		HotelID: "h-9", RoomType: "Deluxe", StartDate: "2026-11-01", EndDate: "2026-11-05", Occupancy: 2,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 4, res.Days)
	assert.Equal(t, 45200.0, res.FinalPackage)
	assert.JSONEq(t, `{"hotel":30000}`, string(res.Breakdown))
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, catalogServer(t).URL)
	res, err := c.Search(context.Background(), SearchQuery{Query: "temple", Type: "holiday", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Kashi Yatra", res.Results[0].Title)
}

func TestExperience_SharedFetchSurvivesCallerCancel(t *testing.T) {
	var hits atomic.Int32
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		entered <- struct{}{}
		select {
		case <-release:
		case <-r.Context().Done():
			return
		}
		_, _ = w.Write([]byte(`{"data":{"_id":"exp-1","title":"Paragliding","lowestPrice":2000}}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	type result struct {
		item catalog.Item
		err  error
	}
	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	resA := make(chan result, 1)
	go func() {
		it, err := c.Experience(ctxA, "exp-1")
		resA <- result{it, err}
	}()
	<-entered

	resB := make(chan result, 1)
	go func() {
		it, err := c.Experience(context.Background(), "exp-1")
		resB <- result{it, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case a := <-resA:
		assert.Equal(t, KindCanceled, KindOf(a.err))
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting on the shared fetch")
	}

	close(release)
	select {
	case b := <-resB:
		require.NoError(t, b.err)
		assert.Equal(t, "Paragliding", b.item.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never got the item")
	}
	assert.LessOrEqual(t, hits.Load(), int32(2))
}
