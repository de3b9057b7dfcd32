package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/travelbook/internal/apiclient"
	"github.com/example/travelbook/internal/checkout"
	"github.com/example/travelbook/internal/kv"
	"github.com/example/travelbook/internal/ratelimit"
	"github.com/example/travelbook/internal/roster"
	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv      *httptest.Server
	client   *http.Client
	sessions *checkout.Registry
	upstream *atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/experience/exp-1", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"data":{"_id":"exp-1","title":"Paragliding","lowestPrice":2000}}`))
	})
	mux.HandleFunc("/experience/flaky", func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"_id":"flaky","title":"Rafting","price":1200}`))
	})
	mux.HandleFunc("/holiday/get-holiday-package/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"hp-1","title":"Kashi Yatra","price":9000}]`))
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"_id":"hp-1","type":"holiday","title":"Kashi Yatra"}],"total":1,"page":1}`))
	})
	upstream := httptest.NewServer(mux)
	t.Cleanup(upstream.Close)

	api, err := apiclient.New(upstream.URL,
		apiclient.WithHTTPClient(upstream.Client()),
		apiclient.WithLogger(log),
		apiclient.WithLimiter(ratelimit.New(1000, time.Minute)),
	)
	require.NoError(t, err)

	sessions := checkout.NewRegistry(context.Background(), checkout.RegistryConfig{Log: log}, checkout.WithLogger(log))
	t.Cleanup(sessions.CloseAll)
	s := &Server{
		Catalog:  api,
		Sessions: sessions,
		Profiles: roster.NewProfileStore(kv.NewMemory()),
		Cookies:  NewSessionCookie(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32)),
		Retry:    apiclient.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond},
		Log:      log,
	}
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{srv: srv, client: &http.Client{Jar: jar}, sessions: sessions, upstream: &hits}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	resp, err := e.client.Get(e.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQuote(t *testing.T) {
	e := newTestEnv(t)
	var out quoteResponse
	status := e.do(t, http.MethodPost, "/api/quote", map[string]any{
		"unitPrice": 2000,
		"counts":    map[string]int{"adults": 2, "seniors": 1},
	}, &out)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(6000), out.Display.Subtotal)
	assert.Equal(t, int64(1080), out.Display.TaxAmount)
	assert.Equal(t, int64(7080), out.Display.Total)

	status = e.do(t, http.MethodPost, "/api/quote", map[string]any{
		"itemId": "exp-1",
		"counts": map[string]int{"adults": 1},
	}, &out)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2000.0, out.Breakdown.Subtotal)

	var er ErrorResponse
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/quote", map[string]any{}, &er))
	assert.Equal(t, "invalid_request", er.Code)
}

func TestCatalogRoutes(t *testing.T) {
	e := newTestEnv(t)
	var items []map[string]any
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/holidays", nil, &items))
	assert.Len(t, items, 1)

	var item map[string]any
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/experiences/flaky", nil, &item))
	assert.Equal(t, "Rafting", item["title"], "503 is retried")

	var er ErrorResponse
	require.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/experiences/missing", nil, &er))
	assert.Equal(t, "http", er.Code)
	assert.Equal(t, http.StatusNotFound, er.Status)

	var res apiclient.SearchResponse
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/search?query=kashi", nil, &res))
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/search", nil, &er))
}

func TestCheckoutRequiresSession(t *testing.T) {
	e := newTestEnv(t)
	var er ErrorResponse
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/checkout", nil, &er))
	assert.Equal(t, "no_session", er.Code)
}

func TestCheckoutFlow(t *testing.T) {
	e := newTestEnv(t)

	var st checkout.State
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/checkout",
		map[string]string{"itemId": "exp-1", "kind": "activity"}, &st))
	assert.Equal(t, checkout.StepContact, st.Step)
	assert.Equal(t, 1, e.sessions.Len())

	contact := checkout.Contact{
		FirstName: "Asha", LastName: "Rao",
		Email: "not-an-email", ConfirmEmail: "not-an-email", Phone: "9876543210",
	}
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/api/checkout/contact", contact, &st))

	var er ErrorResponse
	require.Equal(t, http.StatusUnprocessableEntity, e.do(t, http.MethodPost, "/api/checkout/advance",
		map[string]int{"step": 1}, &er))
	assert.Contains(t, er.Fields, "email")

	contact.Email, contact.ConfirmEmail = "asha@example.com", "asha@example.com"
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/api/checkout/contact", contact, &st))
	var adv advanceResponse
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/checkout/advance", map[string]int{"step": 1}, &adv))
	assert.Equal(t, checkout.StepItemDetails, adv.Transition.To)
	assert.True(t, adv.Transition.ScrollToTop)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/checkout/travelers",
		map[string]any{"category": "adults", "delta": 1}, &st))
	assert.Equal(t, 2, st.Counts.Adults)
	assert.Len(t, st.Travelers[roster.Adults], 2)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/checkout/travelers",
		map[string]any{"category": "pets", "delta": 1}, &er))

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPut, "/api/checkout/travelers/adults/1",
		roster.TravelerForm{FirstName: "Ravi", LastName: "Rao"}, &st))
	assert.Equal(t, "Ravi", st.Travelers[roster.Adults][1].FirstName)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPut, "/api/checkout/travelers/adults/5",
		roster.TravelerForm{FirstName: "X"}, &er))
	assert.Equal(t, "invalid_traveler", er.Code)

	var prof roster.Profile
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/profiles",
		roster.TravelerForm{FirstName: "Meera", LastName: "Iyer"}, &prof))
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost,
		"/api/checkout/travelers/adults/0/profile/"+prof.ID, nil, &st))
	assert.Equal(t, "Meera", st.Travelers[roster.Adults][0].FirstName)

	var tg toggleResponse
	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/checkout/sections/1/toggle", nil, &tg))
	assert.True(t, tg.Open)
	assert.Equal(t, checkout.StepItemDetails, tg.State.Step)

	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodPost, "/api/checkout/book", nil, &er))

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/checkout/advance", map[string]int{"step": 2}, &adv))
	assert.Equal(t, checkout.StepPayment, adv.State.Step)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodPost, "/api/checkout/refresh", nil, &st))

	var o checkout.Order
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/checkout/book", nil, &o))
	assert.Equal(t, int64(4720), o.Display.Total)
	assert.Equal(t, "asha@example.com", o.Contact.Email)

	require.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/checkout", nil, nil))
	assert.Equal(t, 0, e.sessions.Len())
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/checkout", nil, &er))
}

func TestCheckoutCreateReplacesSession(t *testing.T) {
	e := newTestEnv(t)
	var first, second checkout.State
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/checkout", map[string]string{"itemId": "exp-1"}, &first))
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/checkout", map[string]string{"itemId": "exp-1"}, &second))
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, e.sessions.Len())

	var er ErrorResponse
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/checkout", map[string]string{"itemId": "exp-1", "kind": "cruise"}, &er))
}

func TestProfiles(t *testing.T) {
	e := newTestEnv(t)
	var list []roster.Profile
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/profiles", nil, &list))
	assert.Empty(t, list)

	var er ErrorResponse
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/profiles", roster.TravelerForm{}, &er))
	assert.Equal(t, "blank_profile", er.Code)

	var p roster.Profile
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/profiles", roster.TravelerForm{FirstName: "Asha", LastName: "Rao"}, &p))
	assert.Equal(t, "Asha Rao", p.Name)

	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/profiles", nil, &list))
	assert.Len(t, list, 1)

	require.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/api/profiles/"+p.ID, nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/api/profiles/"+p.ID, nil, &er))
}

func TestSessionCookieRoundTrip(t *testing.T) {
	c := NewSessionCookie(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, c.Set(rec, req, "sid-1"))

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range rec.Result().Cookies() {
		req2.AddCookie(ck)
	}
	id, ok := c.Get(req2)
	assert.True(t, ok)
	assert.Equal(t, "sid-1", id)

	other := NewSessionCookie(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))
	_, ok = other.Get(req2)
	assert.False(t, ok, "cookie from another key pair is rejected")
}
