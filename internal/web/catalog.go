package web

import (
	"net/http"
	"strconv"

	"github.com/example/travelbook/internal/apiclient"
	"github.com/example/travelbook/internal/catalog"
	"github.com/example/travelbook/internal/pricing"
	"github.com/example/travelbook/internal/roster"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleItem(kind catalog.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := s.fetchItem(r.Context(), kind, chi.URLParam(r, "id"))
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, item)
	}
}

func (s *Server) handleExperiences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := s.Catalog.Experiences(r.Context(), apiclient.ExperienceQuery{
		Category: q.Get("category"),
		Location: q.Get("location"),
		Page:     atoi(q.Get("page")),
		Limit:    atoi(q.Get("limit")),
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleHolidays(w http.ResponseWriter, r *http.Request) {
	items, err := s.Catalog.HolidayPackages(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("query") == "" {
		respondError(w, http.StatusBadRequest, "missing_query", "query is required")
		return
	}
	res, err := s.Catalog.Search(r.Context(), apiclient.SearchQuery{
		Query: q.Get("query"),
		Type:  q.Get("type"),
		Page:  atoi(q.Get("page")),
		Limit: atoi(q.Get("limit")),
		Sort:  q.Get("sort"),
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type quoteRequest struct {
	ItemID    string        `json:"itemId"`
	Kind      catalog.Kind  `json:"kind"`
	UnitPrice *float64      `json:"unitPrice"`
	Counts    roster.Counts `json:"counts"`
}

type quoteResponse struct {
	Breakdown pricing.Breakdown `json:"breakdown"`
	Display   pricing.Amounts   `json:"display"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var b pricing.Breakdown
	switch {
	case req.ItemID != "":
		kind, ok := parseKind(req.Kind)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid_kind", "kind must be activity or holiday")
			return
		}
		item, err := s.fetchItem(r.Context(), kind, req.ItemID)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		b = pricing.ForItem(item, req.Counts)
	case req.UnitPrice != nil:
		b = pricing.Calculate(*req.UnitPrice, req.Counts)
	default:
		respondError(w, http.StatusBadRequest, "invalid_request", "itemId or unitPrice is required")
		return
	}
	respondJSON(w, http.StatusOK, quoteResponse{Breakdown: b, Display: b.Display()})
}

// parseKind defaults an empty kind to activity.
func parseKind(k catalog.Kind) (catalog.Kind, bool) {
	if k == "" {
		return catalog.KindActivity, true
	}
	return k, k.Valid()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
