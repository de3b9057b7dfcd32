package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/example/travelbook/internal/catalog"
	"github.com/example/travelbook/internal/checkout"
	"github.com/example/travelbook/internal/roster"
	"github.com/go-chi/chi/v5"
)

type createCheckoutRequest struct {
	ItemID string       `json:"itemId"`
	Kind   catalog.Kind `json:"kind"`
}

// handleCheckoutCreate starts a fresh checkout. Any session already bound to
// the cookie is torn down, so the hold restarts on every new checkout.
func (s *Server) handleCheckoutCreate(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, ok := parseKind(req.Kind)
	if !ok || req.ItemID == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "itemId and a valid kind are required")
		return
	}
	item, err := s.fetchItem(r.Context(), kind, req.ItemID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	if old, ok := s.Cookies.Get(r); ok {
		_ = s.Sessions.Close(old)
	}
	sess := s.Sessions.Create(item)
	if err := s.Cookies.Set(w, r, sess.ID()); err != nil {
		_ = s.Sessions.Close(sess.ID())
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess.State())
}

func (s *Server) session(r *http.Request) (*checkout.Session, error) {
	id, _ := sessionIDFromContext(r.Context())
	return s.Sessions.Get(id)
}

// withSession adapts a handler that needs the caller's checkout session.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*checkout.Session)) {
	sess, err := s.session(r)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	fn(sess)
}

func (s *Server) handleCheckoutState(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *checkout.Session) {
		respondJSON(w, http.StatusOK, sess.State())
	})
}

func (s *Server) handleCheckoutClose(w http.ResponseWriter, r *http.Request) {
	id, _ := sessionIDFromContext(r.Context())
	s.Cookies.Clear(w)
	if err := s.Sessions.Close(id); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *checkout.Session) {
		var c checkout.Contact
		if !decodeJSON(w, r, &c) {
			return
		}
		if err := sess.SetContact(c); err != nil {
			s.respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, sess.State())
	})
}

type countRequest struct {
	Category string `json:"category"`
	Delta    int    `json:"delta"`
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *checkout.Session) {
		var req countRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		cat, err := roster.ParseCategory(req.Category)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_category", err.Error())
			return
		}
		if req.Delta != 1 && req.Delta != -1 {
			respondError(w, http.StatusBadRequest, "invalid_delta", "delta must be 1 or -1")
			return
		}
		if _, err := sess.SetCount(cat, req.Delta); err != nil {
			s.respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, sess.State())
	})
}

// travelerSlot reads the {category}/{index} path parameters.
func travelerSlot(w http.ResponseWriter, r *http.Request) (roster.Category, int, bool) {
	cat, err := roster.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_category", err.Error())
		return "", 0, false
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_traveler", "index must be a number")
		return "", 0, false
	}
	return cat, idx, true
}

func (s *Server) handleTraveler(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *checkout.Session) {
		cat, idx, ok := travelerSlot(w, r)
		if !ok {
			return
		}
		var f roster.TravelerForm
		if !decodeJSON(w, r, &f) {
			return
		}
		if err := sess.UpdateTraveler(cat, idx, f); err != nil {
			s.respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, sess.State())
	})
}

func (s *Server) handleApplyProfile(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *checkout.Session) {
		cat, idx, ok := travelerSlot(w, r)
		if !ok {
			return
		}
		if err := sess.ApplyProfile(r.Context(), s.Profiles, cat, idx, chi.URLParam(r, "profileID")); err != nil {
			s.respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, sess.State())
	})
}

type advanceRequest struct {
	Step checkout.Step `json:"step"`
}

type advanceResponse struct {
	Transition checkout.Transition `json:"transition"`
	State      checkout.State      `json:"state"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *checkout.Session) {
		var req advanceRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		tr, errs := sess.Advance(req.Step)
		if len(errs) > 0 {
			respondValidation(w, errs)
			return
		}
		respondJSON(w, http.StatusOK, advanceResponse{Transition: tr, State: sess.State()})
	})
}

type toggleResponse struct {
	Open  bool           `json:"open"`
	State checkout.State `json:"state"`
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *checkout.Session) {
		n, err := strconv.Atoi(chi.URLParam(r, "step"))
		if err != nil || !checkout.Step(n).Valid() {
			respondError(w, http.StatusBadRequest, "invalid_step", "step must be 1, 2 or 3")
			return
		}
		open := sess.ToggleSection(checkout.Step(n))
		respondJSON(w, http.StatusOK, toggleResponse{Open: open, State: sess.State()})
	})
}

// retryingSource lets a session refresh through the server's retry policy.
type retryingSource struct{ s *Server }

func (rs retryingSource) Item(ctx context.Context, kind catalog.Kind, id string) (catalog.Item, error) {
	return rs.s.fetchItem(ctx, kind, id)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *checkout.Session) {
		if err := sess.Refresh(r.Context(), retryingSource{s}); err != nil {
			s.respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, sess.State())
	})
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *checkout.Session) {
		o, err := sess.BookNow()
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, o)
	})
}
