package web

import (
	"net/http"

	"github.com/example/travelbook/internal/roster"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	ps, err := s.Profiles.List(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if ps == nil {
		ps = []roster.Profile{}
	}
	respondJSON(w, http.StatusOK, ps)
}

func (s *Server) handleProfileSave(w http.ResponseWriter, r *http.Request) {
	var f roster.TravelerForm
	if !decodeJSON(w, r, &f) {
		return
	}
	p, err := s.Profiles.Save(r.Context(), f)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleProfileDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.Profiles.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
