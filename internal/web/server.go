// Package web serves the JSON API a booking front end drives: catalog reads,
// price quotes, the checkout flow and saved traveler profiles.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/travelbook/internal/apiclient"
	"github.com/example/travelbook/internal/catalog"
	"github.com/example/travelbook/internal/checkout"
	"github.com/example/travelbook/internal/roster"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Catalog is the subset of *apiclient.Client the server reads from.
type Catalog interface {
	Item(ctx context.Context, kind catalog.Kind, id string) (catalog.Item, error)
	Experiences(ctx context.Context, q apiclient.ExperienceQuery) ([]catalog.Item, error)
	HolidayPackages(ctx context.Context) ([]catalog.Item, error)
	Search(ctx context.Context, q apiclient.SearchQuery) (apiclient.SearchResponse, error)
}

type Server struct {
	Catalog  Catalog
	Sessions *checkout.Registry
	Profiles *roster.ProfileStore
	Cookies  *SessionCookie
	Retry    apiclient.RetryConfig
	Log      *slog.Logger
}

func (s *Server) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging(s.log()))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/experiences", s.handleExperiences)
		r.Get("/experiences/{id}", s.handleItem(catalog.KindActivity))
		r.Get("/holidays", s.handleHolidays)
		r.Get("/holidays/{id}", s.handleItem(catalog.KindHoliday))
		r.Get("/search", s.handleSearch)
		r.Post("/quote", s.handleQuote)

		r.Post("/checkout", s.handleCheckoutCreate)
		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/checkout", s.handleCheckoutState)
			r.Delete("/checkout", s.handleCheckoutClose)
			r.Put("/checkout/contact", s.handleContact)
			r.Post("/checkout/travelers", s.handleCount)
			r.Put("/checkout/travelers/{category}/{index}", s.handleTraveler)
			r.Post("/checkout/travelers/{category}/{index}/profile/{profileID}", s.handleApplyProfile)
			r.Post("/checkout/advance", s.handleAdvance)
			r.Post("/checkout/sections/{step}/toggle", s.handleToggle)
			r.Post("/checkout/refresh", s.handleRefresh)
			r.Post("/checkout/book", s.handleBook)
		})

		r.Get("/profiles", s.handleProfiles)
		r.Post("/profiles", s.handleProfileSave)
		r.Delete("/profiles/{id}", s.handleProfileDelete)
	})

	return otelhttp.NewHandler(r, "travelbook")
}

// fetchItem reads an item from the catalog API with retries.
func (s *Server) fetchItem(ctx context.Context, kind catalog.Kind, id string) (catalog.Item, error) {
	return apiclient.RetryValue(ctx, s.Retry, func(ctx context.Context) (catalog.Item, error) {
		return s.Catalog.Item(ctx, kind, id)
	})
}

// Start serves h on addr until ctx is done.
func Start(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
