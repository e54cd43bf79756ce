// Package server exposes the memory, identity and weight stores over a small
// read-mostly HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/rcliao/emergent-mind/internal/identity"
	"github.com/rcliao/emergent-mind/internal/recall"
	"github.com/rcliao/emergent-mind/internal/store"
	"github.com/rcliao/emergent-mind/internal/weights"
)

// Memory is the store surface the API needs beyond store.Memory.
type Memory interface {
	store.Memory
	Search(ctx context.Context, p store.RetrieveParams) ([]store.Match, error)
	Stats() *store.Stats
}

// Options wires the stores into a Server.
type Options struct {
	Memory   Memory
	Identity *identity.Store
	Weights  map[string]*weights.Store
	Rank     recall.RankOptions
	Log      zerolog.Logger
}

// Server serializes every request that touches the memory store.
type Server struct {
	mu      sync.Mutex
	mem     Memory
	id      *identity.Store
	weights map[string]*weights.Store
	rank    recall.RankOptions
	log     zerolog.Logger
}

// New returns a Server over the given stores.
func New(opts Options) *Server {
	return &Server{
		mem:     opts.Memory,
		id:      opts.Identity,
		weights: opts.Weights,
		rank:    opts.Rank,
		log:     opts.Log,
	}
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(s.log))
	r.Use(recovery(s.log))

	r.Get("/health", s.health)
	r.Get("/stats", s.stats)
	r.Get("/identity", s.identity)
	r.Get("/weights/{name}", s.weightsOf)

	r.Route("/memories", func(r chi.Router) {
		r.Post("/", s.addMemory)
		r.Get("/search", s.search)
		r.Get("/recent", s.recent)
		r.Get("/diverse", s.diverse)
		r.Get("/top", s.top)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
