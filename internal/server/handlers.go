package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rcliao/emergent-mind/internal/model"
	"github.com/rcliao/emergent-mind/internal/recall"
	"github.com/rcliao/emergent-mind/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps the core error classes onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, model.ErrEmbedding):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}

func kindParam(r *http.Request) (model.Kind, error) {
	v := r.URL.Query().Get("kind")
	if v == "" {
		return "", nil
	}
	return model.ParseKind(v)
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := s.mem.Len()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "memories": n})
}

// stats handles GET /stats
func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.mem.Stats()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, st)
}

// identity handles GET /identity
func (s *Server) identity(w http.ResponseWriter, r *http.Request) {
	if s.id == nil {
		writeError(w, http.StatusNotFound, "identity not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.id.Get())
}

// weightsOf handles GET /weights/{name}
func (s *Server) weightsOf(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	ws, ok := s.weights[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown weights "+strconv.Quote(name))
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

type addRequest struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}

// addMemory handles POST /memories
func (s *Server) addMemory(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Kind == "" {
		req.Kind = string(model.KindOther)
	}
	kind, err := model.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	rec, err := s.mem.AddMemory(r.Context(), req.Text, kind)
	s.mu.Unlock()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// search handles GET /memories/search?q=&k=&kind=
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	k, err := intParam(r, "k", store.DefaultRetrieveK)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	matches, err := s.mem.Search(r.Context(), store.RetrieveParams{Query: q, K: k, Kind: kind})
	s.mu.Unlock()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// recent handles GET /memories/recent?kind=&n=, newest first. No kind means any.
func (s *Server) recent(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	texts := s.mem.Recent(kind, n)
	s.mu.Unlock()
	if texts == nil {
		texts = []string{}
	}
	writeJSON(w, http.StatusOK, texts)
}

// diverse handles GET /memories/diverse?n=&ceiling=
func (s *Server) diverse(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", recall.DefaultDiverseN)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ceiling := recall.DefaultCeiling
	if v := r.URL.Query().Get("ceiling"); v != "" {
		if ceiling, err = strconv.ParseFloat(v, 64); err != nil {
			writeError(w, http.StatusBadRequest, "invalid ceiling")
			return
		}
	}

	s.mu.Lock()
	texts := recall.SelectDiverse(s.mem, n, ceiling)
	s.mu.Unlock()
	if texts == nil {
		texts = []string{}
	}
	writeJSON(w, http.StatusOK, texts)
}

// top handles GET /memories/top?q=&k=
func (s *Server) top(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	k, err := intParam(r, "k", recall.DefaultTopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	ranked, err := recall.Rank(r.Context(), s.mem, q, k, s.rank)
	s.mu.Unlock()
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if ranked == nil {
		ranked = []recall.Ranked{}
	}
	writeJSON(w, http.StatusOK, ranked)
}
