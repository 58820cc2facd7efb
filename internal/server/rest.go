package server

import (
	"net/http"
	"strconv"

	"github.com/BOSS-tools/boplot/internal/export"
	"github.com/BOSS-tools/boplot/internal/service"
	"github.com/BOSS-tools/boplot/pkg/core"
)

type healthBody struct {
	Status  string `json:"status"`
	Clients int64  `json:"clients"`
	Types   int    `json:"types"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthBody{Status: "ok", Clients: s.Clients(), Types: s.svc.Table().Len()})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var plots []core.Plot
	if err := readJSON(w, r, &plots); err != nil {
		s.writeError(w, r, err)
		return
	}
	layout, err := s.svc.Layout(r.Context(), plots)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, layout)
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	var lists core.PlayerLists
	if err := readJSON(w, r, &lists); err != nil {
		s.writeError(w, r, err)
		return
	}
	cfg, err := s.svc.Encode(r.Context(), lists)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, service.ConfigRequest{Config: cfg})
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	lists, err := s.svc.Decode(r.Context(), r.URL.Query().Get("c"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, lists)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var lists core.PlayerLists
	if err := readJSON(w, r, &lists); err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.svc.Export(r.Context(), lists)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var lists core.PlayerLists
	if err := readJSON(w, r, &lists); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.svc.Share(r.Context(), lists)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/share/"+b.ID)
	s.writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.svc.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, loaded)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be an integer"})
			return
		}
		limit = n
	}
	builds, err := s.svc.Recent(limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, builds)
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var lists core.PlayerLists
	if err := readJSON(w, r, &lists); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.svc.Solve(r.Context(), lists)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	palette, err := s.svc.Palette(r.URL.Query().Get("race"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, palette)
}

func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, export.Schema())
}
