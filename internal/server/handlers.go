package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/kbeval/internal/embedding"
	"github.com/hyperjump/kbeval/internal/expr"
	"github.com/hyperjump/kbeval/internal/lexicon"
	"github.com/hyperjump/kbeval/internal/models"
	"github.com/hyperjump/kbeval/internal/search"
	"github.com/hyperjump/kbeval/internal/storage"
	"go.uber.org/zap"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
	suggestionCount = 5
)

func (s *Server) handleCalc(w http.ResponseWriter, r *http.Request) {
	var req models.CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("calc request", zap.String("expr", req.Expr), zap.Int("k", req.K))
	resp, err := s.engine.Neighbours(r.Context(), &req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req models.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("score request", zap.String("head", req.Head), zap.String("relation", req.Relation))
	resp, err := s.engine.Score(r.Context(), &req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSim(w http.ResponseWriter, r *http.Request) {
	var req models.SimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := s.engine.Sim(r.Context(), &req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRelation(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid relation name")
		return
	}
	k, err := intParam(r, "k", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.engine.Role(r.Context(), name, min(k, models.MaxTopK))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type composeResponse struct {
	First     string                  `json:"first"`
	Second    string                  `json:"second"`
	Relations []models.ScoredRelation `json:"similar_relations"`
	Target    string                  `json:"target,omitempty"`
	Rank      float64                 `json:"rank,omitempty"`
}

func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	r1, err1 := pathParam(r, "r1")
	r2, err2 := pathParam(r, "r2")
	if err1 != nil || err2 != nil {
		s.respondError(w, http.StatusBadRequest, "invalid relation name")
		return
	}
	k, err := intParam(r, "k", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sims, err := s.engine.CompRole(r.Context(), r1, r2, min(k, models.MaxTopK))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := composeResponse{First: r1, Second: r2, Relations: sims}
	if target := r.URL.Query().Get("target"); target != "" {
		rank, err := s.engine.CompRoleRank(r1, r2, target)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		resp.Target, resp.Rank = target, rank
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "run storage not enabled")
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", defaultRunLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit = min(limit, maxRunLimit)
	runs, err := s.storage.ListRuns(r.Context(), r.URL.Query().Get("model_dir"), offset, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	total, err := s.storage.CountRuns(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs, "total": total})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "run storage not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.storage.GetRun(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if r.URL.Query().Get("ranks") != "true" {
		s.respondJSON(w, http.StatusOK, run)
		return
	}
	ranks, err := s.storage.GetRunRanks(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"run": run, "ranks": ranks})
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		s.respondError(w, http.StatusNotImplemented, "run storage not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete run request", zap.String("id", id))
	if err := s.storage.DeleteRun(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	set := s.engine.Set()
	lex := set.Lexicon()
	resp := map[string]interface{}{
		"entities":  lex.NumEntities(),
		"relations": lex.NumRelations(),
		"dimension": set.Dim(),
		"code_size": set.CodeLen(),
	}

	if s.storage != nil {
		runs, err := s.storage.CountRuns(r.Context())
		if err != nil {
			s.logger.Error("status: count runs failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["runs"] = runs
	}

	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"model_dir":     s.config.Model.Dir,
			"dataset_dir":   s.config.Dataset.Dir,
			"database_path": s.config.Storage.DatabasePath,
			"split":         s.config.Evaluation.Split,
		}
		diskBytes, err := storage.DiskUsageBytes(s.config.Model.Dir, s.config.Storage.DatabasePath)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// fail maps err to a status code: unknown names and runs are 404, bad
// expressions and degenerate vectors 400, everything else 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var syntaxErr *expr.SyntaxError
	switch {
	case errors.Is(err, lexicon.ErrNotFound):
		s.respondJSON(w, http.StatusNotFound, models.ErrorResponse{
			Error:       err.Error(),
			Suggestions: s.engine.Suggest(r.Context(), err, suggestionCount),
		})
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &syntaxErr),
		errors.Is(err, embedding.ErrDegenerate),
		errors.Is(err, search.ErrInvalidRequest):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{Error: message})
}

// pathParam returns an unescaped URL parameter; relation names may carry
// escaped slashes.
func pathParam(r *http.Request, key string) (string, error) {
	return url.PathUnescape(chi.URLParam(r, key))
}

func intParam(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}
