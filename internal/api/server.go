package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	master "go-intentflow/internal/agents/master/actor"
	"go-intentflow/internal/analytics"
	"go-intentflow/internal/config"
	"go-intentflow/pkg/logger"
	"go-intentflow/pkg/messages"
	"go-intentflow/pkg/models"
)

// Evaluations looks up the asynchronous evaluation of a finished request.
type Evaluations interface {
	Lookup(id uuid.UUID) (messages.EvaluationResult, bool, error)
}

type Analytics interface {
	Stats(ctx context.Context, window time.Duration) (analytics.Stats, error)
	Recommendations(ctx context.Context, window time.Duration) ([]analytics.Recommendation, error)
	Trim(ctx context.Context, maxAge time.Duration) (int, error)
}

type Deps struct {
	Processor   master.Processor
	Evaluations Evaluations
	Analytics   Analytics
}

type getEvaluation struct {
	RequestID  uuid.UUID               `json:"request_id"`
	Evaluation models.EvaluationRecord `json:"evaluation"`
	Suggestion *models.Suggestion      `json:"suggestion,omitempty"`
}

type getRecommendations struct {
	Recommendations []analytics.Recommendation `json:"recommendations"`
}

type trimResult struct {
	Removed int `json:"removed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	ac       *actor.RootContext
	server   *http.Server
	inflight *inflight
}

func New(ac *actor.RootContext, deps Deps, cfg config.ServerConfig) *Server {
	r := chi.NewRouter()
	r.Use(logMiddleware())
	running := newInflight()
	producer := master.New(deps.Processor)

	r.Post("/chat", func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Msg("chat request")
		req := models.Request{}
		if err := unmarshalRequestBody(r, &req); err != nil {
			log.Debug().Err(err).Msg("cannot parse body")
			writeError(w, r, http.StatusBadRequest, "unable to parse body")
			return
		}
		if req.Policy != nil {
			if err := req.Policy.Validate(); err != nil {
				writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid policy: %v", err))
				return
			}
		}

		pid := master.Spawn(ac, producer)
		running.add(pid)
		defer running.remove(pid)

		resp, err := master.Ask(r.Context(), ac, pid, req, cfg.RequestTimeout)
		if err != nil {
			ac.Poison(pid)
			log.Error().Err(err).Msg("unable to get response from master actor")
			writeError(w, r, http.StatusInternalServerError, "unable to answer the request")
			return
		}
		log.Debug().Str(logger.RequestIDField, resp.RequestID.String()).Msg("request answered")
		render.JSON(w, r, resp)
	})

	r.Get("/evaluations/{id}", func(w http.ResponseWriter, r *http.Request) {
		idParam := chi.URLParam(r, "id")
		id, err := uuid.Parse(idParam)
		if err != nil {
			log.Debug().Msg("cannot parse id")
			writeError(w, r, http.StatusBadRequest, "unable to parse id")
			return
		}
		res, found, err := deps.Evaluations.Lookup(id)
		if err != nil {
			log.Error().Str(logger.RequestIDField, idParam).Err(err).Msg("unable to get evaluation from actor")
			writeError(w, r, http.StatusInternalServerError, "unable to get evaluation")
			return
		}
		if !found {
			log.Debug().Str(logger.RequestIDField, idParam).Msg("evaluation not available")
			writeError(w, r, http.StatusNotFound, "evaluation pending or unknown")
			return
		}
		render.JSON(w, r, getEvaluation{RequestID: res.RequestID, Evaluation: res.Record, Suggestion: res.Suggestion})
	})

	r.Route("/analytics", func(r chi.Router) {
		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			window, ok := durationParam(w, r, "window", 0)
			if !ok {
				return
			}
			stats, err := deps.Analytics.Stats(r.Context(), window)
			if err != nil {
				log.Error().Err(err).Msg("unable to compute stats")
				writeError(w, r, http.StatusInternalServerError, "unable to compute stats")
				return
			}
			render.JSON(w, r, stats)
		})

		r.Get("/recommendations", func(w http.ResponseWriter, r *http.Request) {
			window, ok := durationParam(w, r, "window", 0)
			if !ok {
				return
			}
			recs, err := deps.Analytics.Recommendations(r.Context(), window)
			if err != nil {
				log.Error().Err(err).Msg("unable to compute recommendations")
				writeError(w, r, http.StatusInternalServerError, "unable to compute recommendations")
				return
			}
			if recs == nil {
				recs = []analytics.Recommendation{}
			}
			render.JSON(w, r, getRecommendations{Recommendations: recs})
		})

		r.Post("/trim", func(w http.ResponseWriter, r *http.Request) {
			maxAge, ok := durationParam(w, r, "max_age", 0)
			if !ok {
				return
			}
			if maxAge <= 0 {
				writeError(w, r, http.StatusBadRequest, "max_age is required")
				return
			}
			n, err := deps.Analytics.Trim(r.Context(), maxAge)
			if err != nil {
				log.Error().Err(err).Msg("unable to trim analytics")
				writeError(w, r, http.StatusInternalServerError, "unable to trim analytics")
				return
			}
			render.JSON(w, r, trimResult{Removed: n})
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return &Server{
		ac:       ac,
		inflight: running,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("http server starting")
	err := s.server.ListenAndServe()
	if err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop drains open requests, then stops master actors that are still running.
func (s *Server) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.inflight.stopAll(s.ac)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func logMiddleware() func(http.Handler) http.Handler {
	c := alice.New()
	c = c.Append(hlog.NewHandler(log.Logger))
	c = c.Append(hlog.RemoteAddrHandler("ip"))
	c = c.Append(hlog.UserAgentHandler("agent"))
	c = c.Append(hlog.RefererHandler("referer"))
	c = c.Append(hlog.RequestIDHandler("req_id", "Request-Id"))
	c = c.Append(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("verb", r.Method).
			Stringer("url", r.URL).
			Int("size", size).
			Int("status", status).
			Int64("duration", duration.Milliseconds()).
			Msg("REQ")
	}))

	return c.Then
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

// durationParam parses an optional query duration such as "24h". It writes a 400 and
// returns false when the value is malformed.
func durationParam(w http.ResponseWriter, r *http.Request, name string, def time.Duration) (time.Duration, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid %s %q", name, raw))
		return 0, false
	}
	return d, true
}

func unmarshalRequestBody(req *http.Request, output interface{}) error {
	if req.Body == nil {
		return errors.New("invalid body in request")
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if err = req.Body.Close(); err != nil {
		return err
	}
	if err = json.Unmarshal(body, output); err != nil {
		return err
	}

	return nil
}
