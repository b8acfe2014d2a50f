package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"go-askbot/internal/agents/orchestrator"
	"go-askbot/internal/tools"
	"go-askbot/pkg/logger"
	"go-askbot/pkg/memory/buffer"
	"go-askbot/pkg/models"
	"io"
	"net/http"
	"strings"
	"time"
)

type Asker interface {
	Ask(ctx context.Context, question string, history buffer.History) *orchestrator.State
}

type askRequest struct {
	SessionID   string        `json:"session_id,omitempty"`
	Question    string        `json:"question"`
	ChatHistory []models.Turn `json:"chat_history,omitempty"`
}

type askResponse struct {
	SessionID   string                   `json:"session_id"`
	Answer      string                   `json:"answer"`
	ChatHistory []models.Turn            `json:"chat_history"`
	Category    models.Category          `json:"category"`
	RetryCount  int                      `json:"retry_count"`
	Rounds      []models.IterationRecord `json:"rounds"`
}

type sessionResponse struct {
	SessionID   string        `json:"session_id"`
	ChatHistory []models.Turn `json:"chat_history"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	server   *http.Server
	sessions *sessions
}

func New(asker Asker, reg tools.Registry, port int) *Server {
	r := chi.NewRouter()
	r.Use(logMiddleware())
	state := newSessions()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, struct {
			Status string `json:"status"`
		}{"ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/ask", func(w http.ResponseWriter, r *http.Request) {
		req := askRequest{}
		if err := unmarshalRequestBody(r, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			log.Debug().Err(err).Msg("cannot parse body")
			render.JSON(w, r, errorResponse{Error: "unable to parse body"})
			return
		}
		if strings.TrimSpace(req.Question) == "" {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "question is required"})
			return
		}

		id := uuid.New()
		history := buffer.New(req.ChatHistory...)
		if req.SessionID != "" {
			var err error
			id, err = uuid.Parse(req.SessionID)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, errorResponse{Error: "unable to parse session_id"})
				return
			}
			if h, ok := state.get(id); ok {
				history = h
			}
		}

		l := log.With().Str(logger.SessionIDField, id.String()).Logger()
		l.Info().Msg("question received")
		st := asker.Ask(r.Context(), req.Question, history)
		state.put(id, st.History)

		render.JSON(w, r, askResponse{
			SessionID:   id.String(),
			Answer:      st.FinalAnswer,
			ChatHistory: st.History.Turns(),
			Category:    st.Category,
			RetryCount:  st.RetryCount,
			Rounds:      st.Iterations,
		})
	})

	r.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "unable to parse id"})
			return
		}
		h, ok := state.get(id)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, errorResponse{Error: "session not found"})
			return
		}
		render.JSON(w, r, sessionResponse{SessionID: id.String(), ChatHistory: h.Turns()})
	})

	r.Delete("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, errorResponse{Error: "unable to parse id"})
			return
		}
		if !state.remove(id) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/tools", func(w http.ResponseWriter, r *http.Request) {
		ds, err := reg.ListTools(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("unable to list tools")
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, errorResponse{Error: err.Error()})
			return
		}
		render.JSON(w, r, ds)
	})

	r.Post("/tools/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		req := tools.CallRequest{}
		if err := unmarshalRequestBody(r, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, tools.CallResponse{Error: "unable to parse body"})
			return
		}
		out, err := reg.Call(r.Context(), name, req.Arguments)
		switch {
		case errors.Is(err, tools.ErrUnknownTool):
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, tools.CallResponse{Error: err.Error()})
		case errors.Is(err, tools.ErrMissingArgument):
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, tools.CallResponse{Error: err.Error()})
		case err != nil:
			log.Warn().Err(err).Str(logger.ToolField, name).Msg("tool call failed")
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, tools.CallResponse{Error: err.Error()})
		default:
			render.JSON(w, r, tools.CallResponse{Result: out})
		}
	})

	return &Server{
		sessions: state,
		server: &http.Server{
			Addr:    fmt.Sprint(":", port),
			Handler: r,
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

func (s *Server) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
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
	if err = json.Unmarshal(body, &output); err != nil {
		return err
	}

	return nil
}
