package proxy

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-go-golems/beauty-bot/pkg/completion"
	"github.com/go-go-golems/beauty-bot/pkg/profile"
	"github.com/rs/zerolog/log"
)

const (
	allowedMethods = "GET, POST, OPTIONS"
	allowedHeaders = "Content-Type, Authorization"
)

// Handler answers beauty questions over HTTP by forwarding them to the
// upstream model. It holds the credential so browsers never see it.
type Handler struct {
	upstream completion.Client
	profile  *profile.Profile

	rateLimit float64
	rateBurst int

	router chi.Router
}

type HandlerOption func(*Handler)

// WithRateLimit enables per client address rate limiting. A perSecond of 0
// disables it.
func WithRateLimit(perSecond float64, burst int) HandlerOption {
	return func(h *Handler) {
		h.rateLimit = perSecond
		h.rateBurst = burst
	}
}

func NewHandler(upstream completion.Client, p *profile.Profile, options ...HandlerOption) *Handler {
	h := &Handler{
		upstream: upstream,
		profile:  p,
	}
	for _, o := range options {
		o(h)
	}
	h.routes()
	return h
}

func (h *Handler) routes() {
	r := chi.NewRouter()

	r.Use(allowAnyOrigin)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:     []string{"Content-Type", "Authorization"},
		OptionsPassthrough: true,
	}))

	r.Get("/healthz", h.handleHealth)

	r.Group(func(r chi.Router) {
		if h.rateLimit > 0 {
			r.Use(newIPLimiter(h.rateLimit, h.rateBurst).middleware)
		}
		r.Options("/*", h.handlePreflight)
		r.Get("/*", h.handleAsk)
		r.Post("/*", h.handleAsk)
	})

	h.router = r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handlePreflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
	w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r, h.profile.DefaultMessage)
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", clientIP(r)).Msg("malformed request, using default message")
	}

	history := req.history(h.profile.ProxySystemPrompt)
	log.Debug().
		Str("method", r.Method).
		Int("turns", len(history)).
		Msg("forwarding to upstream")

	answer, err := h.upstream.Complete(r.Context(), history)
	if err != nil {
		if ue, ok := completion.IsUpstreamError(err); ok {
			log.Warn().Int("status", ue.StatusCode).Str("message", ue.Message).Msg("upstream rejected request")
			writeText(w, ue.StatusCode, "Upstream error: "+ue.Message)
			return
		}
		log.Error().Err(err).Msg("could not reach upstream")
		writeText(w, http.StatusInternalServerError, "Worker error: "+workerReason(err))
		return
	}

	if strings.TrimSpace(answer) == "" {
		answer = h.profile.FallbackAnswer
	}
	writeText(w, http.StatusOK, answer)
}

func workerReason(err error) string {
	if te, ok := completion.IsTransportError(err); ok {
		return te.Message
	}
	return err.Error()
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}
