// AngelaMos | 2026
// handler.go

package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valera277/rag-converter-pro/internal/core"
	"github.com/valera277/rag-converter-pro/internal/middleware"
	"github.com/valera277/rag-converter-pro/internal/payment"
)

const defaultMaxWebhookBytes = 64 << 10

// VerifierSource selects a webhook verifier by route.
type VerifierSource interface {
	Primary() payment.Provider
	Verifier(p payment.Provider) (payment.Verifier, error)
}

type Handler struct {
	service   *Service
	verifiers VerifierSource
	logger    *slog.Logger
	maxBody   int64
}

func NewHandler(
	service *Service,
	verifiers VerifierSource,
	logger *slog.Logger,
	maxBody int64,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBody <= 0 {
		maxBody = defaultMaxWebhookBytes
	}
	return &Handler{
		service:   service,
		verifiers: verifiers,
		logger:    logger,
		maxBody:   maxBody,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	webhookLimiter func(http.Handler) http.Handler,
) {
	r.Route("/payment", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if webhookLimiter != nil {
				r.Use(webhookLimiter)
			}
			r.Post("/callback", h.Callback)
			r.Post("/webhooks/{provider}", h.Webhook)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/subscribe", h.Subscribe)
			r.Get("/status", h.Status)
			r.Post("/cancel", h.Cancel)
		})
	})
}

// Callback serves the primary provider on the legacy path.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	h.handleWebhook(w, r, h.verifiers.Primary())
}

func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	h.handleWebhook(w, r, payment.Provider(chi.URLParam(r, "provider")))
}

func (h *Handler) handleWebhook(
	w http.ResponseWriter,
	r *http.Request,
	provider payment.Provider,
) {
	remote := middleware.ClientIP(r)
	log := h.logger.With("provider", provider, "remote_addr", remote)

	verifier, err := h.verifiers.Verifier(provider)
	if err != nil {
		writePlain(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		log.Warn("webhook body rejected", "error", err)
		writePlain(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
		return
	}

	ev, err := verifier.Verify(&payment.Request{Body: body, Header: r.Header})
	if err != nil {
		status := http.StatusBadRequest
		var rej *payment.RejectionError
		if errors.As(err, &rej) {
			status = rej.StatusCode()
			if rej.Reason == payment.ReasonMissingSecret {
				log.Error("webhook secret not configured, rejecting", "error", err)
			} else {
				log.Warn("webhook verification failed", "reason", rej.Reason.String(), "error", err)
			}
		}
		writePlain(w, status, http.StatusText(status))
		return
	}

	if ev.Unsigned {
		log.Warn("accepted unsigned webhook, development only", "event_type", ev.Type)
	}

	if _, err := h.service.ApplyEvent(r.Context(), ev); err != nil {
		log.Error("webhook apply failed", "error", err)
		writePlain(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	h.acknowledge(w, verifier, ev, log)
}

func (h *Handler) acknowledge(
	w http.ResponseWriter,
	verifier payment.Verifier,
	ev *payment.Event,
	log *slog.Logger,
) {
	ack, ok := verifier.(payment.Acknowledger)
	if !ok {
		writePlain(w, http.StatusOK, "OK")
		return
	}

	contentType, body, err := ack.Acknowledge(ev)
	if err != nil {
		log.Error("build webhook acknowledgement", "error", err)
		writePlain(w, http.StatusOK, "OK")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body) //nolint:errcheck // best-effort response write
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var email string
	if claims := middleware.GetClaims(r.Context()); claims != nil {
		email = claims.Email
	}

	result, err := h.service.Subscribe(r.Context(), userID, email)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, result)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.CheckAccess(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSubscriptionResponse(sub, h.service.now()))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.Cancel(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		if errors.Is(err, ErrNoActiveSubscription) {
			core.JSONError(w, core.ConflictError("no active subscription to cancel"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSubscriptionResponse(sub, h.service.now()))
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body) //nolint:errcheck // best-effort response write
}
