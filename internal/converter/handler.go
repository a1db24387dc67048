// AngelaMos | 2026
// handler.go

package converter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/valera277/rag-converter-pro/internal/core"
	"github.com/valera277/rag-converter-pro/internal/middleware"
	"github.com/valera277/rag-converter-pro/internal/usage"
)

const (
	formField        = "file"
	downloadName     = "dataset.md"
	multipartMemory  = 8 << 20
	chunksCountField = "X-Chunks-Count"
)

// Quota gates conversions and records finished ones.
type Quota interface {
	CanConvert(ctx context.Context, userID string) (usage.Decision, error)
	RecordConversion(
		ctx context.Context,
		userID string,
		decision usage.Decision,
		filename string,
		chunks int,
	) (*usage.HistoryEntry, error)
}

type Handler struct {
	pipeline  *Pipeline
	quota     Quota
	maxUpload int64
	logger    *slog.Logger
}

func NewHandler(pipeline *Pipeline, quota Quota, maxUpload int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		pipeline:  pipeline,
		quota:     quota,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
	limiter func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		if limiter != nil {
			r.Use(limiter)
		}
		r.Post("/convert", h.Convert)
	})
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	decision, err := h.quota.CanConvert(ctx, userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	if !decision.Allowed {
		core.JSONError(w, core.QuotaExceededError(decision.Reason))
		return
	}

	filename, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	doc, err := h.pipeline.Convert(ctx, filename, data)
	if err != nil {
		h.writeConvertError(w, userID, err)
		return
	}

	if _, err := h.quota.RecordConversion(ctx, userID, decision, StoredName(filename), doc.Chunks); err != nil {
		if errors.Is(err, usage.ErrQuotaExceeded) {
			core.JSONError(w, core.QuotaExceededError(usage.QuotaReason))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	h.logger.Info("conversion finished",
		"user_id", userID,
		"source", doc.Source,
		"chunks", doc.Chunks,
		"paid", decision.Paid,
	)

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+downloadName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.Header().Set(chunksCountField, strconv.Itoa(doc.Chunks))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content) //nolint:errcheck // best-effort response write
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			core.JSONError(w, core.NewAppError(
				core.ErrInvalidInput,
				"The uploaded file is too large.",
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
			))
			return "", nil, false
		}
		core.BadRequest(w, "expected a multipart upload")
		return "", nil, false
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup
	}()

	file, header, err := r.FormFile(formField)
	if err != nil || header.Filename == "" {
		core.BadRequest(w, "No file selected.")
		return "", nil, false
	}
	defer file.Close() //nolint:errcheck // read-only upload

	data, err := io.ReadAll(file)
	if err != nil {
		core.BadRequest(w, "could not read upload")
		return "", nil, false
	}

	return header.Filename, data, true
}

func (h *Handler) writeConvertError(w http.ResponseWriter, userID string, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		core.JSONError(w, core.ValidationError(ve.Message))
		return
	}

	h.logger.Error("conversion failed", "user_id", userID, "error", err)
	core.JSONError(w, core.NewAppError(
		err,
		"Error processing file. Please try another file.",
		http.StatusInternalServerError,
		"CONVERSION_FAILED",
	))
}
