package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aleber123/nytt-sub001/internal/domain"
	"github.com/aleber123/nytt-sub001/internal/repository"
	"github.com/aleber123/nytt-sub001/internal/service"
	"github.com/aleber123/nytt-sub001/internal/storage"
	"github.com/aleber123/nytt-sub001/pkg/httputil"
	"github.com/aleber123/nytt-sub001/pkg/validator"
)

// maxUploadBody leaves room for the multipart framing around a file of
// storage.MaxFileSize.
const maxUploadBody = storage.MaxFileSize + 1<<20

// DraftHandler handles HTTP requests for order drafts.
type DraftHandler struct {
	service *service.WizardService
	logger  *slog.Logger
}

// NewDraftHandler creates a new draft HTTP handler.
func NewDraftHandler(svc *service.WizardService, logger *slog.Logger) *DraftHandler {
	return &DraftHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// StartDraftRequest is the JSON request body for starting a draft.
type StartDraftRequest struct {
	Flow string `json:"flow" validate:"required,oneof=legalization visa"`
}

// SubmitRequest is the JSON request body for submitting a draft.
type SubmitRequest struct {
	RecaptchaToken string `json:"recaptcha_token" validate:"required,max=4096"`
}

// --- Handlers ---

// StartDraft handles POST /api/v1/drafts
func (h *DraftHandler) StartDraft(w http.ResponseWriter, r *http.Request) {
	var req StartDraftRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	started, err := h.service.StartDraft(r.Context(), req.Flow)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: started})
}

// GetDraft handles GET /api/v1/drafts/{id}
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetDraft(r.Context(), chi.URLParam(r, "id"))
	h.writeView(w, r, view, err)
}

// PatchAnswers handles PATCH /api/v1/drafts/{id}/answers
//
// The body is a partial Answers object. Country codes are normalised by
// the service before validation, so the body is only decoded here.
func (h *DraftHandler) PatchAnswers(w http.ResponseWriter, r *http.Request) {
	var patch domain.Patch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		httputil.WriteValidationError(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}

	view, err := h.service.PatchAnswers(r.Context(), chi.URLParam(r, "id"), patch)
	h.writeView(w, r, view, err)
}

// Next handles POST /api/v1/drafts/{id}/next
func (h *DraftHandler) Next(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Next(r.Context(), chi.URLParam(r, "id"))
	h.writeView(w, r, view, err)
}

// Back handles POST /api/v1/drafts/{id}/back
func (h *DraftHandler) Back(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Back(r.Context(), chi.URLParam(r, "id"))
	h.writeView(w, r, view, err)
}

// GoTo handles POST /api/v1/drafts/{id}/steps/{index}
func (h *DraftHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	index, ok := httputil.ParseIndex(w, chi.URLParam(r, "index"))
	if !ok {
		return
	}
	view, err := h.service.GoTo(r.Context(), chi.URLParam(r, "id"), index)
	h.writeView(w, r, view, err)
}

// Quote handles POST /api/v1/drafts/{id}/quote
func (h *DraftHandler) Quote(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Quote(r.Context(), chi.URLParam(r, "id"))
	h.writeView(w, r, view, err)
}

// Addons handles GET /api/v1/drafts/{id}/addons
func (h *DraftHandler) Addons(w http.ResponseWriter, r *http.Request) {
	addons, err := h.service.ApplicableAddons(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: addons})
}

// UploadFile handles PUT /api/v1/drafts/{id}/files/{slot}
// The document is sent as the multipart field "file".
func (h *DraftHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	slot, ok := httputil.ParseIndex(w, chi.URLParam(r, "slot"))
	if !ok {
		return
	}

	if r.ContentLength > maxUploadBody {
		writeTooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeTooLarge(w)
			return
		}
		httputil.WriteValidationError(w, r, fmt.Errorf("multipart field \"file\" is required: %w", err))
		return
	}
	defer file.Close()

	view, err := h.service.UploadFile(r.Context(), chi.URLParam(r, "id"), slot, header.Filename, file)
	h.writeView(w, r, view, err)
}

// Submit handles POST /api/v1/drafts/{id}/submit
func (h *DraftHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	result, err := h.service.Submit(r.Context(), chi.URLParam(r, "id"), req.RecaptchaToken)
	if err != nil {
		var cooldown *repository.CooldownError
		if errors.As(err, &cooldown) {
			secs := max(1, int(math.Ceil(cooldown.RetryAfter.Seconds())))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		h.writeError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}

// Abandon handles DELETE /api/v1/drafts/{id}
func (h *DraftHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Abandon(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeTooLarge(w http.ResponseWriter) {
	httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.Response{
		Error: &httputil.ErrorResponse{
			Code:    "PAYLOAD_TOO_LARGE",
			Message: fmt.Sprintf("file exceeds maximum size of %d bytes", storage.MaxFileSize),
		},
	})
}

func (h *DraftHandler) writeView(w http.ResponseWriter, r *http.Request, view *service.DraftView, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// writeError renders field-level validation failures with their fields and
// everything else through the standard error envelope.
func (h *DraftHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteValidationError(w, r, valErr)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}
