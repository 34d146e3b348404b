package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/infra/logging"
	"ai-image-studio/internal/usecase"
)

type usageRequest struct {
	Action string `json:"action" validate:"required"`
}

type imageRequest struct {
	Prompt  string `json:"prompt" validate:"required,max=4000"`
	ModelID string `json:"modelId" validate:"omitempty,uuid"`
}

type checkoutRequest struct {
	ProductID string `json:"productId" validate:"required"`
	ReturnURL string `json:"returnUrl" validate:"omitempty,url"`
}

type cancelRequest struct {
	AtPeriodEnd *bool `json:"atPeriodEnd"`
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument)
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func (s *Server) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	e, err := s.ledger.GetEntitlement(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	writeJSON(w, http.StatusOK, toEntitlementDTO(e))
}

// handleUsage records one protected action performed outside this service.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)
	var req usageRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	action, err := model.ParseUsageAction(req.Action)
	if err != nil {
		writeError(w, log, err)
		return
	}
	userID := userIDFrom(ctx)
	d, err := s.usage.CheckQuota(ctx, userID, action)
	if err != nil {
		writeError(w, log, err)
		return
	}
	if !d.Allowed {
		writeError(w, log, &usecase.QuotaError{Decision: d})
		return
	}
	p, err := s.usage.Increment(ctx, userID, action)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, toUsageDTO(p))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)
	var req imageRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	res, err := s.generation.Generate(ctx, userIDFrom(ctx), usecase.GenerateInput{Prompt: req.Prompt, ModelID: req.ModelID})
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": res.Images, "provider": res.Provider})
}

func (s *Server) handleSubmitTraining(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, log, fmt.Errorf("%w: expected a multipart form with a file", domain.ErrInvalidArgument))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, log, fmt.Errorf("%w: file is required", domain.ErrInvalidArgument))
		return
	}
	defer file.Close()

	job, err := s.training.Submit(ctx, userIDFrom(ctx), usecase.SubmitTrainingInput{
		ModelName:   r.FormValue("modelName"),
		Gender:      r.FormValue("gender"),
		FileName:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
		Body:        file,
	})
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTrainingJobDTO(job))
}

func (s *Server) handleListTrainings(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.training.ListJobs(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	out := make([]trainingJobDTO, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toTrainingJobDTO(j))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) handleDeleteTraining(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	job, err := s.training.Delete(ctx, userIDFrom(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, logging.With(ctx, s.log), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "model deleted",
		"modelId":      job.ModelID,
		"modelVersion": job.ModelVersion,
	})
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.ledger.ListPlans(r.Context())
	if err != nil {
		writeError(w, logging.With(r.Context(), s.log), err)
		return
	}
	out := make([]planDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": out})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)
	var req checkoutRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, log, err)
		return
	}
	if req.ReturnURL == "" {
		req.ReturnURL = s.returnURL
	}
	session, err := s.ledger.Checkout(ctx, userIDFrom(ctx), usecase.CheckoutInput{ProductID: req.ProductID, ReturnURL: req.ReturnURL})
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCheckoutDTO(session))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.With(ctx, s.log)
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := s.decode(r, &req); err != nil {
			writeError(w, log, err)
			return
		}
	}
	atPeriodEnd := true
	if req.AtPeriodEnd != nil {
		atPeriodEnd = *req.AtPeriodEnd
	}
	sub, err := s.ledger.Cancel(ctx, userIDFrom(ctx), atPeriodEnd)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionDTO(sub, nil))
}

func (s *Server) handleBillingHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, logging.With(ctx, s.log), fmt.Errorf("%w: limit must be a number", domain.ErrInvalidArgument))
		return
	}
	items, err := s.ledger.BillingHistory(ctx, userIDFrom(ctx), limit)
	if err != nil {
		writeError(w, logging.With(ctx, s.log), err)
		return
	}
	out := make([]paymentDTO, 0, len(items))
	for _, p := range items {
		out = append(out, toPaymentDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")
	p, rolled, err := s.usage.Rollover(ctx, userID, time.Now().UTC())
	if err != nil {
		writeError(w, logging.With(ctx, s.log), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rolledOver": rolled, "usage": toUsageDTO(p)})
}
