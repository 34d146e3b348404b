//go:build !integration

package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/infra/security"
	"ai-image-studio/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- fakes ----

type fakeWebhooks struct {
	paymentErr  error
	trainingErr error
	lastEventID string
	lastBody    []byte
	lastHints   usecase.TrainingHints
}

func (f *fakeWebhooks) HandlePayment(ctx context.Context, eventID string, body []byte) (*usecase.WebhookResult, error) {
	f.lastEventID, f.lastBody = eventID, body
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	return &usecase.WebhookResult{EventType: "subscription.active"}, nil
}

func (f *fakeWebhooks) HandleTraining(ctx context.Context, eventID string, body []byte, hints usecase.TrainingHints) (*usecase.WebhookResult, error) {
	f.lastEventID, f.lastHints = eventID, hints
	if f.trainingErr != nil {
		return nil, f.trainingErr
	}
	return &usecase.WebhookResult{
		EventType:   "training.succeeded",
		TrainingJob: &model.TrainingJob{ID: hints.ModelID, Status: model.TrainingStatusCompleted, Progress: 100},
	}, nil
}

type fakeUsers struct{}

func (fakeUsers) EnsureFromClaims(ctx context.Context, externalAuthID, email, displayName string) (*model.User, error) {
	return &model.User{ID: "u-" + externalAuthID, ExternalAuthID: externalAuthID, Email: email}, nil
}

func (fakeUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	return &model.User{ID: id}, nil
}

type fakeLedger struct {
	usecase.LedgerUseCase
	cancelAtPeriodEnd *bool
	historyLimit      int
	checkoutIn        usecase.CheckoutInput
	checkoutErr       error
}

func (f *fakeLedger) ListPlans(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	ext := "pdt_pro"
	return []*model.SubscriptionPlan{
		{ID: "plan-free", Name: "free", Price: decimal.Zero, Currency: "USD", ImageLimit: model.IntPtr(10), ModelLimit: model.IntPtr(1), IsActive: true},
		{ID: "plan-pro", Name: "pro", Price: decimal.NewFromInt(29), Currency: "USD", ModelLimit: model.IntPtr(5), IsActive: true, ExternalPlanID: &ext},
	}, nil
}

func (f *fakeLedger) Checkout(ctx context.Context, userID string, in usecase.CheckoutInput) (*usecase.CheckoutSession, error) {
	f.checkoutIn = in
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	return &usecase.CheckoutSession{
		Plan:     &model.SubscriptionPlan{ID: "plan-pro", Name: "pro", Price: decimal.NewFromInt(29), Currency: "USD"},
		Checkout: &adapter.Checkout{ExternalSubscriptionID: "sub_new", PaymentLink: "https://pay.test/sub_new"},
	}, nil
}

func (f *fakeLedger) GetEntitlement(ctx context.Context, userID string) (*usecase.Entitlement, error) {
	remaining := 7
	return &usecase.Entitlement{
		Subscription:     &model.Subscription{ID: "sub-1", UserID: userID, Status: model.SubscriptionStatusActive},
		Plan:             &model.SubscriptionPlan{Name: "pro"},
		ImagesRemaining:  &remaining,
		IsActive:         true,
		CanGenerateImage: true,
	}, nil
}

func (f *fakeLedger) Cancel(ctx context.Context, userID string, atPeriodEnd bool) (*model.Subscription, error) {
	f.cancelAtPeriodEnd = &atPeriodEnd
	return &model.Subscription{ID: "sub-1", UserID: userID, Status: model.SubscriptionStatusActive, CancelAtPeriodEnd: atPeriodEnd}, nil
}

func (f *fakeLedger) BillingHistory(ctx context.Context, userID string, limit int) ([]*model.PaymentTransaction, error) {
	f.historyLimit = limit
	return nil, nil
}

type fakeUsage struct {
	usecase.UsageUseCase
	decision   model.QuotaDecision
	increments int
	rolledFor  string
}

func (f *fakeUsage) CheckQuota(ctx context.Context, userID string, action model.UsageAction) (model.QuotaDecision, error) {
	return f.decision, nil
}

func (f *fakeUsage) Increment(ctx context.Context, userID string, action model.UsageAction) (*model.UsagePeriod, error) {
	f.increments++
	return &model.UsagePeriod{UserID: userID, ImagesGenerated: f.increments}, nil
}

func (f *fakeUsage) Rollover(ctx context.Context, userID string, now time.Time) (*model.UsagePeriod, bool, error) {
	f.rolledFor = userID
	return &model.UsagePeriod{UserID: userID}, true, nil
}

type fakeGeneration struct{ err error }

func (f fakeGeneration) Generate(ctx context.Context, userID string, in usecase.GenerateInput) (*usecase.GenerateResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &usecase.GenerateResult{Images: []string{"https://cdn.example/a.png"}, Provider: "openai"}, nil
}

type fakeTraining struct {
	usecase.TrainingUseCase
	submitted usecase.SubmitTrainingInput
	content   []byte
	deleted   string
}

func (f *fakeTraining) Delete(ctx context.Context, userID, jobID string) (*model.TrainingJob, error) {
	if jobID != "job-1" {
		return nil, domain.ErrTrainingJobNotFound
	}
	f.deleted = jobID
	return &model.TrainingJob{ID: jobID, UserID: userID, ModelID: "flux_portrait", ModelVersion: "abc123"}, nil
}

func (f *fakeTraining) Submit(ctx context.Context, userID string, in usecase.SubmitTrainingInput) (*model.TrainingJob, error) {
	f.submitted = in
	f.content, _ = io.ReadAll(in.Body)
	return &model.TrainingJob{ID: "job-1", UserID: userID, ModelName: in.ModelName, Status: model.TrainingStatusPending}, nil
}

// ---- harness ----

const (
	testAdminKey = "admin-key"
	testJWT      = "jwt-test-secret"
)

var testWebhookSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("webhook-test-secret"))

type harness struct {
	handler  http.Handler
	verifier *security.Verifier
	auth     *Authenticator
	webhooks *fakeWebhooks
	ledger   *fakeLedger
	usage    *fakeUsage
	training *fakeTraining
}

func newHarness(t *testing.T, mut ...func(*Deps)) *harness {
	t.Helper()
	v, err := security.NewVerifier(testWebhookSecret)
	if err != nil {
		t.Fatal(err)
	}
	auth, err := NewAuthenticator(testJWT, "")
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		verifier: v,
		auth:     auth,
		webhooks: &fakeWebhooks{},
		ledger:   &fakeLedger{},
		usage:    &fakeUsage{decision: model.QuotaDecision{Allowed: true}},
		training: &fakeTraining{},
	}
	d := Deps{
		Webhooks:         h.webhooks,
		Ledger:           h.ledger,
		Usage:            h.usage,
		Generation:       fakeGeneration{},
		Training:         h.training,
		Users:            fakeUsers{},
		PaymentVerifier:  v,
		TrainingVerifier: v,
		Auth:             auth,
		AdminKey:         testAdminKey,
		RequestTimeout:   5 * time.Second,
		Logger:           newTestLogger(),
	}
	for _, m := range mut {
		m(&d)
	}
	h.handler = NewServer(d).Routes()
	return h
}

func (h *harness) signed(t *testing.T, target, id string, body []byte) *http.Request {
	t.Helper()
	ts, sig := h.verifier.Sign(id, time.Now(), body)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set(security.HeaderID, id)
	req.Header.Set(security.HeaderTimestamp, ts)
	req.Header.Set(security.HeaderSignature, sig)
	return req
}

func (h *harness) authed(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()
	tok, err := h.auth.Mint("sub-42", "ada@example.com", "Ada", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return m
}

// ---- tests ----

func TestPaymentWebhook(t *testing.T) {
	body := []byte(`{"type":"subscription.active","data":{}}`)

	t.Run("signed delivery is handed to the use case", func(t *testing.T) {
		h := newHarness(t)
		rr := h.do(h.signed(t, "/webhook/payment", "evt_1", body))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if h.webhooks.lastEventID != "evt_1" || !bytes.Equal(h.webhooks.lastBody, body) {
			t.Errorf("use case got id=%q body=%q", h.webhooks.lastEventID, h.webhooks.lastBody)
		}
		m := decodeBody(t, rr)
		if m["received"] != true || m["eventType"] != "subscription.active" {
			t.Errorf("unexpected response %v", m)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
	})

	t.Run("signature failures are 401 and never reach the use case", func(t *testing.T) {
		h := newHarness(t)
		tampered := h.signed(t, "/webhook/payment", "evt_2", body)
		tampered.Body = io.NopCloser(strings.NewReader(`{"type":"payment.succeeded"}`))

		unsigned := httptest.NewRequest(http.MethodPost, "/webhook/payment", bytes.NewReader(body))

		stale := httptest.NewRequest(http.MethodPost, "/webhook/payment", bytes.NewReader(body))
		ts, sig := h.verifier.Sign("evt_3", time.Now().Add(-time.Hour), body)
		stale.Header.Set(security.HeaderID, "evt_3")
		stale.Header.Set(security.HeaderTimestamp, ts)
		stale.Header.Set(security.HeaderSignature, sig)

		for name, req := range map[string]*http.Request{"tampered": tampered, "unsigned": unsigned, "stale": stale} {
			if rr := h.do(req); rr.Code != http.StatusUnauthorized {
				t.Errorf("%s: expected 401, got %d", name, rr.Code)
			}
		}
		if h.webhooks.lastEventID != "" {
			t.Errorf("use case was called for %q", h.webhooks.lastEventID)
		}
	})

	t.Run("processing failures map to retryable statuses", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{domain.ErrEventInFlight, http.StatusConflict},
			{domain.ErrUserUnresolved, http.StatusBadRequest},
			{errors.New("db down"), http.StatusBadRequest},
		}
		for _, tt := range tests {
			h := newHarness(t)
			h.webhooks.paymentErr = tt.err
			if rr := h.do(h.signed(t, "/webhook/payment", "evt_x", body)); rr.Code != tt.want {
				t.Errorf("%v: expected %d, got %d", tt.err, tt.want, rr.Code)
			}
		}
	})

	t.Run("missing secret is a server error", func(t *testing.T) {
		h := newHarness(t, func(d *Deps) { d.PaymentVerifier = nil })
		if rr := h.do(h.signed(t, "/webhook/payment", "evt_4", body)); rr.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rr.Code)
		}
	})
}

func TestTrainingWebhook(t *testing.T) {
	body := []byte(`{"id":"r8-1","status":"succeeded"}`)
	target := "/webhook/training?userId=user-1&modelId=job-9&fileName=photos.zip"

	t.Run("query hints are bound", func(t *testing.T) {
		h := newHarness(t)
		rr := h.do(h.signed(t, target, "msg_1", body))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		want := usecase.TrainingHints{UserID: "user-1", ModelID: "job-9", FileName: "photos.zip"}
		if h.webhooks.lastHints != want {
			t.Errorf("expected hints %+v, got %+v", want, h.webhooks.lastHints)
		}
		m := decodeBody(t, rr)
		if m["trainingJobId"] != "job-9" || m["updatedStatus"] != "completed" || m["progress"] != float64(100) {
			t.Errorf("unexpected response %v", m)
		}
	})

	t.Run("unknown job is 404", func(t *testing.T) {
		h := newHarness(t)
		h.webhooks.trainingErr = domain.ErrTrainingJobNotFound
		if rr := h.do(h.signed(t, target, "msg_2", body)); rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})
}

func TestUserAPI(t *testing.T) {
	t.Run("requires a bearer token", func(t *testing.T) {
		h := newHarness(t)
		for _, hdr := range []string{"", "Bearer ", "Bearer not-a-jwt", "Basic abc"} {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/entitlement", nil)
			if hdr != "" {
				req.Header.Set("Authorization", hdr)
			}
			if rr := h.do(req); rr.Code != http.StatusUnauthorized {
				t.Errorf("%q: expected 401, got %d", hdr, rr.Code)
			}
		}
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		h := newHarness(t)
		other, _ := NewAuthenticator("other-secret", "")
		tok, _ := other.Mint("sub-42", "", "", time.Minute)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/entitlement", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		if rr := h.do(req); rr.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("entitlement", func(t *testing.T) {
		h := newHarness(t)
		rr := h.do(h.authed(t, http.MethodGet, "/api/v1/entitlement", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		m := decodeBody(t, rr)
		sub, _ := m["subscription"].(map[string]any)
		if sub["planName"] != "pro" || m["imagesRemaining"] != float64(7) || m["modelsRemaining"] != nil {
			t.Errorf("unexpected entitlement %v", m)
		}
	})

	t.Run("usage increments when allowed", func(t *testing.T) {
		h := newHarness(t)
		rr := h.do(h.authed(t, http.MethodPost, "/api/v1/usage", strings.NewReader(`{"action":"generate_image"}`)))
		if rr.Code != http.StatusOK || h.usage.increments != 1 {
			t.Errorf("expected one increment, got %d (%d)", h.usage.increments, rr.Code)
		}
	})

	t.Run("usage denial carries the upgrade hint", func(t *testing.T) {
		h := newHarness(t)
		h.usage.decision = model.QuotaDecision{
			Action:      model.ActionGenerateImage,
			Reason:      model.ReasonImageLimit,
			Code:        "limit_reached",
			UpgradeHint: model.UpgradeHintDefault,
		}
		rr := h.do(h.authed(t, http.MethodPost, "/api/v1/usage", strings.NewReader(`{"action":"generate_image"}`)))
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
		m := decodeBody(t, rr)
		if m["code"] != "limit_reached" || m["upgradeHint"] != model.UpgradeHintDefault {
			t.Errorf("unexpected body %v", m)
		}
		if h.usage.increments != 0 {
			t.Error("denied action was metered")
		}
	})

	t.Run("usage rejects bad input", func(t *testing.T) {
		h := newHarness(t)
		for _, body := range []string{`{"action":"upscale"}`, `{}`, `not json`, `{"action":"generate_image","extra":1}`} {
			rr := h.do(h.authed(t, http.MethodPost, "/api/v1/usage", strings.NewReader(body)))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", body, rr.Code)
			}
		}
	})

	t.Run("image generation", func(t *testing.T) {
		h := newHarness(t)
		rr := h.do(h.authed(t, http.MethodPost, "/api/v1/images", strings.NewReader(`{"prompt":"a fox"}`)))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if imgs, _ := decodeBody(t, rr)["images"].([]any); len(imgs) != 1 {
			t.Errorf("expected one image, got %v", imgs)
		}
	})

	t.Run("image generation error statuses", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{domain.ErrRateLimited, http.StatusTooManyRequests},
			{domain.ErrUpstream, http.StatusBadGateway},
			{domain.ErrTrainingJobNotFound, http.StatusNotFound},
			{&usecase.QuotaError{Decision: model.QuotaDecision{Reason: model.ReasonImageLimit}}, http.StatusForbidden},
		}
		for _, tt := range tests {
			h := newHarness(t, func(d *Deps) { d.Generation = fakeGeneration{err: tt.err} })
			rr := h.do(h.authed(t, http.MethodPost, "/api/v1/images", strings.NewReader(`{"prompt":"a fox"}`)))
			if rr.Code != tt.want {
				t.Errorf("%v: expected %d, got %d", tt.err, tt.want, rr.Code)
			}
		}
	})

	t.Run("training upload", func(t *testing.T) {
		h := newHarness(t)
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("modelName", "me")
		_ = mw.WriteField("gender", "female")
		fw, _ := mw.CreateFormFile("file", "photos.zip")
		_, _ = fw.Write([]byte("PK\x03\x04zip"))
		_ = mw.Close()

		req := h.authed(t, http.MethodPost, "/api/v1/trainings", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rr := h.do(req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
		in := h.training.submitted
		if in.ModelName != "me" || in.Gender != "female" || in.FileName != "photos.zip" {
			t.Errorf("unexpected input %+v", in)
		}
		if string(h.training.content) != "PK\x03\x04zip" {
			t.Errorf("file content not forwarded: %q", h.training.content)
		}
	})

	t.Run("training upload without a file", func(t *testing.T) {
		h := newHarness(t)
		req := h.authed(t, http.MethodPost, "/api/v1/trainings", strings.NewReader("modelName=me"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if rr := h.do(req); rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("cancel defaults to period end", func(t *testing.T) {
		h := newHarness(t)
		rr := h.do(h.authed(t, http.MethodPost, "/api/v1/subscription/cancel", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if h.ledger.cancelAtPeriodEnd == nil || !*h.ledger.cancelAtPeriodEnd {
			t.Error("expected a cancel at period end")
		}

		rr = h.do(h.authed(t, http.MethodPost, "/api/v1/subscription/cancel", strings.NewReader(`{"atPeriodEnd":false}`)))
		if rr.Code != http.StatusOK || *h.ledger.cancelAtPeriodEnd {
			t.Errorf("expected an immediate cancel, got %d", rr.Code)
		}
	})

	t.Run("billing history limit", func(t *testing.T) {
		h := newHarness(t)
		if rr := h.do(h.authed(t, http.MethodGet, "/api/v1/billing/history?limit=5", nil)); rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if h.ledger.historyLimit != 5 {
			t.Errorf("expected limit 5, got %d", h.ledger.historyLimit)
		}
		if rr := h.do(h.authed(t, http.MethodGet, "/api/v1/billing/history?limit=lots", nil)); rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})
}

func TestSubscriptionAPI(t *testing.T) {
	t.Run("plans list flags unlimited plans", func(t *testing.T) {
		h := newHarness(t)
		rr := h.do(h.authed(t, http.MethodGet, "/api/v1/subscription/plans", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var body struct {
			Plans []planDTO `json:"plans"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if len(body.Plans) != 2 {
			t.Fatalf("expected 2 plans, got %d", len(body.Plans))
		}
		if body.Plans[0].IsUnlimited || !body.Plans[1].IsUnlimited {
			t.Errorf("unexpected unlimited flags %+v", body.Plans)
		}
		if body.Plans[1].Price != "29.00" || body.Plans[1].ProductID != "pdt_pro" {
			t.Errorf("unexpected pro plan %+v", body.Plans[1])
		}
	})

	t.Run("checkout returns the payment link", func(t *testing.T) {
		h := newHarness(t, func(d *Deps) { d.CheckoutReturnURL = "https://studio.test/dashboard" })
		rr := h.do(h.authed(t, http.MethodPost, "/api/v1/subscription/checkout", strings.NewReader(`{"productId":"pdt_pro"}`)))
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
		body := decodeBody(t, rr)
		if body["paymentLink"] != "https://pay.test/sub_new" || body["subscriptionId"] != "sub_new" {
			t.Errorf("unexpected body %v", body)
		}
		if h.ledger.checkoutIn.ProductID != "pdt_pro" || h.ledger.checkoutIn.ReturnURL != "https://studio.test/dashboard" {
			t.Errorf("unexpected checkout input %+v", h.ledger.checkoutIn)
		}
	})

	t.Run("checkout input and conflicts", func(t *testing.T) {
		h := newHarness(t)
		if rr := h.do(h.authed(t, http.MethodPost, "/api/v1/subscription/checkout", strings.NewReader(`{}`))); rr.Code != http.StatusBadRequest {
			t.Errorf("missing product: expected 400, got %d", rr.Code)
		}
		if rr := h.do(h.authed(t, http.MethodPost, "/api/v1/subscription/checkout",
			strings.NewReader(`{"productId":"pdt_pro","returnUrl":"not a url"}`))); rr.Code != http.StatusBadRequest {
			t.Errorf("bad return url: expected 400, got %d", rr.Code)
		}

		h.ledger.checkoutErr = domain.ErrAlreadySubscribed
		rr := h.do(h.authed(t, http.MethodPost, "/api/v1/subscription/checkout", strings.NewReader(`{"productId":"pdt_pro"}`)))
		if rr.Code != http.StatusConflict || decodeBody(t, rr)["code"] != "already_subscribed" {
			t.Errorf("expected 409 already_subscribed, got %d: %s", rr.Code, rr.Body.String())
		}

		h.ledger.checkoutErr = fmt.Errorf("product: %w", domain.ErrPlanNotFound)
		if rr := h.do(h.authed(t, http.MethodPost, "/api/v1/subscription/checkout", strings.NewReader(`{"productId":"pdt_x"}`))); rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("unknown product: expected 422, got %d", rr.Code)
		}
	})
}

func TestDeleteModel(t *testing.T) {
	h := newHarness(t)
	rr := h.do(h.authed(t, http.MethodDelete, "/api/v1/models/job-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if h.training.deleted != "job-1" || decodeBody(t, rr)["modelVersion"] != "abc123" {
		t.Errorf("unexpected delete of %q: %s", h.training.deleted, rr.Body.String())
	}

	if rr := h.do(h.authed(t, http.MethodDelete, "/api/v1/models/job-9", nil)); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	if rr := h.do(httptest.NewRequest(http.MethodDelete, "/api/v1/models/job-1", nil)); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", rr.Code)
	}
}

func TestBlobRoute(t *testing.T) {
	var served string
	h := newHarness(t, func(d *Deps) {
		d.Blobs = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			served = r.URL.Path
			_, _ = io.WriteString(w, "bytes")
		})
	})
	rr := h.do(httptest.NewRequest(http.MethodGet, "/blobs/generated-images/a.webp", nil))
	if rr.Code != http.StatusOK || served != "generated-images/a.webp" {
		t.Errorf("expected the object key to reach the store, got %d %q", rr.Code, served)
	}

	h = newHarness(t)
	if rr := h.do(httptest.NewRequest(http.MethodGet, "/blobs/a.webp", nil)); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a store, got %d", rr.Code)
	}
}

func TestAdminRollover(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want int
	}{
		{"no key", "", http.StatusUnauthorized},
		{"wrong key", "nope", http.StatusUnauthorized},
		{"valid key", testAdminKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			req := httptest.NewRequest(http.MethodPost, "/admin/users/user-7/rollover", nil)
			if tt.key != "" {
				req.Header.Set("X-Admin-Key", tt.key)
			}
			rr := h.do(req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
			if tt.want == http.StatusOK && h.usage.rolledFor != "user-7" {
				t.Errorf("expected rollover for user-7, got %q", h.usage.rolledFor)
			}
		})
	}

	t.Run("unconfigured key is forbidden", func(t *testing.T) {
		h := newHarness(t, func(d *Deps) { d.AdminKey = "" })
		req := httptest.NewRequest(http.MethodPost, "/admin/users/user-7/rollover", nil)
		req.Header.Set("X-Admin-Key", "")
		if rr := h.do(req); rr.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rr.Code)
		}
	})
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, func(d *Deps) {
		d.Health = func(context.Context) error { return errors.New("db down") }
	})
	if rr := h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rr.Code)
	}
	h = newHarness(t)
	if rr := h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}
