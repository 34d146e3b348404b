package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ai-image-studio/internal/infra/metrics"
	"ai-image-studio/internal/infra/security"
	"ai-image-studio/internal/usecase"
)

// PoolStats reports database pool gauges for the /metrics scrape.
type PoolStats func() (total, idle, inUse int32)

// Deps are the collaborators of Server. Nil verifiers make the matching
// webhook route answer 500. CheckoutReturnURL is used when a checkout request
// names no return URL; a non-nil Blobs serves stored objects under /blobs/.
type Deps struct {
	Webhooks          usecase.WebhookUseCase
	Ledger            usecase.LedgerUseCase
	Usage             usecase.UsageUseCase
	Generation        usecase.GenerationUseCase
	Training          usecase.TrainingUseCase
	Users             usecase.UserUseCase
	PaymentVerifier   *security.Verifier
	TrainingVerifier  *security.Verifier
	Auth              *Authenticator
	AdminKey          string
	MaxUploadBytes    int64
	RequestTimeout    time.Duration
	CheckoutReturnURL string
	Blobs             http.Handler
	Health            func(ctx context.Context) error
	PoolStats         PoolStats
	Logger            *zerolog.Logger
}

// Server exposes the webhook receivers, the user API and the operator routes.
type Server struct {
	webhooks         usecase.WebhookUseCase
	ledger           usecase.LedgerUseCase
	usage            usecase.UsageUseCase
	generation       usecase.GenerationUseCase
	training         usecase.TrainingUseCase
	users            usecase.UserUseCase
	paymentVerifier  *security.Verifier
	trainingVerifier *security.Verifier
	auth             *Authenticator
	adminKey         string
	maxUpload        int64
	timeout          time.Duration
	returnURL        string
	blobs            http.Handler
	health           func(ctx context.Context) error
	poolStats        PoolStats
	validate         *validator.Validate
	log              *zerolog.Logger
}

func NewServer(d Deps) *Server {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 100 << 20
	}
	return &Server{
		webhooks:         d.Webhooks,
		ledger:           d.Ledger,
		usage:            d.Usage,
		generation:       d.Generation,
		training:         d.Training,
		users:            d.Users,
		paymentVerifier:  d.PaymentVerifier,
		trainingVerifier: d.TrainingVerifier,
		auth:             d.Auth,
		adminKey:         d.AdminKey,
		maxUpload:        d.MaxUploadBytes,
		timeout:          d.RequestTimeout,
		returnURL:        d.CheckoutReturnURL,
		blobs:            d.Blobs,
		health:           d.Health,
		poolStats:        d.PoolStats,
		validate:         validator.New(),
		log:              d.Logger,
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metricsHandler())
	if s.blobs != nil {
		r.Handle("/blobs/*", http.StripPrefix("/blobs/", s.blobs))
	}

	r.Group(func(r chi.Router) {
		r.Use(Timeout(s.timeout), LimitBody(1<<20))
		r.Post("/webhook/payment", s.handlePaymentWebhook)
		r.Post("/webhook/training", s.handleTrainingWebhook)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireUser(s.auth, s.users, s.log))
		r.Group(func(r chi.Router) {
			r.Use(Timeout(s.timeout), LimitBody(1<<20))
			r.Get("/entitlement", s.handleEntitlement)
			r.Post("/usage", s.handleUsage)
			r.Get("/subscription/plans", s.handleListPlans)
			r.Post("/subscription/checkout", s.handleCheckout)
			r.Post("/subscription/cancel", s.handleCancel)
			r.Get("/billing/history", s.handleBillingHistory)
			r.Get("/trainings", s.handleListTrainings)
			r.Delete("/models/{id}", s.handleDeleteTraining)
		})
		// generation and uploads wait on providers and get no request timeout
		r.With(LimitBody(1<<20)).Post("/images", s.handleGenerate)
		r.With(LimitBody(s.maxUpload)).Post("/trainings", s.handleSubmitTraining)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdminKey(s.adminKey, s.log), Timeout(s.timeout))
		r.Post("/users/{userID}/rollover", s.handleRollover)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) metricsHandler() http.Handler {
	h := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.poolStats != nil {
			metrics.SetDBPoolStats(s.poolStats())
		}
		h.ServeHTTP(w, r)
	})
}

