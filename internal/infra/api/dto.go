package api

import (
	"time"

	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/usecase"
)

type subscriptionDTO struct {
	ID                 string     `json:"id"`
	PlanID             string     `json:"planId"`
	PlanName           string     `json:"planName,omitempty"`
	Status             string     `json:"status"`
	CurrentPeriodStart time.Time  `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time  `json:"currentPeriodEnd"`
	TrialEnd           *time.Time `json:"trialEnd,omitempty"`
	CancelAtPeriodEnd  bool       `json:"cancelAtPeriodEnd"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	FreeTier           bool       `json:"freeTier"`
}

func toSubscriptionDTO(s *model.Subscription, plan *model.SubscriptionPlan) subscriptionDTO {
	d := subscriptionDTO{
		ID:                 s.ID,
		PlanID:             s.PlanID,
		Status:             string(s.Status),
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		TrialEnd:           s.TrialEnd,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		CancelledAt:        s.CancelledAt,
		FreeTier:           s.IsFreeTier(),
	}
	if plan != nil {
		d.PlanName = plan.Name
	}
	return d
}

type planDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ProductID    string `json:"productId,omitempty"`
	Price        string `json:"price"`
	Currency     string `json:"currency"`
	BillingCycle string `json:"billingCycle"`
	ImageLimit   *int   `json:"imageGenerationLimit"`
	ModelLimit   *int   `json:"modelTrainingLimit"`
	IsUnlimited  bool   `json:"isUnlimited"`
}

func toPlanDTO(p *model.SubscriptionPlan) planDTO {
	d := planDTO{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price.StringFixed(2),
		Currency:     p.Currency,
		BillingCycle: p.BillingCycle,
		ImageLimit:   p.ImageLimit,
		ModelLimit:   p.ModelLimit,
		IsUnlimited:  p.ImageLimit == nil,
	}
	if p.ExternalPlanID != nil {
		d.ProductID = *p.ExternalPlanID
	}
	return d
}

type checkoutDTO struct {
	SubscriptionID string  `json:"subscriptionId"`
	CustomerID     string  `json:"customerId,omitempty"`
	PaymentID      string  `json:"paymentId,omitempty"`
	PaymentLink    string  `json:"paymentLink"`
	Plan           planDTO `json:"plan"`
}

func toCheckoutDTO(s *usecase.CheckoutSession) checkoutDTO {
	return checkoutDTO{
		SubscriptionID: s.Checkout.ExternalSubscriptionID,
		CustomerID:     s.Checkout.ExternalCustomerID,
		PaymentID:      s.Checkout.PaymentID,
		PaymentLink:    s.Checkout.PaymentLink,
		Plan:           toPlanDTO(s.Plan),
	}
}

type usageDTO struct {
	PeriodStart     time.Time `json:"periodStart"`
	PeriodEnd       time.Time `json:"periodEnd"`
	ImagesGenerated int       `json:"imagesGenerated"`
	ModelsTrained   int       `json:"modelsTrained"`
	ImageLimit      *int      `json:"imageLimit"`
	ModelLimit      *int      `json:"modelLimit"`
}

func toUsageDTO(p *model.UsagePeriod) *usageDTO {
	if p == nil {
		return nil
	}
	return &usageDTO{
		PeriodStart:     p.PeriodStart,
		PeriodEnd:       p.PeriodEnd,
		ImagesGenerated: p.ImagesGenerated,
		ModelsTrained:   p.ModelsTrained,
		ImageLimit:      p.ImageLimit,
		ModelLimit:      p.ModelLimit,
	}
}

type entitlementDTO struct {
	Subscription         subscriptionDTO `json:"subscription"`
	Usage                *usageDTO       `json:"usage"`
	ImagesRemaining      *int            `json:"imagesRemaining"`
	ModelsRemaining      *int            `json:"modelsRemaining"`
	IsActive             bool            `json:"isActive"`
	IsExpired            bool            `json:"isExpired"`
	TrialDaysRemaining   int             `json:"trialDaysRemaining"`
	BillingDaysRemaining int             `json:"billingDaysRemaining"`
	CanGenerateImage     bool            `json:"canGenerateImage"`
	CanTrainModel        bool            `json:"canTrainModel"`
}

func toEntitlementDTO(e *usecase.Entitlement) entitlementDTO {
	return entitlementDTO{
		Subscription:         toSubscriptionDTO(e.Subscription, e.Plan),
		Usage:                toUsageDTO(e.Usage),
		ImagesRemaining:      e.ImagesRemaining,
		ModelsRemaining:      e.ModelsRemaining,
		IsActive:             e.IsActive,
		IsExpired:            e.IsExpired,
		TrialDaysRemaining:   e.TrialDaysRemaining,
		BillingDaysRemaining: e.BillingDaysRemaining,
		CanGenerateImage:     e.CanGenerateImage,
		CanTrainModel:        e.CanTrainModel,
	}
}

type trainingJobDTO struct {
	ID           string     `json:"id"`
	ModelName    string     `json:"modelName"`
	Gender       string     `json:"gender,omitempty"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	ModelID      string     `json:"modelId,omitempty"`
	ModelVersion string     `json:"modelVersion,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func toTrainingJobDTO(j *model.TrainingJob) trainingJobDTO {
	return trainingJobDTO{
		ID:           j.ID,
		ModelName:    j.ModelName,
		Gender:       j.Gender,
		Status:       string(j.Status),
		Progress:     j.Progress,
		ModelID:      j.ModelID,
		ModelVersion: j.ModelVersion,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		CompletedAt:  j.CompletedAt,
	}
}

type paymentDTO struct {
	ID            string     `json:"id"`
	PaymentID     string     `json:"paymentId"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	FailureReason *string    `json:"failureReason,omitempty"`
	RefundedAt    *time.Time `json:"refundedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toPaymentDTO(p *model.PaymentTransaction) paymentDTO {
	return paymentDTO{
		ID:            p.ID,
		PaymentID:     p.ExternalPaymentID,
		Amount:        p.Amount.StringFixed(2),
		Currency:      p.Currency,
		Status:        string(p.Status),
		PaymentMethod: p.PaymentMethod,
		FailureReason: p.FailureReason,
		RefundedAt:    p.RefundedAt,
		CreatedAt:     p.CreatedAt,
	}
}
