package usecase

import (
	"fmt"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
)

// QuotaError carries the denial of a protected action. It matches domain.ErrQuotaExceeded.
type QuotaError struct {
	Decision model.QuotaDecision
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Decision.Action, e.Decision.Reason)
}

func (e *QuotaError) Unwrap() error { return domain.ErrQuotaExceeded }
