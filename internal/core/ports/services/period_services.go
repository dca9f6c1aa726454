package services

import (
	"context"

	"github.com/sahayog/shg_management_app/internal/dto"
)

// PeriodReaderSvc defines read operations for periodic records.
type PeriodReaderSvc interface {
	ListPeriods(ctx context.Context, groupID string) ([]dto.PeriodResponse, error)

	// GetCurrentPeriod returns the group's open period with its
	// contribution rows, creating neither.
	GetCurrentPeriod(ctx context.Context, groupID string) (*dto.CurrentPeriodResponse, error)
}

// PeriodPaymentSvc records member payments against an open period.
type PeriodPaymentSvc interface {
	RecordPayment(ctx context.Context, groupID, periodID, memberID string, req dto.RecordPaymentRequest, requestingUserID string) (*dto.ContributionResponse, error)
}

// PeriodSvcFacade combines the period read and payment interfaces.
type PeriodSvcFacade interface {
	PeriodReaderSvc
	PeriodPaymentSvc
}

// PeriodCloseSvcFacade is the period closing orchestrator: the transactional
// procedure that recalculates fines, closes the current period and rolls the
// group into its successor.
type PeriodCloseSvcFacade interface {
	ClosePeriod(ctx context.Context, groupID, periodID string, req dto.ClosePeriodRequest, requestingUserID string) (*dto.ClosePeriodResponse, error)
}
