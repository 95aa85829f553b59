package ports

import (
	"context"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type AuditService interface {
	AuditTallies(ctx context.Context, repair bool) ([]domain.TallyReport, error)
}
