package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/logging"
)

type auditService struct {
	backend ports.PollBackend
	log     logging.Logger
}

func NewAuditService(backend ports.PollBackend, log logging.Logger) ports.AuditService {
	return &auditService{
		backend: backend,
		log:     log.With("component", "audit_service"),
	}
}

// AuditTallies compares every stored totalVotes with the sum of its option
// tallies. With repair, drifting totals are corrected in parallel, one
// atomic increment per poll.
func (s *auditService) AuditTallies(ctx context.Context, repair bool) ([]domain.TallyReport, error) {
	docs, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch all polls: %w", err)
	}

	reports := make([]domain.TallyReport, len(docs))
	for i, doc := range docs {
		reports[i] = domain.TallyReport{
			PollID:        doc.ID,
			Drift:         doc.TotalVotesDrift(),
			VoterMismatch: hasVoterMismatch(doc),
		}
	}

	if !repair {
		return reports, nil
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(reports))

	for i := range reports {
		if reports[i].Drift == 0 {
			continue
		}
		wg.Add(1)
		go func(r *domain.TallyReport) {
			defer wg.Done()
			delta := domain.Increment(domain.TotalVotesPath(), -r.Drift)
			if err := s.backend.AtomicUpdate(ctx, r.PollID, []domain.FieldDelta{delta}); err != nil {
				errChan <- fmt.Errorf("failed to repair poll %s: %w", r.PollID, err)
				return
			}
			r.Repaired = true
			s.log.Info(ctx, "total votes repaired", "poll_id", r.PollID, "drift", r.Drift)
		}(&reports[i])
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return reports, err
		}
	}

	return reports, nil
}

// hasVoterMismatch checks the per-option invariants on the raw document;
// Normalize would hide duplicate voters.
func hasVoterMismatch(doc *domain.PollDocument) bool {
	seen := make(map[string]bool)
	for _, o := range doc.Options {
		if o == nil {
			continue
		}
		votes := 0
		if o.Votes != nil {
			votes = *o.Votes
		}
		if votes != len(o.Voters) {
			return true
		}
		for _, v := range o.Voters {
			if seen[v] {
				return true
			}
			seen[v] = true
		}
	}
	return false
}
