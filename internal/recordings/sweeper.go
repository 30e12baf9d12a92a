package recordings

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/meetscribe/backend/internal/models"
)

// sweepStore is the subset of the repository the sweeper needs.
type sweepStore interface {
	CountNullAsset(ctx context.Context) (int, error)
	CountNullAssetOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	CountSweepCandidates(ctx context.Context, cutoff time.Time) (int, error)
	FailStale(ctx context.Context, cutoff time.Time, reason string) ([]models.Recording, error)
}

// SweepDiagnostics reports the size of each filtering stage. The counts are
// observability only; they never feed the update itself.
type SweepDiagnostics struct {
	TotalNullMux     int `json:"totalNullMux"`
	OlderThanWindow  int `json:"olderThan12Hours"`
	NotAlreadyFailed int `json:"notAlreadyFailed"`
}

// SweepResult is the outcome of one sweep run.
type SweepResult struct {
	Message           string             `json:"message"`
	UpdatedRecordings []models.Recording `json:"updatedRecordings"`
	Diagnostics       SweepDiagnostics   `json:"diagnostics"`
}

// Sweeper force-fails recordings stuck without a hosting asset past the stale
// window. Idempotent: the status guard in the update means an immediate
// second run changes zero rows.
type Sweeper struct {
	repo       sweepStore
	staleAfter time.Duration
	logger     *zap.Logger
}

// NewSweeper creates a stale-recording sweeper.
func NewSweeper(repo sweepStore, staleAfter time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{repo: repo, staleAfter: staleAfter, logger: logger}
}

// Sweep runs one pass: count each filtering stage for diagnostics, then
// bulk-fail the candidates.
func (s *Sweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	cutoff := time.Now().Add(-s.staleAfter)

	totalNull, err := s.repo.CountNullAsset(ctx)
	if err != nil {
		return nil, fmt.Errorf("count null-asset recordings: %w", err)
	}
	olderThan, err := s.repo.CountNullAssetOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count stale recordings: %w", err)
	}
	candidates, err := s.repo.CountSweepCandidates(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("count sweep candidates: %w", err)
	}

	reason := fmt.Sprintf("no hosting asset within %s", s.staleAfter)
	updated, err := s.repo.FailStale(ctx, cutoff, reason)
	if err != nil {
		return nil, fmt.Errorf("fail stale recordings: %w", err)
	}

	s.logger.Info("stale sweep complete",
		zap.Int("total_null_asset", totalNull),
		zap.Int("older_than_window", olderThan),
		zap.Int("not_already_failed", candidates),
		zap.Int("updated", len(updated)),
	)
	return &SweepResult{
		Message:           fmt.Sprintf("marked %d stale recordings as failed", len(updated)),
		UpdatedRecordings: updated,
		Diagnostics: SweepDiagnostics{
			TotalNullMux:     totalNull,
			OlderThanWindow:  olderThan,
			NotAlreadyFailed: candidates,
		},
	}, nil
}

// Run sweeps on a fixed interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}
