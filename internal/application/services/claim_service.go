package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	"github.com/claimtriage/roadside/backend/internal/domain/providers"
	"github.com/claimtriage/roadside/backend/internal/domain/repositories"
	apperrors "github.com/claimtriage/roadside/backend/pkg/errors"
)

// ClaimService exposes claim reads and the human approve/reject decisions on
// top of the claim repository.
type ClaimService struct {
	claims repositories.ClaimRepository
	logBus providers.LogBus
}

// NewClaimService creates a claim service.
func NewClaimService(claims repositories.ClaimRepository, logBus providers.LogBus) *ClaimService {
	return &ClaimService{claims: claims, logBus: logBus}
}

// GetClaim returns the claim or a not-found error.
func (s *ClaimService) GetClaim(ctx context.Context, id string) (*entities.Claim, error) {
	claim, err := s.claims.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load claim", err)
	}
	if claim == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("claim %s not found", id))
	}
	return claim, nil
}

// Approve moves the claim to its approved terminal state. Repeating the call
// on an already-approved claim is a no-op that still records a log entry, so
// a double-clicked button behaves the same as a single click.
func (s *ClaimService) Approve(ctx context.Context, id string) (*entities.Claim, error) {
	return s.decide(ctx, id, entities.ClaimStatusApproved, "claim approved by operator")
}

// Reject moves the claim to its denied terminal state. Idempotent like
// Approve.
func (s *ClaimService) Reject(ctx context.Context, id string) (*entities.Claim, error) {
	return s.decide(ctx, id, entities.ClaimStatusDenied, "claim rejected by operator")
}

func (s *ClaimService) decide(ctx context.Context, id string, target entities.ClaimStatus, logMessage string) (*entities.Claim, error) {
	claim, err := s.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}

	if claim.Status == target {
		s.logBus.Append(id, logMessage, entities.LogSeverityInfo)
		return claim, nil
	}

	updated, err := s.claims.Update(ctx, id, entities.ClaimPatch{Status: &target})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update claim status", err)
	}
	if updated == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("claim %s not found", id))
	}

	s.logBus.Append(id, logMessage, entities.LogSeveritySuccess)
	log.Info().
		Str("claim_id", id).
		Str("status", string(target)).
		Msg("operator decision recorded")
	return updated, nil
}
