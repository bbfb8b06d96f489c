package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/claimtriage/roadside/backend/internal/domain/entities"
	"github.com/claimtriage/roadside/backend/internal/domain/providers"
	"github.com/claimtriage/roadside/backend/internal/domain/repositories"
	apperrors "github.com/claimtriage/roadside/backend/pkg/errors"
)

// minTranscriptEntries is the completeness gate: transcripts shorter than this
// are stored but never sent to the agent. Greetings and hang-ups produce one
// or two entries and carry nothing worth deciding on.
const minTranscriptEntries = 3

// IntakeResult reports what one webhook delivery did.
type IntakeResult struct {
	ConversationID string
	ClaimID        string
	Processed      bool
}

// IntakeService reconciles conversation ids with claims and drives the
// processing pipeline. Each conversation id maps to exactly one claim for the
// life of the process; re-deliveries reuse the mapping and overwrite the
// stored transcription.
type IntakeService struct {
	claims        repositories.ClaimRepository
	conversations repositories.ConversationRepository
	logBus        providers.LogBus
	agent         *AgentService
	notifier      providers.DecisionNotifier

	// mu guards the keyed locks; each conversation id serializes its own
	// deliveries so two concurrent webhooks cannot both create a claim.
	// Entries are reference counted and removed once no delivery holds or
	// waits on them, so the map stays bounded by concurrency, not by how
	// many conversations the process has ever seen.
	mu    sync.Mutex
	locks map[string]*conversationLock

	// processWG tracks in-flight agent runs for shutdown.
	processWG sync.WaitGroup
}

// NewIntakeService creates the intake reconciler.
func NewIntakeService(
	claims repositories.ClaimRepository,
	conversations repositories.ConversationRepository,
	logBus providers.LogBus,
	agent *AgentService,
) *IntakeService {
	return &IntakeService{
		claims:        claims,
		conversations: conversations,
		logBus:        logBus,
		agent:         agent,
		locks:         make(map[string]*conversationLock),
	}
}

// SetNotifier enables out-of-band decision notifications. Optional; the
// pipeline works without one.
func (s *IntakeService) SetNotifier(notifier providers.DecisionNotifier) {
	s.notifier = notifier
}

// HandleTranscription ingests one webhook delivery: it resolves or creates the
// claim for the conversation, stores the transcription, and, when the
// transcript passes the completeness gate, starts agent processing in the
// background. The returned result is ready before the agent finishes.
func (s *IntakeService) HandleTranscription(
	ctx context.Context,
	conversationID string,
	transcription string,
	entryCount int,
	rawTranscript []entities.TranscriptEntry,
) (*IntakeResult, error) {
	lock := s.acquireConversation(conversationID)
	defer s.releaseConversation(conversationID, lock)

	claimID, err := s.resolveClaim(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	conv := &entities.ConversationTranscription{
		ConversationID: conversationID,
		Transcription:  transcription,
		ReceivedAt:     time.Now().UTC(),
		ClaimID:        claimID,
		EntryCount:     entryCount,
		RawTranscript:  rawTranscript,
	}
	if err := s.conversations.Save(ctx, conv); err != nil {
		return nil, apperrors.NewInternalError("failed to save conversation", err)
	}

	s.logBus.Append(claimID, fmt.Sprintf("Transcription received via webhook for conversation: %s", conversationID), entities.LogSeverityInfo)

	// The claim moves to processing as soon as a transcript lands, even one
	// too short for the agent; the gate only holds back the agent run.
	status := entities.ClaimStatusProcessing
	if _, err := s.claims.Update(ctx, claimID, entities.ClaimPatch{
		Transcription:  &transcription,
		ConversationID: &conversationID,
		Status:         &status,
	}); err != nil {
		return nil, apperrors.NewInternalError("failed to update claim", err)
	}

	if entryCount < minTranscriptEntries {
		s.logBus.Append(claimID, fmt.Sprintf("Transcript has only %d entries, waiting for a complete conversation", entryCount), entities.LogSeverityWarning)
		return &IntakeResult{ConversationID: conversationID, ClaimID: claimID, Processed: false}, nil
	}

	s.startProcessing(claimID, transcription)
	return &IntakeResult{ConversationID: conversationID, ClaimID: claimID, Processed: true}, nil
}

// ClaimForConversation returns the claim mapped to the conversation. When the
// in-memory mapping is gone but a conversation record survives on disk, a
// fresh claim is created and processing restarts from the stored
// transcription. This is the crash-recovery path.
func (s *IntakeService) ClaimForConversation(ctx context.Context, conversationID string) (*entities.Claim, error) {
	lock := s.acquireConversation(conversationID)
	defer s.releaseConversation(conversationID, lock)

	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load conversation", err)
	}
	if conv == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("conversation %s not found", conversationID))
	}

	if conv.ClaimID != "" {
		claim, err := s.claims.Get(ctx, conv.ClaimID)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to load claim", err)
		}
		if claim != nil {
			return claim, nil
		}
	}

	// Conversation record exists but its claim is gone. Rebuild the mapping
	// and restart processing from the persisted transcription.
	log.Warn().
		Str("conversation_id", conversationID).
		Str("claim_id", conv.ClaimID).
		Msg("claim record missing for conversation, recovering")

	claim, err := s.claims.Create(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create recovery claim", err)
	}
	conv.ClaimID = claim.ID
	if err := s.conversations.Save(ctx, conv); err != nil {
		return nil, apperrors.NewInternalError("failed to save conversation", err)
	}

	s.logBus.Append(claim.ID, fmt.Sprintf("Claim recovered from stored conversation: %s", conversationID), entities.LogSeverityInfo)

	status := entities.ClaimStatusProcessing
	claim, err = s.claims.Update(ctx, claim.ID, entities.ClaimPatch{
		Transcription:  &conv.Transcription,
		ConversationID: &conversationID,
		Status:         &status,
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update recovery claim", err)
	}
	if conv.EntryCount >= minTranscriptEntries {
		s.startProcessing(claim.ID, conv.Transcription)
	}
	return claim, nil
}

// Wait blocks until all in-flight agent runs finish. Used during shutdown.
func (s *IntakeService) Wait() {
	s.processWG.Wait()
}

// resolveClaim returns the claim id mapped to the conversation, creating a
// new claim when no mapping exists. Caller holds the conversation lock.
func (s *IntakeService) resolveClaim(ctx context.Context, conversationID string) (string, error) {
	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return "", apperrors.NewInternalError("failed to load conversation", err)
	}
	if conv != nil && conv.ClaimID != "" {
		existing, err := s.claims.Get(ctx, conv.ClaimID)
		if err != nil {
			return "", apperrors.NewInternalError("failed to load claim", err)
		}
		if existing != nil {
			return existing.ID, nil
		}
	}

	claim, err := s.claims.Create(ctx)
	if err != nil {
		return "", apperrors.NewInternalError("failed to create claim", err)
	}
	s.logBus.Append(claim.ID, fmt.Sprintf("Claim created: %s", claim.ID), entities.LogSeverityInfo)
	return claim.ID, nil
}

// startProcessing launches one background agent run for the claim. The run
// owns the claim's log stream and always closes it, success or failure.
func (s *IntakeService) startProcessing(claimID, transcription string) {
	s.processWG.Add(1)
	go func() {
		defer s.processWG.Done()
		// Detached from the webhook request; the retry policy bounds runtime.
		s.processClaim(context.Background(), claimID, transcription)
	}()
}

func (s *IntakeService) processClaim(ctx context.Context, claimID, transcription string) {
	defer s.logBus.MarkComplete(claimID)

	logf := func(message string, severity entities.LogSeverity) {
		s.logBus.Append(claimID, message, severity)
	}

	decision, err := s.agent.ProcessClaim(ctx, claimID, transcription, logf)
	if err != nil {
		// Claim stays in processing; the decision and status are only ever
		// written together.
		log.Error().Err(err).Str("claim_id", claimID).Msg("agent processing failed")
		return
	}

	patch := decisionPatch(decision)
	if _, err := s.claims.Update(ctx, claimID, patch); err != nil {
		logf(fmt.Sprintf("Failed to persist agent decision: %v", err), entities.LogSeverityError)
		log.Error().Err(err).Str("claim_id", claimID).Msg("failed to persist agent decision")
		return
	}

	verdict := "NOT COVERED"
	if decision.CoverageCovered {
		verdict = "COVERED"
	}
	logf(fmt.Sprintf("Coverage decision: %s", verdict), entities.LogSeveritySuccess)
	logf(fmt.Sprintf("Recommended action: %s", decision.ActionType), entities.LogSeverityInfo)

	if s.notifier != nil {
		if _, err := s.notifier.NotifyDecision(ctx, claimID, decision); err != nil {
			log.Warn().Err(err).Str("claim_id", claimID).Msg("decision notification failed")
		} else {
			logf("Claims desk notified of decision", entities.LogSeverityInfo)
		}
	}

	log.Info().
		Str("claim_id", claimID).
		Bool("covered", decision.CoverageCovered).
		Str("action", decision.ActionType).
		Msg("claim processed")
}

// decisionPatch projects the agent decision onto the claim's extracted fields
// and moves the status to covered or denied.
func decisionPatch(decision *entities.AgentDecision) entities.ClaimPatch {
	status := entities.ClaimStatusDenied
	if decision.CoverageCovered {
		status = entities.ClaimStatusCovered
	}

	patch := entities.ClaimPatch{
		Status:   &status,
		Decision: decision,
	}
	if decision.FullName != "" && decision.FullName != "unknown" {
		name := decision.FullName
		patch.FullName = &name
	}
	if decision.CarMake != "" || decision.CarModel != "" || decision.CarYear != "" {
		patch.CarModel = &entities.CarModel{
			Make:  decision.CarMake,
			Model: decision.CarModel,
			Year:  decision.CarYear,
		}
	}
	if decision.Location != "" || decision.City != "" {
		patch.LocationData = &entities.Location{
			FreeText: decision.Location,
			Components: entities.LocationComponents{
				City: decision.City,
			},
		}
	}
	if decision.AssistanceType != "" && decision.AssistanceType != entities.AssistanceUnknown {
		at := decision.AssistanceType
		patch.AssistanceType = &at
	}
	if decision.SafetyStatus != "" && decision.SafetyStatus != entities.SafetyUnknown {
		ss := decision.SafetyStatus
		patch.SafetyStatus = &ss
	}
	return patch
}

// conversationLock is one reference-counted entry in the keyed lock map.
type conversationLock struct {
	mu   sync.Mutex
	refs int
}

// acquireConversation takes the per-conversation lock, creating the entry on
// first use. Every acquire must be paired with releaseConversation.
func (s *IntakeService) acquireConversation(conversationID string) *conversationLock {
	s.mu.Lock()
	lock, ok := s.locks[conversationID]
	if !ok {
		lock = &conversationLock{}
		s.locks[conversationID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

// releaseConversation unlocks the entry and drops it from the map once the
// last holder is gone.
func (s *IntakeService) releaseConversation(conversationID string, lock *conversationLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, conversationID)
	}
	s.mu.Unlock()
}
