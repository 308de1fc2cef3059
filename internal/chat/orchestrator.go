// Package chat drives retrieval, prompt assembly, completion and session
// continuation for a single inbound message.
package chat

import (
	"context"
	"time"

	"rag-chat-backend/internal/ai"
	"rag-chat-backend/internal/cache"
	"rag-chat-backend/internal/config"
	"rag-chat-backend/internal/logger"
	"rag-chat-backend/internal/retrieval"
	"rag-chat-backend/internal/session"
	"rag-chat-backend/internal/telemetry"
	"rag-chat-backend/models"
	"rag-chat-backend/utils"
)

const fallbackAnswer = "I'm having trouble reaching the answer service right now. " +
	"Please try again in a moment."

// ContextRetriever is what the orchestrator needs from the retrieval layer.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, tokenBudget int) (string, bool, retrieval.Stats, error)
}

type Orchestrator struct {
	cfg       *config.Config
	retriever ContextRetriever
	completer ai.Completer
	sessions  *session.Service
	cache     *cache.ResponseCache
	metrics   *telemetry.Metrics
}

func NewOrchestrator(
	cfg *config.Config,
	retriever ContextRetriever,
	completer ai.Completer,
	sessions *session.Service,
	responseCache *cache.ResponseCache,
	metrics *telemetry.Metrics,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		retriever: retriever,
		completer: completer,
		sessions:  sessions,
		cache:     responseCache,
		metrics:   metrics,
	}
}

// HandleMessage processes one chat message. Dependency failures degrade to
// a fallback payload; the only error returned to the HTTP layer is a
// ValidationError (or a token issue failure, which is a server fault).
func (o *Orchestrator) HandleMessage(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	if err := ValidateMessage(req.Message); err != nil {
		return models.ChatResponse{}, err
	}

	state, isNew := o.sessions.ValidateAndRefresh(req.SessionToken)

	fingerprint := utils.Fingerprint(req.Message, historySlice(state.History))

	payload, cached := o.cache.Get(fingerprint)
	if !cached {
		var err error
		payload, err = o.cache.Generate(fingerprint, func() (models.AnswerPayload, error) {
			return o.generate(ctx, req.Message, state.History), nil
		})
		if err != nil {
			// Single-flight only propagates what generate returns, so this
			// is unreachable in practice; degrade anyway.
			logger.Error("Generation failed", "error", err)
			payload = fallbackPayload(false)
		}

		// Fallback answers are transient; caching them would pin the
		// degraded response for the whole TTL.
		if !(payload.NeedsHuman && payload.Confidence == 0) {
			o.cache.Put(fingerprint, state.SessionID, payload)
		}
	}

	// The session advances even for cached answers: counter, history and
	// expiry must move forward on every message.
	o.sessions.AppendExchange(&state, req.Message, payload.Answer)
	token, err := o.sessions.Issue(state)
	if err != nil {
		return models.ChatResponse{}, err
	}

	o.metrics.RecordChat(ctx, cached, payload.NeedsHuman && payload.Confidence == 0, payload.ContextUsed, payload.Confidence)

	return models.ChatResponse{
		Answer:       payload.Answer,
		Confidence:   payload.Confidence,
		NeedsHuman:   payload.NeedsHuman,
		ContextUsed:  payload.ContextUsed,
		SessionToken: token,
		IsNewSession: isNew,
		Timestamp:    time.Now(),
	}, nil
}

// ClearSession invalidates the session's cached responses and starts a
// fresh session.
func (o *Orchestrator) ClearSession(token string) (models.ClearResponse, error) {
	state, isNew := o.sessions.ValidateAndRefresh(token)
	if !isNew {
		o.cache.Invalidate(state.SessionID)
	}

	fresh, err := o.sessions.Issue(o.sessions.NewState())
	if err != nil {
		return models.ClearResponse{}, err
	}

	return models.ClearResponse{SessionToken: fresh, Cleared: !isNew}, nil
}

func (o *Orchestrator) generate(ctx context.Context, message string, history []session.Exchange) models.AnswerPayload {
	budget := o.cfg.ModelMaxTokens - o.cfg.PromptReserve - o.cfg.AnswerReserve

	contextText, used, stats, err := o.retriever.Retrieve(ctx, message, budget)
	if err != nil {
		// Retrieval failures degrade to a context-free answer instead of
		// failing the whole request.
		logger.Warn("Retrieval failed, answering without context", "error", err)
		contextText, used, stats = "", false, retrieval.Stats{}
	}

	prompt := BuildPrompt(contextText, history, message)

	answer, err := o.completer.Complete(ctx, prompt, o.cfg.AnswerReserve, o.cfg.Temperature)
	if err != nil {
		logger.Error("Completion failed after retries", "error", err)
		return fallbackPayload(used)
	}

	confidence := ConfidenceScore(used, stats, answer)
	return models.AnswerPayload{
		Answer:      answer,
		Confidence:  confidence,
		NeedsHuman:  confidence < needsHumanThreshold,
		ContextUsed: used,
	}
}

func fallbackPayload(contextUsed bool) models.AnswerPayload {
	return models.AnswerPayload{
		Answer:      fallbackAnswer,
		Confidence:  0.0,
		NeedsHuman:  true,
		ContextUsed: contextUsed,
	}
}

// historySlice flattens the history texts that participate in the cache
// fingerprint.
func historySlice(history []session.Exchange) []string {
	parts := make([]string, 0, len(history))
	for _, ex := range history {
		parts = append(parts, ex.Role+":"+ex.Text)
	}
	return parts
}
