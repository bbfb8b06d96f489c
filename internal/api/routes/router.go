package routes

import (
	"net/http"

	"github.com/claimtriage/roadside/backend/internal/api/handlers"
	"github.com/claimtriage/roadside/backend/internal/api/middleware"
	"github.com/claimtriage/roadside/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	webhookHandler      *handlers.WebhookHandler
	claimHandler        *handlers.ClaimHandler
	logStreamHandler    *handlers.LogStreamHandler
	conversationHandler *handlers.ConversationHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	webhookHandler *handlers.WebhookHandler,
	claimHandler *handlers.ClaimHandler,
	logStreamHandler *handlers.LogStreamHandler,
	conversationHandler *handlers.ConversationHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:                 http.NewServeMux(),
		webhookHandler:      webhookHandler,
		claimHandler:        claimHandler,
		logStreamHandler:    logStreamHandler,
		conversationHandler: conversationHandler,
		metrics:             metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Webhook endpoints
	r.mux.HandleFunc("POST /webhook/elevenlabs/transcription", r.webhookHandler.ReceiveTranscription)
	r.mux.HandleFunc("GET /webhook/elevenlabs/transcription", r.webhookHandler.VerifyEndpoint)

	// Claim endpoints
	r.mux.HandleFunc("GET /api/claims/{id}", r.claimHandler.GetClaim)
	r.mux.HandleFunc("GET /api/claims/{id}/coverage", r.claimHandler.GetCoverage)
	r.mux.HandleFunc("GET /api/claims/{id}/action", r.claimHandler.GetAction)
	r.mux.HandleFunc("GET /api/claims/{id}/message", r.claimHandler.GetMessage)
	r.mux.HandleFunc("GET /api/claims/{id}/logs", r.claimHandler.GetLogs)
	r.mux.HandleFunc("GET /api/claims/{id}/logs/stream", r.logStreamHandler.StreamClaimLogs)
	r.mux.HandleFunc("POST /api/claims/{id}/approve", r.claimHandler.Approve)
	r.mux.HandleFunc("POST /api/claims/{id}/reject", r.claimHandler.Reject)

	// Conversation endpoints
	r.mux.HandleFunc("GET /api/conversations/latest", r.conversationHandler.GetLatest)
	r.mux.HandleFunc("GET /api/conversations/{id}/transcription", r.conversationHandler.GetTranscription)
	r.mux.HandleFunc("GET /api/conversations/{id}/claim", r.conversationHandler.GetClaim)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	// CORS wraps everything so preflights never reach the handlers
	handler = middleware.CORSMiddleware(handler)

	return handler
}
