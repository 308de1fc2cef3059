package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"rag-chat-backend/internal/chat"
	"rag-chat-backend/models"
	"rag-chat-backend/utils"

	"github.com/gin-gonic/gin"
)

const chatTimeout = 60 * time.Second

func SetupChatRoutes(router *gin.Engine, orchestrator *chat.Orchestrator) {
	group := router.Group("/chat")

	group.POST("/send", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		// Derive from the request context so a client disconnect abandons
		// in-flight upstream calls.
		ctx, cancel := context.WithTimeout(c.Request.Context(), chatTimeout)
		defer cancel()

		resp, err := orchestrator.HandleMessage(ctx, req)
		if err != nil {
			var validationErr *chat.ValidationError
			if errors.As(err, &validationErr) {
				utils.RespondWithBadRequest(c, validationErr.Reason, nil)
				return
			}
			utils.RespondWithInternalError(c, "Failed to process message", nil)
			return
		}

		c.JSON(http.StatusOK, resp)
	})

	group.POST("/clear", func(c *gin.Context) {
		var req models.ClearRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		resp, err := orchestrator.ClearSession(req.SessionToken)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to clear session", nil)
			return
		}

		c.JSON(http.StatusOK, resp)
	})
}
