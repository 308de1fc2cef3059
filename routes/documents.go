package routes

import (
	"context"
	"net/http"
	"time"

	"rag-chat-backend/internal/index"
	"rag-chat-backend/internal/ingest"
	"rag-chat-backend/internal/queue"
	"rag-chat-backend/models"
	"rag-chat-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func SetupDocumentRoutes(router *gin.Engine, ix *index.Index, ingestor *ingest.Ingestor, tasks *asynq.Client) {
	group := router.Group("/documents")

	group.GET("/status", func(c *gin.Context) {
		info, err := ix.CollectionInfo(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read collection info", nil)
			return
		}
		c.JSON(http.StatusOK, info)
	})

	// Synchronous ingestion for small documents
	group.POST("/ingest", func(c *gin.Context) {
		var req models.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Minute)
		defer cancel()

		resp, err := ingestor.Ingest(ctx, req.Text, req.Metadata)
		if err != nil {
			utils.RespondWithInternalError(c, "Ingestion failed", gin.H{
				"ingested": resp.Ingested,
				"skipped":  resp.Skipped,
			})
			return
		}

		c.JSON(http.StatusOK, resp)
	})

	// Asynchronous ingestion: enqueue and return immediately
	group.POST("/ingest/async", func(c *gin.Context) {
		var req models.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		task, err := queue.NewIngestTask("api", req.Text, req.Metadata)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build task", nil)
			return
		}

		info, err := tasks.EnqueueContext(c.Request.Context(), task)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to enqueue task", nil)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "queue": info.Queue})
	})
}
