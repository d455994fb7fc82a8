package routes

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"chatdocs-rag/internal/config"
	"chatdocs-rag/internal/logger"
	"chatdocs-rag/internal/queue"
	"chatdocs-rag/middleware"
	"chatdocs-rag/models"
	"chatdocs-rag/services"
)

var supportedExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
	".xlsx": true,
}

// scopeFromRequest reads scope fields from form values or query params.
// Exactly one of category / conversation_id selects the scope.
func scopeFromRequest(c *gin.Context) (models.Scope, error) {
	category := c.DefaultPostForm("category", c.Query("category"))
	conversationID := c.DefaultPostForm("conversation_id", c.Query("conversation_id"))

	var scope models.Scope
	switch {
	case conversationID != "":
		scope = models.ConversationScope(conversationID)
	default:
		scope = models.GlobalScope(category)
	}
	return scope, scope.Validate()
}

// HandleDocumentUpload accepts a document, stores the raw file, and
// enqueues ingestion. The response returns immediately with the task id.
func HandleDocumentUpload(cfg *config.Config, files *services.FileStorageManager, queueClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, err := scopeFromRequest(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "invalid_scope",
				"message":    err.Error(),
			})
			return
		}

		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "file_too_large",
				"message":    "File size exceeds maximum limit",
			})
			return
		}

		file, header, err := c.Request.FormFile("document")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "no_file",
				"message":    "No document provided",
			})
			return
		}
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !supportedExtensions[ext] {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "unsupported_file_type",
				"message":    "Supported types: pdf, txt, md, html, xlsx",
			})
			return
		}

		// Files are grouped on disk by the scope identifier so conversation
		// deletion can remove them in one pass.
		folderID := scope.CategoryID
		if scope.Kind == models.ScopeConversation {
			folderID = scope.ConversationID
		}

		stored, err := files.Store(file, header.Filename, folderID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "file_store_error",
				"message":    err.Error(),
			})
			return
		}

		req := models.IngestionRequest{
			SourcePath:      stored.Path,
			Scope:           scope,
			ChunkSize:       intParamOr(c, "chunk_size", cfg.DefaultChunkSize),
			ChunkOverlap:    intParamOr(c, "chunk_overlap", cfg.DefaultChunkOverlap),
			BatchSize:       intParamOr(c, "batch_size", cfg.BatchSize),
			InterBatchDelay: time.Duration(cfg.InterBatchDelayMs) * time.Millisecond,
			Reference: models.Reference{
				Title: c.DefaultPostForm("ref_title", header.Filename),
				Link:  c.PostForm("ref_link"),
			},
		}

		task, err := queue.NewIngestTask(req)
		if err != nil {
			files.Cleanup(stored.Path)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error_code": "queue_error",
				"message":    "Failed to create ingestion task",
			})
			return
		}

		info, err := queueClient.Enqueue(task)
		if err != nil {
			files.Cleanup(stored.Path)
			logger.Error("Failed to enqueue ingestion task",
				"request_id", middleware.GetRequestID(c), "file", header.Filename, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error_code": "queue_error",
				"message":    "Failed to enqueue ingestion task",
			})
			return
		}

		logger.Info("Document enqueued for ingestion",
			"request_id", middleware.GetRequestID(c),
			"task_id", info.ID,
			"scope", scope.String(),
			"file", header.Filename,
		)

		c.JSON(http.StatusAccepted, gin.H{
			"message":  "Document accepted for ingestion",
			"task_id":  info.ID,
			"filename": header.Filename,
			"size":     stored.Size,
			"hash":     stored.Hash,
			"scope":    scope.String(),
		})
	}
}

// HandleSearch runs a scoped similarity search and returns the matching
// passages with scores and citations.
func HandleSearch(retrieval *services.RetrievalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, err := scopeFromRequest(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "invalid_scope",
				"message":    err.Error(),
			})
			return
		}

		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "missing_query",
				"message":    "Query parameter 'q' is required",
			})
			return
		}

		topK := 5
		if k, err := strconv.Atoi(c.DefaultQuery("top_k", "5")); err == nil && k > 0 && k <= 50 {
			topK = k
		}

		results, err := retrieval.Search(c.Request.Context(), scope, query, topK)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error_code": "search_failed",
				"message":    "Failed to search documents",
			})
			return
		}

		passages := make([]gin.H, 0, len(results))
		for _, r := range results {
			passages = append(passages, gin.H{
				"text":      r.Record.Text,
				"score":     r.Score,
				"ref_title": r.Record.RefTitle,
				"ref_link":  r.Record.RefLink,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"scope":    scope.String(),
			"query":    query,
			"passages": passages,
		})
	}
}

// HandleDeleteScope removes every indexed chunk in the requested scope.
func HandleDeleteScope(retrieval *services.RetrievalService) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, err := scopeFromRequest(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "invalid_scope",
				"message":    err.Error(),
			})
			return
		}

		deleted, err := retrieval.DeleteAll(c.Request.Context(), scope)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error_code": "delete_failed",
				"message":    "Failed to delete indexed documents",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"scope":   scope.String(),
			"deleted": deleted,
		})
	}
}

// HandleDeleteConversation cascades a conversation deletion: vectors first,
// then stored files.
func HandleDeleteConversation(lifecycle *services.LifecycleBinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationID")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error_code": "missing_conversation_id",
				"message":    "Conversation ID is required",
			})
			return
		}

		if err := lifecycle.OnConversationDeleted(c.Request.Context(), conversationID); err != nil {
			logger.Error("Conversation delete failed",
				"request_id", middleware.GetRequestID(c), "conversation_id", conversationID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error_code": "delete_failed",
				"message":    "Failed to delete conversation data",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":         "Conversation data deleted",
			"conversation_id": conversationID,
		})
	}
}

func intParamOr(c *gin.Context, name string, fallback int) int {
	raw := c.DefaultPostForm(name, c.Query(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
