package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"chatdocs-rag/internal/logger"
	"chatdocs-rag/models"
	"chatdocs-rag/services"
)

const (
	TaskIngestDocument = "document:ingest"
)

// IngestPayload carries one ingestion request through Redis. The fields
// mirror models.IngestionRequest so a worker can rebuild it verbatim.
type IngestPayload struct {
	SourcePath      string            `json:"source_path"`
	ScopeKind       string            `json:"scope_kind"`
	CategoryID      string            `json:"category_id,omitempty"`
	ConversationID  string            `json:"conversation_id,omitempty"`
	ChunkSize       int               `json:"chunk_size,omitempty"`
	ChunkOverlap    int               `json:"chunk_overlap,omitempty"`
	BatchSize       int               `json:"batch_size,omitempty"`
	InterBatchDelay time.Duration     `json:"inter_batch_delay,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	RefTitle        string            `json:"ref_title,omitempty"`
	RefLink         string            `json:"ref_link,omitempty"`
}

func NewIngestTask(req models.IngestionRequest) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{
		SourcePath:      req.SourcePath,
		ScopeKind:       string(req.Scope.Kind),
		CategoryID:      req.Scope.CategoryID,
		ConversationID:  req.Scope.ConversationID,
		ChunkSize:       req.ChunkSize,
		ChunkOverlap:    req.ChunkOverlap,
		BatchSize:       req.BatchSize,
		InterBatchDelay: req.InterBatchDelay,
		Metadata:        req.Metadata,
		RefTitle:        req.Reference.Title,
		RefLink:         req.Reference.Link,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("critical"),
	), nil
}

// TaskProcessor executes queued ingestion work on the worker side.
type TaskProcessor struct {
	coordinator *services.IngestionCoordinator
}

func NewTaskProcessor(coordinator *services.IngestionCoordinator) *TaskProcessor {
	return &TaskProcessor{coordinator: coordinator}
}

func (p *TaskProcessor) HandleIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	req := models.IngestionRequest{
		SourcePath: payload.SourcePath,
		Scope: models.Scope{
			Kind:           models.ScopeKind(payload.ScopeKind),
			CategoryID:     payload.CategoryID,
			ConversationID: payload.ConversationID,
		},
		ChunkSize:       payload.ChunkSize,
		ChunkOverlap:    payload.ChunkOverlap,
		BatchSize:       payload.BatchSize,
		InterBatchDelay: payload.InterBatchDelay,
		Metadata:        payload.Metadata,
		Reference: models.Reference{
			Title: payload.RefTitle,
			Link:  payload.RefLink,
		},
	}
	if err := req.Scope.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	logger.Info("Processing queued ingestion", "source", payload.SourcePath, "scope", req.Scope.String())

	report, err := p.coordinator.Ingest(ctx, req)
	if err != nil {
		logger.Error("Queued ingestion failed", "source", payload.SourcePath, "error", err)
		return err
	}

	logger.Info("Queued ingestion completed",
		"source", payload.SourcePath,
		"stored", report.ChunksStored,
		"failed", report.ChunksFailed,
	)
	return nil
}

// Mux wires task types to their handlers for an asynq server.
func (p *TaskProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskIngestDocument, p.HandleIngest)
	return mux
}
