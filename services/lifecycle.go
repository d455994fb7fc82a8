package services

import (
	"context"

	"chatdocs-rag/internal/logger"
	"chatdocs-rag/models"
)

// FileStore is the external collaborator owning the raw uploaded bytes.
type FileStore interface {
	// DeleteFilesByFolder removes every stored file under the folder and
	// returns the count removed. Absent folders are not an error.
	DeleteFilesByFolder(folderID string) (int, error)
}

// LifecycleBinder ties document/collection deletion to conversation and
// session deletion. Vector records are removed before raw files: the raw
// files are the source of truth for re-ingestion, so if vector deletion
// fails the cascade stops and the files survive for a retry.
type LifecycleBinder struct {
	retrieval *RetrievalService
	files     FileStore
}

func NewLifecycleBinder(retrieval *RetrievalService, files FileStore) *LifecycleBinder {
	return &LifecycleBinder{retrieval: retrieval, files: files}
}

// OnConversationDeleted cascades to the conversation's vector partition,
// then to its upload folder. Safe to call for conversations that never had
// attachments.
func (b *LifecycleBinder) OnConversationDeleted(ctx context.Context, conversationID string) error {
	records, err := b.retrieval.DeleteAll(ctx, models.ConversationScope(conversationID))
	if err != nil {
		return err
	}

	files := 0
	if b.files != nil {
		files, err = b.files.DeleteFilesByFolder(conversationID)
		if err != nil {
			return err
		}
	}

	logger.Info("Conversation data removed", "conversation_id", conversationID, "records", records, "files", files)
	return nil
}

// OnSessionDeleted cascades for a deleted session. Sessions and
// conversations share an id namespace: deleting a session removes its
// conversation's scoped data.
func (b *LifecycleBinder) OnSessionDeleted(ctx context.Context, sessionID string) error {
	return b.OnConversationDeleted(ctx, sessionID)
}
