package services

import (
	"context"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"chatdocs-rag/internal/ai"
	"chatdocs-rag/internal/storage"
	"chatdocs-rag/internal/telemetry"
	"chatdocs-rag/models"
)

// SearchDocumentsTool is the function name the chat orchestrator registers
// for the duration of one request when the conversation has attachments.
const SearchDocumentsTool = "search_documents"

const defaultTopK = 5

// ToolHandler executes one named tool call and returns the text handed back
// to the model.
type ToolHandler func(ctx context.Context, query string) (string, error)

// RetrievalService exposes scoped search plus the load/delete operations the
// surrounding application uses directly.
type RetrievalService struct {
	embedder ai.Embedder
	store    storage.VectorStore
	scopes   *ScopeRegistry
	metrics  *telemetry.Metrics
}

func NewRetrievalService(embedder ai.Embedder, store storage.VectorStore, scopes *ScopeRegistry, metrics *telemetry.Metrics) *RetrievalService {
	return &RetrievalService{embedder: embedder, store: store, scopes: scopes, metrics: metrics}
}

// Search returns the topK records most similar to the query within the
// scope. Never mutates state.
func (s *RetrievalService) Search(ctx context.Context, scope models.Scope, query string, topK int) ([]models.SearchResult, error) {
	partition, err := s.scopes.Resolve(scope)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SearchRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", string(scope.Kind))))
	}
	return s.store.Query(ctx, partition, vector, topK)
}

// Delete removes records in the scope matching the extra metadata predicate.
// Deleting already-absent records is not an error.
func (s *RetrievalService) Delete(ctx context.Context, scope models.Scope, match map[string]string) (int64, error) {
	partition, err := s.scopes.Resolve(scope)
	if err != nil {
		return 0, err
	}
	deleted, err := s.store.Delete(ctx, partition, match)
	if err != nil {
		return 0, err
	}
	if s.metrics != nil && deleted > 0 {
		s.metrics.RecordsDeleted.Add(ctx, deleted, metric.WithAttributes(attribute.String("scope", string(scope.Kind))))
	}
	return deleted, nil
}

// DeleteAll removes every record in the scope.
func (s *RetrievalService) DeleteAll(ctx context.Context, scope models.Scope) (int64, error) {
	return s.Delete(ctx, scope, nil)
}

// CallableTools returns the function declarations and matching handlers for
// one scope. Built fresh per request, never a long-lived registry: the tool
// set follows conversation state and shares nothing across conversations.
func (s *RetrievalService) CallableTools(scope models.Scope) ([]*genai.Tool, map[string]ToolHandler) {
	description := "Search the documents attached to this conversation and return the most relevant passages."
	if scope.Kind == models.ScopeGlobal {
		description = fmt.Sprintf("Search the %q reference documents and return the most relevant passages.", scope.CategoryID)
	}

	tools := []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        SearchDocumentsTool,
			Description: description,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {
						Type:        genai.TypeString,
						Description: "Natural language query to search the documents with",
					},
				},
				Required: []string{"query"},
			},
		}},
	}}

	handlers := map[string]ToolHandler{
		SearchDocumentsTool: func(ctx context.Context, query string) (string, error) {
			results, err := s.Search(ctx, scope, query, defaultTopK)
			if err != nil {
				return "", err
			}
			return FormatToolResult(results), nil
		},
	}

	return tools, handlers
}

// FormatToolResult concatenates the top-K record texts with citation
// metadata into the string handed back to the model.
func FormatToolResult(results []models.SearchResult) string {
	if len(results) == 0 {
		return "No matching passages found."
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "--- Passage %d", i+1)
		if r.Record.RefTitle != "" {
			fmt.Fprintf(&b, " (source: %s", r.Record.RefTitle)
			if r.Record.RefLink != "" {
				fmt.Fprintf(&b, ", %s", r.Record.RefLink)
			}
			b.WriteString(")")
		}
		b.WriteString(" ---\n")
		b.WriteString(r.Record.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
