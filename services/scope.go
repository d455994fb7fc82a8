package services

import (
	"chatdocs-rag/models"
)

// Metadata keys written on every record and used as filter predicates.
const (
	MetaScope          = "scope"
	MetaCategory       = "category"
	MetaConversationID = "conversation_id"
)

// ScopeRegistry is the single place that maps a scope descriptor to its
// storage partition and filter predicate. Everything else depends on it
// instead of building filters ad hoc, which keeps one conversation's
// documents invisible to another conversation's search.
type ScopeRegistry struct {
	collection string
}

// NewScopeRegistry routes all scopes into one denormalized collection,
// isolated by metadata.
func NewScopeRegistry(collection string) *ScopeRegistry {
	return &ScopeRegistry{collection: collection}
}

// Resolve validates the descriptor and returns its partition.
func (r *ScopeRegistry) Resolve(scope models.Scope) (models.Partition, error) {
	if err := scope.Validate(); err != nil {
		return models.Partition{}, err
	}

	switch scope.Kind {
	case models.ScopeGlobal:
		return models.Partition{
			Collection: r.collection,
			Meta: map[string]string{
				MetaScope:    string(models.ScopeGlobal),
				MetaCategory: scope.CategoryID,
			},
		}, nil
	default: // models.ScopeConversation, Validate rejected everything else
		return models.Partition{
			Collection: r.collection,
			Meta: map[string]string{
				MetaScope:          string(models.ScopeConversation),
				MetaConversationID: scope.ConversationID,
			},
		}, nil
	}
}
