package models

import "fmt"

// ScopeKind discriminates the two retrieval scopes.
type ScopeKind string

const (
	// ScopeGlobal is a category-wide partition shared across all
	// conversations (reference material: manuals, policies).
	ScopeGlobal ScopeKind = "global"

	// ScopeConversation is a partition private to a single chat session
	// (user-uploaded attachments).
	ScopeConversation ScopeKind = "conversation"
)

// Scope identifies the isolation boundary a document is stored and searched
// under. Exactly one of CategoryID/ConversationID is set, matching Kind.
// Scopes are query/insert keys built per request, never persisted themselves.
type Scope struct {
	Kind           ScopeKind `json:"kind"`
	CategoryID     string    `json:"category_id,omitempty"`
	ConversationID string    `json:"conversation_id,omitempty"`
}

// GlobalScope returns a scope for category-wide reference material.
func GlobalScope(categoryID string) Scope {
	return Scope{Kind: ScopeGlobal, CategoryID: categoryID}
}

// ConversationScope returns a scope private to one conversation.
func ConversationScope(conversationID string) Scope {
	return Scope{Kind: ScopeConversation, ConversationID: conversationID}
}

// Validate checks that exactly one variant is populated.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeGlobal:
		if s.CategoryID == "" {
			return fmt.Errorf("%w: global scope requires a category id", ErrConfiguration)
		}
		if s.ConversationID != "" {
			return fmt.Errorf("%w: global scope must not carry a conversation id", ErrConfiguration)
		}
	case ScopeConversation:
		if s.ConversationID == "" {
			return fmt.Errorf("%w: conversation scope requires a conversation id", ErrConfiguration)
		}
		if s.CategoryID != "" {
			return fmt.Errorf("%w: conversation scope must not carry a category id", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown scope kind %q", ErrConfiguration, s.Kind)
	}
	return nil
}

func (s Scope) String() string {
	if s.Kind == ScopeGlobal {
		return fmt.Sprintf("global/%s", s.CategoryID)
	}
	return fmt.Sprintf("conversation/%s", s.ConversationID)
}

// Partition is the physical destination a scope resolves to: one collection
// plus the metadata predicate that isolates the scope inside it. Meta is used
// both as the insert tags on new records and as the filter on queries and
// deletes, so a record is only ever visible through the scope that created it.
type Partition struct {
	Collection string
	Meta       map[string]string
}
