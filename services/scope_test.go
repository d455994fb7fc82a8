package services

import (
	"errors"
	"testing"

	"chatdocs-rag/models"
)

func TestResolveGlobalScope(t *testing.T) {
	r := NewScopeRegistry("doc_chunks")

	partition, err := r.Resolve(models.GlobalScope("manuals"))
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if partition.Collection != "doc_chunks" {
		t.Fatalf("collection = %s", partition.Collection)
	}
	if partition.Meta[MetaScope] != "global" || partition.Meta[MetaCategory] != "manuals" {
		t.Fatalf("unexpected meta: %v", partition.Meta)
	}
	if _, ok := partition.Meta[MetaConversationID]; ok {
		t.Fatalf("global partition carries a conversation id: %v", partition.Meta)
	}
}

func TestResolveConversationScope(t *testing.T) {
	r := NewScopeRegistry("doc_chunks")

	partition, err := r.Resolve(models.ConversationScope("conv-42"))
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if partition.Meta[MetaScope] != "conversation" || partition.Meta[MetaConversationID] != "conv-42" {
		t.Fatalf("unexpected meta: %v", partition.Meta)
	}
}

func TestResolveDistinctScopesDistinctPredicates(t *testing.T) {
	r := NewScopeRegistry("doc_chunks")

	a, _ := r.Resolve(models.ConversationScope("conv-a"))
	b, _ := r.Resolve(models.ConversationScope("conv-b"))
	g, _ := r.Resolve(models.GlobalScope("manuals"))

	if a.Meta[MetaConversationID] == b.Meta[MetaConversationID] {
		t.Fatal("two conversations resolved to the same predicate")
	}
	if a.Meta[MetaScope] == g.Meta[MetaScope] {
		t.Fatal("conversation and global scopes share a scope tag")
	}
}

func TestResolveInvalidScope(t *testing.T) {
	r := NewScopeRegistry("doc_chunks")

	cases := []models.Scope{
		{},
		{Kind: models.ScopeGlobal},
		{Kind: models.ScopeConversation},
		{Kind: models.ScopeGlobal, CategoryID: "x", ConversationID: "y"},
		{Kind: "team", CategoryID: "x"},
	}
	for _, scope := range cases {
		if _, err := r.Resolve(scope); !errors.Is(err, models.ErrConfiguration) {
			t.Fatalf("scope %+v: expected configuration error, got %v", scope, err)
		}
	}
}
