package models

import (
	"errors"
	"testing"
)

func TestScopeValidate(t *testing.T) {
	cases := []struct {
		name    string
		scope   Scope
		wantErr bool
	}{
		{"global", GlobalScope("manuals"), false},
		{"conversation", ConversationScope("conv-1"), false},
		{"global without category", Scope{Kind: ScopeGlobal}, true},
		{"conversation without id", Scope{Kind: ScopeConversation}, true},
		{"global with conversation id", Scope{Kind: ScopeGlobal, CategoryID: "a", ConversationID: "b"}, true},
		{"conversation with category", Scope{Kind: ScopeConversation, ConversationID: "b", CategoryID: "a"}, true},
		{"unknown kind", Scope{Kind: "tenant", CategoryID: "a"}, true},
		{"empty", Scope{}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.scope.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Fatalf("expected configuration error, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestScopeString(t *testing.T) {
	if got := GlobalScope("manuals").String(); got != "global/manuals" {
		t.Fatalf("got %q", got)
	}
	if got := ConversationScope("conv-1").String(); got != "conversation/conv-1" {
		t.Fatalf("got %q", got)
	}
}

func TestIngestionRequestDefaults(t *testing.T) {
	req := IngestionRequest{SourcePath: "doc.txt", Scope: GlobalScope("manuals")}
	req.ApplyDefaults()

	if req.BatchSize < 1 || req.BatchSize > 4 {
		t.Fatalf("default batch size out of range: %d", req.BatchSize)
	}
	if req.InterBatchDelay != DefaultInterBatchDelay {
		t.Fatalf("default delay = %v", req.InterBatchDelay)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("defaulted request invalid: %v", err)
	}

	// Explicit values survive defaulting
	req2 := IngestionRequest{SourcePath: "doc.txt", Scope: GlobalScope("manuals"), BatchSize: 9}
	req2.ApplyDefaults()
	if req2.BatchSize != 9 {
		t.Fatalf("explicit batch size overwritten: %d", req2.BatchSize)
	}
}

func TestIngestionRequestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  IngestionRequest
	}{
		{"missing source", IngestionRequest{Scope: GlobalScope("m"), BatchSize: 1, InterBatchDelay: 1}},
		{"invalid scope", IngestionRequest{SourcePath: "a.txt", BatchSize: 1, InterBatchDelay: 1}},
		{"zero batch", IngestionRequest{SourcePath: "a.txt", Scope: GlobalScope("m")}},
		{"negative chunk size", IngestionRequest{SourcePath: "a.txt", Scope: GlobalScope("m"), BatchSize: 1, InterBatchDelay: 1, ChunkSize: -5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.req.Validate(); !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}
