package ai

import (
	"errors"
	"strings"
	"testing"
	"time"

	"chatdocs-rag/models"
)

func TestGetRateLimitsTiers(t *testing.T) {
	tests := []struct {
		tier string
		rpm  int
		tpm  int
		rpd  int
	}{
		{"free", 10, 250000, 250},
		{"tier1", 1000, 1000000, 10000},
		{"tier2", 2000, 4000000, 50000},
		{"unknown", 10, 250000, 250},
	}
	for _, tt := range tests {
		limits := getRateLimits(tt.tier)
		if limits.RPM != tt.rpm || limits.TPM != tt.tpm || limits.RPD != tt.rpd {
			t.Errorf("tier %q: got %+v", tt.tier, limits)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := estimateTokens(""); got != 1 {
		t.Fatalf("empty text = %d tokens", got)
	}
	short := estimateTokens("four")
	long := estimateTokens(strings.Repeat("word ", 100))
	if long <= short {
		t.Fatalf("longer text should cost more tokens: %d vs %d", long, short)
	}
}

func TestDailyQuotaExhaustion(t *testing.T) {
	e := &GeminiEmbedder{dailyCap: 2}

	for i := 0; i < 2; i++ {
		if err := e.checkDailyQuota(); err != nil {
			t.Fatalf("request %d rejected: %v", i, err)
		}
	}
	err := e.checkDailyQuota()
	if err == nil {
		t.Fatal("expected quota exhaustion")
	}
	if !errors.Is(err, models.ErrEmbedding) {
		t.Fatalf("error not ErrEmbedding: %v", err)
	}
}

func TestDailyQuotaResetsOnNewDay(t *testing.T) {
	e := &GeminiEmbedder{dailyCap: 1}

	if err := e.checkDailyQuota(); err != nil {
		t.Fatalf("first request rejected: %v", err)
	}
	if err := e.checkDailyQuota(); err == nil {
		t.Fatal("expected quota exhaustion")
	}

	// Simulate day rollover
	e.dayStart = e.dayStart.Add(-48 * time.Hour)
	if err := e.checkDailyQuota(); err != nil {
		t.Fatalf("request after rollover rejected: %v", err)
	}
}
