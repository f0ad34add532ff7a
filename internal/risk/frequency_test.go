package risk

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

func TestFrequencyMinIntervalGate(t *testing.T) {
	c := NewFrequency(time.Hour, 100, 24*time.Hour, zap.NewNop())
	ctx := context.Background()
	opp := testOpportunity("BTC", "50000", "50025")

	ok, _, err := c.CheckOpportunity(ctx, opp)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected first trade allowed")
	}
	if err := c.RecordResult(ctx, completedResult("BTC", "1")); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	ok, reason, err := c.CheckOpportunity(ctx, opp)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if ok {
		t.Fatalf("expected denial inside the minimum interval")
	}
	if !strings.Contains(reason, "too frequently") {
		t.Fatalf("unexpected reason: %q", reason)
	}
}

func TestFrequencyWindowCap(t *testing.T) {
	c := NewFrequency(0, 2, time.Hour, zap.NewNop())
	ctx := context.Background()
	opp := testOpportunity("BTC", "50000", "50025")

	for i := 0; i < 2; i++ {
		ok, reason, err := c.CheckOpportunity(ctx, opp)
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if !ok {
			t.Fatalf("expected trade %d allowed, denied with %q", i+1, reason)
		}
		if err := c.RecordResult(ctx, completedResult("BTC", "1")); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	ok, reason, err := c.CheckOpportunity(ctx, opp)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if ok {
		t.Fatalf("expected window cap denial")
	}
	if !strings.Contains(reason, "max 2 trades") {
		t.Fatalf("unexpected reason: %q", reason)
	}
}

func TestFrequencyCountsFailedTrades(t *testing.T) {
	c := NewFrequency(time.Hour, 100, 24*time.Hour, zap.NewNop())
	ctx := context.Background()

	failed := completedResult("BTC", "0")
	failed.Status = models.StatusFailed
	if err := c.RecordResult(ctx, failed); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if ok, _, _ := c.CheckOpportunity(ctx, testOpportunity("BTC", "50000", "50025")); ok {
		t.Fatalf("failed trades must still rate-limit")
	}
}
