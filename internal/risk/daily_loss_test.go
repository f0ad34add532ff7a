package risk

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

func TestDailyLossLimitTripsAtCap(t *testing.T) {
	c := NewDailyLossLimit(decimal.NewFromInt(50), zap.NewNop())
	ctx := context.Background()
	opp := testOpportunity("BTC", "50000", "50025")

	for _, loss := range []string{"-20", "-20"} {
		ok, _, err := c.CheckOpportunity(ctx, opp)
		if err != nil {
			t.Fatalf("check failed: %v", err)
		}
		if !ok {
			t.Fatalf("expected trading allowed before the cap")
		}
		if err := c.RecordResult(ctx, completedResult("BTC", loss)); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	// -40 so far, still allowed.
	ok, _, err := c.CheckOpportunity(ctx, opp)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected trading allowed at -40")
	}

	if err := c.RecordResult(ctx, completedResult("BTC", "-20")); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	ok, reason, err := c.CheckOpportunity(ctx, opp)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if ok {
		t.Fatalf("expected denial at -60")
	}
	if !strings.Contains(reason, "daily loss limit") {
		t.Fatalf("unexpected reason: %q", reason)
	}
}

func TestDailyLossLimitIgnoresFailedTrades(t *testing.T) {
	c := NewDailyLossLimit(decimal.NewFromInt(50), zap.NewNop())
	ctx := context.Background()

	failed := completedResult("BTC", "-100")
	failed.Status = models.StatusFailed
	if err := c.RecordResult(ctx, failed); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	ok, _, err := c.CheckOpportunity(ctx, testOpportunity("BTC", "50000", "50025"))
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !ok {
		t.Fatalf("failed trades must not count against the daily limit")
	}
}

func TestDailyLossLimitReset(t *testing.T) {
	c := NewDailyLossLimit(decimal.NewFromInt(50), zap.NewNop())
	ctx := context.Background()

	if err := c.RecordResult(ctx, completedResult("BTC", "-60")); err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if ok, _, _ := c.CheckOpportunity(ctx, testOpportunity("BTC", "50000", "50025")); ok {
		t.Fatalf("expected denial before reset")
	}
	if err := c.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if ok, _, _ := c.CheckOpportunity(ctx, testOpportunity("BTC", "50000", "50025")); !ok {
		t.Fatalf("expected trading allowed after reset")
	}
}
