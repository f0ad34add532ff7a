package risk

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stable-arb-bot/internal/exchange/mock"
)

func TestExposureDeniesOverLimit(t *testing.T) {
	client := mock.New()
	c := NewExposure(client, zap.NewNop())
	ctx := context.Background()

	// Mock holds 1 BTC. A 0.002 BTC trade breaches a 1 BTC cap but not 2.
	c.SetMaxExposure("BTC", decimal.NewFromInt(2))
	ok, reason, err := c.CheckOpportunity(ctx, testOpportunity("BTC", "50000", "50025"))
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected trade within the cap, denied with %q", reason)
	}

	c.SetMaxExposure("BTC", decimal.NewFromInt(1))
	ok, reason, err = c.CheckOpportunity(ctx, testOpportunity("BTC", "50000", "50025"))
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if ok {
		t.Fatalf("expected denial over the cap")
	}
	if !strings.Contains(reason, "exceed limit") {
		t.Fatalf("unexpected reason: %q", reason)
	}
}

func TestExposureIgnoresUnconfiguredAssets(t *testing.T) {
	client := mock.New()
	c := NewExposure(client, zap.NewNop())

	ok, _, err := c.CheckOpportunity(context.Background(), testOpportunity("ETH", "3000", "3002"))
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !ok {
		t.Fatalf("assets without a configured cap must pass")
	}
}
