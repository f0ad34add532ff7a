package risk

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestBlacklistDeniesListedAsset(t *testing.T) {
	c := NewPairBlacklist(zap.NewNop())
	ctx := context.Background()

	ok, _, err := c.CheckOpportunity(ctx, testOpportunity("BTC", "50000", "50025"))
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected unlisted asset allowed")
	}

	c.AddBaseAsset("BTC")
	ok, reason, err := c.CheckOpportunity(ctx, testOpportunity("BTC", "50000", "50025"))
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if ok {
		t.Fatalf("expected blacklisted asset denied")
	}
	if !strings.Contains(reason, "blacklisted") {
		t.Fatalf("unexpected reason: %q", reason)
	}

	// Other assets are untouched.
	if ok, _, _ := c.CheckOpportunity(ctx, testOpportunity("ETH", "3000", "3002")); !ok {
		t.Fatalf("expected other assets allowed")
	}

	c.RemoveBaseAsset("BTC")
	if ok, _, _ := c.CheckOpportunity(ctx, testOpportunity("BTC", "50000", "50025")); !ok {
		t.Fatalf("expected asset allowed after removal")
	}
}

func TestBlacklistSinglePairDenies(t *testing.T) {
	c := NewPairBlacklist(zap.NewNop())

	// Listing one quote market is enough: both legs are needed to trade.
	c.AddPair("BTCUSDC")
	ok, _, err := c.CheckOpportunity(context.Background(), testOpportunity("BTC", "50000", "50025"))
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if ok {
		t.Fatalf("expected denial when one leg is blacklisted")
	}
}
