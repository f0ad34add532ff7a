// Package risk gates opportunity execution. The Manager runs every enabled
// controller in configured order and accumulates denial reasons instead of
// short-circuiting, so operators see the full picture in one log line.
package risk

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"stable-arb-bot/internal/models"
)

type Controller interface {
	Name() string
	Description() string
	// CheckOpportunity reports whether the opportunity may execute and, when
	// denied, a human-readable reason.
	CheckOpportunity(ctx context.Context, opp *models.ArbitrageOpportunity) (bool, string, error)
	// RecordResult feeds a terminal trade result back into the controller's
	// rolling state.
	RecordResult(ctx context.Context, result *models.ArbitrageResult) error
	// Reset clears rolling state. Exposed for operator tooling.
	Reset(ctx context.Context) error
}

type Manager struct {
	controllers []Controller
	log         *zap.Logger
}

func NewManager(log *zap.Logger) *Manager {
	return &Manager{log: log}
}

func (m *Manager) Add(c Controller) {
	m.controllers = append(m.controllers, c)
	m.log.Info("risk controller enabled", zap.String("name", c.Name()))
}

// ValidateOpportunity runs all controllers. A controller error counts as a
// denial with the error folded into the reason.
func (m *Manager) ValidateOpportunity(ctx context.Context, opp *models.ArbitrageOpportunity) (bool, []string) {
	allowed := true
	var reasons []string
	for _, c := range m.controllers {
		ok, reason, err := c.CheckOpportunity(ctx, opp)
		if err != nil {
			allowed = false
			reasons = append(reasons, fmt.Sprintf("%s: check error: %v", c.Name(), err))
			continue
		}
		if !ok {
			allowed = false
			if reason != "" {
				reasons = append(reasons, fmt.Sprintf("%s: %s", c.Name(), reason))
			}
		}
	}
	return allowed, reasons
}

// RecordResult fans the result out to every controller. The first error
// aborts the fan-out and is returned to the caller.
func (m *Manager) RecordResult(ctx context.Context, result *models.ArbitrageResult) error {
	for _, c := range m.controllers {
		if err := c.RecordResult(ctx, result); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return nil
}

func (m *Manager) ResetAll(ctx context.Context) error {
	for _, c := range m.controllers {
		if err := c.Reset(ctx); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return nil
}
