package risk

import (
	"context"
	"fmt"
	"time"

	"stable-arb-bot/internal/models"
)

// TimeWindow restricts trading to a daily wall-clock interval in local time.
// A start later than the end wraps past midnight. Weekends are excluded
// unless enabled.
type TimeWindow struct {
	startMinute     int
	endMinute       int
	tradeOnWeekends bool
}

func NewTimeWindow(startHour, startMin, endHour, endMin int, tradeOnWeekends bool) (*TimeWindow, error) {
	if startHour < 0 || startHour > 23 || startMin < 0 || startMin > 59 {
		return nil, fmt.Errorf("invalid start time %02d:%02d", startHour, startMin)
	}
	if endHour < 0 || endHour > 23 || endMin < 0 || endMin > 59 {
		return nil, fmt.Errorf("invalid end time %02d:%02d", endHour, endMin)
	}
	return &TimeWindow{
		startMinute:     startHour*60 + startMin,
		endMinute:       endHour*60 + endMin,
		tradeOnWeekends: tradeOnWeekends,
	}, nil
}

func (c *TimeWindow) Name() string { return "time-window" }

func (c *TimeWindow) Description() string {
	return "restrict trading to a configured daily time window"
}

func (c *TimeWindow) CheckOpportunity(_ context.Context, _ *models.ArbitrageOpportunity) (bool, string, error) {
	now := time.Now()

	if wd := now.Weekday(); (wd == time.Saturday || wd == time.Sunday) && !c.tradeOnWeekends {
		return false, fmt.Sprintf("weekend trading disabled (%s)", wd), nil
	}

	current := now.Hour()*60 + now.Minute()
	var inWindow bool
	if c.startMinute <= c.endMinute {
		inWindow = current >= c.startMinute && current <= c.endMinute
	} else {
		inWindow = current >= c.startMinute || current <= c.endMinute
	}
	if !inWindow {
		return false, fmt.Sprintf("current time %02d:%02d outside trading window %02d:%02d-%02d:%02d",
			now.Hour(), now.Minute(),
			c.startMinute/60, c.startMinute%60,
			c.endMinute/60, c.endMinute%60), nil
	}
	return true, "", nil
}

func (c *TimeWindow) RecordResult(_ context.Context, _ *models.ArbitrageResult) error { return nil }

func (c *TimeWindow) Reset(_ context.Context) error { return nil }
