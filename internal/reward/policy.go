// Package reward computes ledger amounts for triggers. Everything here is
// pure: no storage, no clock.
package reward

import (
	"fmt"
	"math"

	"github.com/arbr39/kaizen/internal/domain"
)

// Context carries the facts a trigger's amount may depend on.
type Context struct {
	// Count is the number of units completed, e.g. tasks done.
	Count int
	// StreakDays is the current streak length for streak bonuses.
	StreakDays int
	// Energy and TimeEstimate are inbox item tags.
	Energy       string
	TimeEstimate string
}

const defaultInboxBase = 15

var inboxTimeTable = map[string]int64{
	domain.Time5Min:  10,
	domain.Time15Min: 15,
	domain.Time30Min: 25,
	domain.Time1Hour: 40,
}

var energyMultiplier = map[string]float64{
	domain.EnergyLow:    1.0,
	domain.EnergyMedium: 1.5,
	domain.EnergyHigh:   2.0,
}

// InboxAmount returns the reward for finishing an inbox item with the given
// tags: the time-estimate base times the energy multiplier, rounded up.
// Unknown or empty tags fall back to a base of 15 and a multiplier of 1.
func InboxAmount(timeEstimate, energy string) int64 {
	base, ok := inboxTimeTable[timeEstimate]
	if !ok {
		base = defaultInboxBase
	}
	mult, ok := energyMultiplier[energy]
	if !ok {
		mult = 1.0
	}
	return int64(math.Ceil(float64(base) * mult))
}

// Compute returns the signed amount for trigger under rates.
func Compute(trigger domain.Trigger, rates domain.Rates, ctx Context) (int64, error) {
	switch trigger {
	case domain.TriggerInboxTaskDone:
		return InboxAmount(ctx.TimeEstimate, ctx.Energy), nil

	case domain.TriggerPriorityTaskDone:
		return rates[domain.TriggerTaskDone] + rates[domain.TriggerPriorityTaskBonus], nil

	case domain.TriggerTaskDone:
		n := ctx.Count
		if n < 0 {
			return 0, fmt.Errorf("%w: negative task count %d", domain.ErrInvalidContext, n)
		}
		if n == 0 {
			n = 1
		}
		return rates[domain.TriggerTaskDone] * int64(n), nil

	case domain.TriggerStreakBonus:
		if ctx.StreakDays < 1 {
			return 0, fmt.Errorf("%w: streak length must be at least 1, got %d", domain.ErrInvalidContext, ctx.StreakDays)
		}
		return rates[domain.TriggerStreakBonus] * int64(ctx.StreakDays), nil

	case domain.TriggerMissedEveningPenalty:
		return -rates[domain.TriggerMissedEveningPenalty], nil

	case domain.TriggerRewardSpent, domain.TriggerManualAdjustment:
		return 0, fmt.Errorf("%w: %s is not an earn trigger", domain.ErrInvalidContext, trigger)
	}

	amount, ok := rates[trigger]
	if !ok {
		return 0, fmt.Errorf("%w: no rate for trigger %q", domain.ErrInvalidContext, trigger)
	}
	return amount, nil
}
