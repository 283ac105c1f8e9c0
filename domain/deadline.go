package domain

import (
	"math"
	"time"
)

// DeadlineState classifies how urgent a task is relative to its deadline.
type DeadlineState string

const (
	DeadlineCompleted   DeadlineState = "COMPLETED"
	DeadlineOverdue     DeadlineState = "OVERDUE"
	DeadlineApproaching DeadlineState = "APPROACHING"
	DeadlineNormal      DeadlineState = "NORMAL"
)

// ApproachingWindowDays is the width of the single warning window: a deadline
// within this many days of now counts as approaching.
const ApproachingWindowDays = 3

// Classify maps (deadline, status) to a deadline state as of the given
// instant. Rules are evaluated in order, first match wins:
//
//  1. a completed task is COMPLETED regardless of date,
//  2. a deadline strictly in the past is OVERDUE,
//  3. a deadline within ApproachingWindowDays (inclusive at both 0 and 3
//     ceiling-days) is APPROACHING,
//  4. everything else is NORMAL.
//
// A zero deadline is the unparseable-date case and classifies as NORMAL. The
// check is explicit rather than relying on zero-time comparison behavior,
// which would otherwise read as overdue.
func Classify(deadline time.Time, status Status, now time.Time) DeadlineState {
	if status == StatusCompleted {
		return DeadlineCompleted
	}
	if deadline.IsZero() {
		return DeadlineNormal
	}
	if deadline.Before(now) {
		return DeadlineOverdue
	}
	if days := daysUntil(deadline, now); days >= 0 && days <= ApproachingWindowDays {
		return DeadlineApproaching
	}
	return DeadlineNormal
}

// daysUntil is the calendar-day ceiling of the duration from now to deadline.
func daysUntil(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}
