package lifecycle

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"divecenter-backend/internal/domain"
)

// DefaultThresholds are the usage percentages that trigger a maintenance notification.
var DefaultThresholds = []uint32{80, 100}

// Crossing reports that a usage increment moved past a threshold percentage of the limit.
type Crossing struct {
	Percent uint32
	Count   uint32
	Limit   uint32
}

// AddUsage increments a tracked counter by n and reports every threshold the increment crossed.
// The counter saturates at the uint32 range; recording never blocks on the limit.
func AddUsage(u domain.UsageTracking, n uint32, thresholds []uint32) (domain.UsageTracking, []Crossing, error) {
	if !u.IsTracked() {
		return u, nil, domain.ErrUsageNotTracked
	}
	if n == 0 {
		return u, nil, fmt.Errorf("usage increment must be >= 1: %w", domain.ErrInvalidArgument)
	}

	before, _ := u.Count()
	limit, _ := u.Limit()
	after := before + n
	if after < before {
		after = ^uint32(0)
	}

	return domain.Tracked(after, limit), Crossings(before, after, limit, thresholds), nil
}

// Crossings lists the thresholds p where before*100 < p*limit <= after*100, lowest first.
// A bulk increment that jumps several thresholds reports each of them once.
func Crossings(before, after, limit uint32, thresholds []uint32) []Crossing {
	if after <= before {
		return nil
	}
	b, a, l := uint64(before)*100, uint64(after)*100, uint64(limit)

	var out []Crossing
	for _, p := range sortedThresholds(thresholds) {
		mark := uint64(p) * l
		if b < mark && mark <= a {
			out = append(out, Crossing{Percent: p, Count: after, Limit: limit})
		}
	}
	return out
}

// LimitCrossings lists the thresholds an edit of the limit newly reached without the count moving.
// Thresholds already reached under the old limit are not reported again.
func LimitCrossings(before, after domain.UsageTracking, thresholds []uint32) []Crossing {
	if !after.IsTracked() {
		return nil
	}
	count, _ := after.Count()
	limit, _ := after.Limit()
	oldLimit, wasTracked := before.Limit()

	var out []Crossing
	for _, p := range sortedThresholds(thresholds) {
		reached := uint64(count)*100 >= uint64(p)*uint64(limit)
		reachedBefore := wasTracked && uint64(count)*100 >= uint64(p)*uint64(oldLimit)
		if reached && !reachedBefore {
			out = append(out, Crossing{Percent: p, Count: count, Limit: limit})
		}
	}
	return out
}

// WarningLevel reports whether a tracked item sits at or above the lowest threshold but is not yet due.
func WarningLevel(u domain.UsageTracking, thresholds []uint32) bool {
	if !u.IsTracked() || u.MaintenanceDue() {
		return false
	}
	ts := sortedThresholds(thresholds)
	if len(ts) == 0 {
		return false
	}
	count, _ := u.Count()
	limit, _ := u.Limit()
	return uint64(count)*100 >= uint64(ts[0])*uint64(limit)
}

func sortedThresholds(thresholds []uint32) []uint32 {
	ts := lo.Uniq(thresholds)
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts
}
