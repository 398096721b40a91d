package tracker

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/david082321/runtime-tracker/shared"
	"github.com/sirupsen/logrus"
)

const (
	// An app cannot accumulate more than a full hour of usage within a
	// single clock hour; the cap also absorbs double counting from
	// overlapping reports.
	bucketCapacityMinutes = 60.0

	// A device that was unreachable for months would otherwise make a single
	// report walk across an unbounded number of day records.
	maxBackfill = 30 * 24 * time.Hour
)

// Store is the persistence the distributor and aggregator need. The backend
// database package implements it.
type Store interface {
	DayUsageFindOne(ctx context.Context, deviceID string, day time.Time, appName string) (*shared.DayUsage, error)
	DayUsageForDays(ctx context.Context, deviceID string, days []time.Time) ([]*shared.DayUsage, error)
	DayUsageUpsert(ctx context.Context, record *shared.DayUsage) error
}

// DistributeResult reports how much of an interval was persisted. Truncated
// means the 30-day backlog cutoff fired and DiscardedMinutes were dropped.
type DistributeResult struct {
	DistributedMinutes float64
	DiscardedMinutes   float64
	Truncated          bool
}

type distributor struct {
	store Store
	log   *logrus.Logger
}

// distribute apportions totalMinutes into the hourly buckets of one or more
// day records, starting at start and walking strictly forward. Each step
// takes the most it can out of the current hour: the remaining interval, the
// minutes left until the hour boundary, or the bucket's remaining capacity,
// whichever is smallest. A full bucket spills the remainder into the next
// hour, and crossing hour 24 rolls over into the next day's record.
func (d *distributor) distribute(ctx context.Context, deviceID, appName string, start time.Time, totalMinutes float64) (DistributeResult, error) {
	var result DistributeResult

	remaining := round2(totalMinutes)
	if remaining <= 0 {
		return result, nil
	}

	start = start.UTC()
	cursor := start
	for remaining > 0 {
		if cursor.Sub(start) > maxBackfill {
			d.log.WithFields(logrus.Fields{
				"device": deviceID,
				"app":    appName,
				"start":  start.Format(time.RFC3339),
			}).Warnf("distribution exceeded the %d-day backfill limit, discarding %.2f minutes", int(maxBackfill.Hours()/24), remaining)
			result.DiscardedMinutes = remaining
			result.Truncated = true
			break
		}

		day := utcDay(cursor)
		hour := cursor.Hour()

		record, err := d.store.DayUsageFindOne(ctx, deviceID, day, appName)
		if err != nil {
			return result, fmt.Errorf("store.DayUsageFindOne: %w", err)
		}
		if record == nil {
			record = &shared.DayUsage{DeviceId: deviceID, Day: day, AppName: appName}
		}

		availableSpace := bucketCapacityMinutes - record.Hours[hour]
		if availableSpace <= 0 {
			cursor = startOfNextHour(cursor)
			continue
		}

		toNextHour := minutesToNextHour(cursor)
		take := round2(math.Min(remaining, math.Min(toNextHour, availableSpace)))

		if take > 0 {
			record.Hours[hour] = round2(record.Hours[hour] + take)
			if err := d.store.DayUsageUpsert(ctx, record); err != nil {
				return result, fmt.Errorf("store.DayUsageUpsert: %w", err)
			}
			remaining = round2(remaining - take)
			if remaining < 0.01 {
				remaining = 0
			}
			result.DistributedMinutes = round2(result.DistributedMinutes + take)
		}

		if take >= toNextHour || take <= 0 {
			cursor = startOfNextHour(cursor)
		}
		// Otherwise the bucket filled mid-hour; the next pass hits the
		// availableSpace<=0 branch and skips ahead.
	}

	return result, nil
}
