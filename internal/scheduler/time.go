package scheduler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/vpnbroker/broker/internal/logger"
)

// nextOccurrence returns the first time.Time strictly after now that
// matches "HH:MM" in now's own location (tomorrow's, if today's is not
// after now).
func nextOccurrence(now time.Time, hhmm string) time.Time {
	hour, minute := 0, 0
	if parts := strings.SplitN(hhmm, ":", 2); len(parts) == 2 {
		hour, _ = strconv.Atoi(parts[0])
		minute, _ = strconv.Atoi(parts[1])
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// waitUntilDaily blocks until ctx is cancelled or hhmm next occurs, checking
// in bounded 1-hour increments so a clock change or DST shift never causes
// an overlong sleep — the same cap original_source/subscription_monitor.py's
// _daily_loop uses ("sleep_duration = min(sleep_time, 3600)"). Returns false
// if ctx was cancelled before hhmm arrived.
func waitUntilDaily(ctx context.Context, log *logger.Logger, workerName, hhmm string) bool {
	target := nextOccurrence(time.Now(), hhmm)
	for {
		wait := time.Until(target)
		if wait <= 0 {
			return true
		}
		if wait > time.Hour {
			wait = time.Hour
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
			log.Debugw("scheduler daily wait tick, rechecking", "worker", workerName)
		}
	}
}
