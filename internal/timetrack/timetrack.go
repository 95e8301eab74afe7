// Package timetrack tracks the progress and estimates completion of a task.
package timetrack

import (
	"sync/atomic"
	"time"

	"github.com/adbsync/adbsync/internal/clock"
)

// Estimator estimates the completion of a task based on the amount of work
// completed since the task started.
type Estimator struct {
	startTime time.Time
}

// Estimate describes the estimated completion of a task.
type Estimate struct {
	PercentComplete  float64
	SpeedPerSecond   float64
	Remaining        time.Duration
	EstimatedEndTime time.Time
}

// Start begins tracking a task.
func Start() Estimator {
	return Estimator{startTime: clock.Now()}
}

// Estimate returns the estimated completion of a task given the amount of work
// completed so far out of the provided total. Returns false if no estimate can
// be made yet.
func (e Estimator) Estimate(completed, total float64) (Estimate, bool) {
	if completed <= 0 || total <= 0 {
		return Estimate{}, false
	}

	elapsed := clock.Since(e.startTime)
	if elapsed <= 0 {
		return Estimate{}, false
	}

	speed := completed / elapsed.Seconds()
	remainingWork := total - completed

	if remainingWork < 0 {
		remainingWork = 0
	}

	remainingTime := time.Duration(remainingWork/speed*float64(time.Second)).Round(time.Second)

	return Estimate{
		PercentComplete:  100 * completed / total,
		SpeedPerSecond:   speed,
		Remaining:        remainingTime,
		EstimatedEndTime: clock.Now().Add(remainingTime),
	}, true
}

// Throttle throttles UI updates to a specified interval.
type Throttle int64

// ShouldOutput returns true if it's ok to produce output given the desired
// output interval.
func (t *Throttle) ShouldOutput(interval time.Duration) bool {
	nextOutputTimeUnixNano := atomic.LoadInt64((*int64)(t))
	if nowNano := clock.Now().UnixNano(); nowNano > nextOutputTimeUnixNano {
		if atomic.CompareAndSwapInt64((*int64)(t), nextOutputTimeUnixNano, nowNano+interval.Nanoseconds()) {
			return true
		}
	}

	return false
}

// Reset resets the throttle.
func (t *Throttle) Reset() {
	atomic.StoreInt64((*int64)(t), 0)
}
