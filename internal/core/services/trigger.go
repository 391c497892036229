package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger emits a tick each time a scheduled run is due.
type Trigger interface {
	// C returns the tick channel
	C() <-chan time.Time

	// Stop releases the trigger. No ticks are delivered afterwards.
	Stop()
}

// ValidateSchedule checks a standard 5-field cron expression or descriptor
// such as "@hourly" or "@every 30m".
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// CronTrigger ticks on a cron schedule. A tick that finds the previous one
// still unconsumed is dropped.
type CronTrigger struct {
	cron *cron.Cron
	ch   chan time.Time
	once sync.Once
}

// NewCronTrigger starts a trigger for expr, evaluated in loc (nil means local time).
func NewCronTrigger(expr string, loc *time.Location) (*CronTrigger, error) {
	if err := ValidateSchedule(expr); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}

	t := &CronTrigger{
		cron: cron.New(cron.WithLocation(loc)),
		ch:   make(chan time.Time, 1),
	}
	if _, err := t.cron.AddFunc(expr, t.tick); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	t.cron.Start()
	return t, nil
}

func (t *CronTrigger) tick() {
	select {
	case t.ch <- time.Now():
	default:
	}
}

// C returns the tick channel.
func (t *CronTrigger) C() <-chan time.Time {
	return t.ch
}

// Next returns the next time the schedule fires.
func (t *CronTrigger) Next() time.Time {
	entries := t.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop stops the cron runner.
func (t *CronTrigger) Stop() {
	t.once.Do(func() {
		<-t.cron.Stop().Done()
	})
}

// IntervalTrigger ticks at a fixed interval.
type IntervalTrigger struct {
	ticker *time.Ticker
}

// NewIntervalTrigger creates a trigger firing every d.
func NewIntervalTrigger(d time.Duration) *IntervalTrigger {
	return &IntervalTrigger{ticker: time.NewTicker(d)}
}

// C returns the tick channel.
func (t *IntervalTrigger) C() <-chan time.Time {
	return t.ticker.C
}

// Stop stops the ticker.
func (t *IntervalTrigger) Stop() {
	t.ticker.Stop()
}
