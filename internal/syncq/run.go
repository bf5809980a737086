package syncq

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration parses a 5-field cron expression and returns the
// duration until the next fire time. Returns 0 on parse error.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// Run is the background sync task. It drains on the offline→online edge
// and, when a cron schedule is configured, on each scheduled fire while
// online. It blocks until ctx is cancelled.
func (d *Drainer) Run(ctx context.Context, schedule string) {
	edges := d.conn.Subscribe()

	var timer *time.Timer
	var fires <-chan time.Time
	arm := func() {
		if schedule == "" {
			return
		}
		wait := nextCronDuration(schedule)
		if wait <= 0 {
			wait = time.Minute
		}
		timer = time.NewTimer(wait)
		fires = timer.C
	}
	arm()
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	// Catch up immediately if we start online.
	if d.conn.Online() {
		d.cycle(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-edges:
			// The subscription buffer holds one edge; a flap during a
			// cycle can leave a stale value there. The monitor's current
			// state is authoritative.
			if d.conn.Online() {
				d.logger.Printf("back online, draining queue")
				d.cycle(ctx)
			}
		case <-fires:
			if d.conn.Online() {
				d.cycle(ctx)
			}
			arm()
		}
	}
}

// cycle runs one drain+pull pass, logging outcomes.
func (d *Drainer) cycle(ctx context.Context) {
	report, err := d.Drain(ctx)
	if err != nil {
		d.logger.Printf("drain failed: %v", err)
		return
	}
	if report.Pushed+report.Deleted+report.Conflicts+report.Rejected+report.Stalled > 0 {
		d.logger.Printf("drain: pushed=%d deleted=%d conflicts=%d rejected=%d stalled=%d",
			report.Pushed, report.Deleted, report.Conflicts, report.Rejected, report.Stalled)
	}

	pull, err := d.Pull(ctx)
	if err != nil {
		d.logger.Printf("pull failed: %v", err)
		return
	}
	if pull.Applied+pull.Deleted+pull.Conflicts+pull.Skipped > 0 {
		d.logger.Printf("pull: applied=%d deleted=%d conflicts=%d skipped=%d",
			pull.Applied, pull.Deleted, pull.Conflicts, pull.Skipped)
	}
}
