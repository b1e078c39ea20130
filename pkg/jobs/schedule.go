package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/workbench-hq/workbench-api/pkg/tools"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/services"
)

// ScheduleDeliverySweep sets up a cron job that processes due delivery
// channels every minute.
func ScheduleDeliverySweep(ctx context.Context, svc *services.DeliveryService, limit int) *cron.Cron {
	c := cron.New()
	_, _ = c.AddFunc("* * * * *", func() {
		tools.Dispatch(context.Background(), "delivery_sweep", func(ctx context.Context) error {
			_, err := svc.RunDueChannels(ctx, nil, limit)
			return err
		})
	})
	c.Start()

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return c
}

// ScheduleRunWatchdog sweeps every five minutes for runs stuck in running
// longer than staleAfter, e.g. after a crash mid-execution.
func ScheduleRunWatchdog(ctx context.Context, svc *services.RunService, staleAfter time.Duration) *cron.Cron {
	c := cron.New()
	_, _ = c.AddFunc("*/5 * * * *", func() {
		tools.Dispatch(context.Background(), "run_watchdog", func(ctx context.Context) error {
			_, err := svc.ReclaimStuckRuns(ctx, staleAfter)
			return err
		})
	})
	c.Start()

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return c
}
