package semester

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = 2 * time.Minute

// NewSweeper schedules Sweep on spec. Overlapping runs are skipped. The caller starts and stops the cron.
func NewSweeper(svc *Service, spec string) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(svc.loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := svc.Sweep(ctx, time.Now()); err != nil {
			log.Printf("semester: sweep failed: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
