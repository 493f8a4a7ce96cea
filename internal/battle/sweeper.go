package battle

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/mentoro/arena/pkg/logger"
)

// Sweeper periodically enforces time limits and cleans up matches
type Sweeper struct {
	scheduler gocron.Scheduler
	service   *Service
	interval  time.Duration
}

func NewSweeper(service *Service, interval time.Duration) (*Sweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Sweeper{scheduler: scheduler, service: service, interval: interval}, nil
}

func (sw *Sweeper) Start() error {
	_, err := sw.scheduler.NewJob(
		gocron.DurationJob(sw.interval),
		gocron.NewTask(sw.sweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	sw.scheduler.Start()
	logger.Info("Match sweeper started", "interval", sw.interval.String())
	return nil
}

func (sw *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sw.interval)
	defer cancel()

	if settled := sw.service.ExpireOverdue(ctx, time.Now().UTC()); settled > 0 {
		logger.Info("Sweeper settled matches", "count", settled)
	}
}

func (sw *Sweeper) Shutdown() error {
	return sw.scheduler.Shutdown()
}
