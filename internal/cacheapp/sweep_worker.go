/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cacheapp

import (
	"context"
	"time"

	"github.com/acronis/go-lrucache/log"
	"github.com/acronis/go-lrucache/lrucache"
	"github.com/acronis/go-lrucache/service"
)

const sweepWorkerName = "cache-sweeper"

// NewSweepWorker returns a worker that removes expired entries from the cache once per run.
func NewSweepWorker[K comparable, V any](cache *lrucache.LRUCache[K, V], logger log.FieldLogger) service.Worker {
	return service.WorkerFunc(func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return nil
		}
		startTime := time.Now()
		if removed := cache.CleanupExpired(); removed > 0 {
			logger.Debug("expired cache entries removed",
				log.Int("removed", removed),
				log.Int("size", cache.Len()),
				log.Duration("duration", time.Since(startTime)),
			)
		}
		return nil
	})
}

func newSweepUnit[K comparable, V any](
	cache *lrucache.LRUCache[K, V], interval, stopTimeout time.Duration, logger log.FieldLogger,
) *service.WorkerUnit {
	worker := service.NewPeriodicWorkerWithOpts(NewSweepWorker(cache, logger), interval, logger,
		service.PeriodicWorkerOpts{Name: sweepWorkerName, InitialDelay: interval})
	return service.NewWorkerUnitWithOpts(worker, service.WorkerUnitOpts{GracefulStopTimeout: stopTimeout})
}
