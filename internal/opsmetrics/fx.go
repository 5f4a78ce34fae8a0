package opsmetrics

import (
	"context"
	"time"

	"github.com/smallbiznis/blastwave/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pushInterval = 15 * time.Minute

var Module = fx.Module("ops.metrics",
	fx.Provide(NewPusher),
	fx.Provide(func(cfg config.Config, log *zap.Logger) *Snapshot {
		if !cfg.Ops.Enabled {
			return nil
		}
		return NewSnapshot(log)
	}),
	fx.Invoke(func(lc fx.Lifecycle, snapshot *Snapshot, pusher Pusher, log *zap.Logger, db *gorm.DB) {
		if snapshot == nil || pusher == nil {
			return
		}

		if log == nil {
			log = zap.NewNop()
		}

		ctx, cancel := context.WithCancel(context.Background())
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				log.Info("starting ops metrics background worker")
				go func() {
					ticker := time.NewTicker(pushInterval)
					defer ticker.Stop()

					snapshot.Refresh(ctx, db)
					if err := pusher.Push(ctx, snapshot.Registry()); err != nil {
						log.Error("initial ops metrics push failed", zap.Error(err))
					}

					for {
						select {
						case <-ticker.C:
							snapshot.Refresh(ctx, db)
							if err := pusher.Push(ctx, snapshot.Registry()); err != nil {
								log.Error("periodic ops metrics push failed", zap.Error(err))
							}
						case <-ctx.Done():
							log.Info("stopping ops metrics background worker")
							return
						}
					}
				}()
				return nil
			},
			OnStop: func(context.Context) error {
				cancel()
				return nil
			},
		})
	}),
)
