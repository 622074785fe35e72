package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ganjes_dao/contract"
	"ganjes_dao/contract/dao"
)

// NewKeeperCmd runs the resolution loop until interrupted, serving metrics on the side.
func NewKeeperCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "keeper",
		Short: "Resolve due proposals on an interval and serve /metrics",
		Long: `keeper wakes every keeper.interval, resolves up to keeper.batch proposals
whose voting window has closed and serves Prometheus metrics on metrics.listen.
Pass --once to run a single round and exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			caller, err := app.Caller()
			if err != nil {
				return err
			}
			k := &keeper{
				engine: app.Engine,
				caller: caller,
				batch:  app.Config.Keeper.Batch,
				log:    app.Log.Named("keeper"),
				drain:  app.DrainEvents,
			}
			if once {
				k.round(cmd.Context())
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if listen := app.Config.Metrics.Listen; listen != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
				srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						k.log.Error("metrics server stopped", zap.Error(err))
						stop()
					}
				}()
				defer func() {
					shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdown)
				}()
				k.log.Info("serving metrics", zap.String("addr", listen))
			}

			k.run(ctx, app.Config.Keeper.Interval)
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run one round and exit")
	return cmd
}

type keeper struct {
	engine *contract.Engine
	caller common.Address
	batch  int
	log    *zap.Logger
	drain  func() []dao.Record
}

func (k *keeper) run(ctx context.Context, interval time.Duration) {
	k.log.Info("keeper started", zap.Duration("interval", interval), zap.Int("batch", k.batch))
	t := time.NewTicker(interval)
	defer t.Stop()
	k.round(ctx)
	for {
		select {
		case <-ctx.Done():
			k.log.Info("keeper stopped")
			return
		case <-t.C:
			k.round(ctx)
		}
	}
}

// round resolves one batch. Per-proposal failures are logged, never fatal.
func (k *keeper) round(ctx context.Context) int {
	results, err := k.engine.ExecuteDue(ctx, k.caller, k.batch)
	if err != nil && ctx.Err() == nil {
		k.log.Warn("execute due failed", zap.Error(err))
	}
	resolved := 0
	for _, r := range results {
		if r.Err != nil {
			k.log.Warn("proposal not resolved", zap.Uint64("proposal", r.ProposalID), zap.Error(r.Err))
			continue
		}
		resolved++
		k.log.Info("proposal resolved",
			zap.Uint64("proposal", r.ProposalID),
			zap.Bool("passed", r.Resolution.Passed),
			zap.Stringer("payout", r.Resolution.Payout),
		)
	}
	if k.drain != nil {
		// the log and NATS sinks already carried these
		events := k.drain()
		k.log.Debug("round finished", zap.Int("resolved", resolved), zap.Int("events", len(events)))
	}
	return resolved
}
