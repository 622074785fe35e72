package cli

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ganjes_dao/config"
	"ganjes_dao/contract"
	"ganjes_dao/contract/dao"
	"ganjes_dao/sdk"
)

// App is what every command works against: one LevelDB data dir holding both
// the engine state and the local token book.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	State    *sdk.LevelState
	Ledger   *sdk.Book
	Engine   *contract.Engine
	Registry *prometheus.Registry
	// Sink buffers the events of the running command until DrainEvents.
	Sink *dao.MemorySink

	closers []func() error
}

// contextKey is the type for context keys
type contextKey string

const appKey contextKey = "app"

// OpenApp opens the data dir, seeds genesis on first use and wires the sinks.
func OpenApp(cfg *config.Config) (*App, error) {
	log, err := cfg.Logger()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	a := &App{Config: cfg, Log: log, Sink: dao.NewMemorySink()}
	a.closers = append(a.closers, func() error {
		// stderr sync fails on some terminals, nothing to do about it
		_ = log.Sync()
		return nil
	})

	self, err := cfg.Engine()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	st, err := sdk.OpenLevelState(cfg.DataDir, cfg.SyncWrites)
	if err != nil {
		return nil, err
	}
	a.State = st
	a.closers = append(a.closers, st.Close)
	a.Ledger = sdk.NewBook(st)

	sinks := dao.MultiSink{a.Sink, dao.NewLogSink(log)}
	if cfg.NATS.URL != "" {
		ns, err := dao.DialNATS(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, multierr.Append(err, a.Close())
		}
		a.closers = append(a.closers, ns.Close)
		sinks = append(sinks, ns)
	}

	a.Registry = prometheus.NewRegistry()
	metrics, err := contract.NewMetrics(cfg.Metrics.Namespace, a.Registry)
	if err != nil {
		return nil, multierr.Append(err, a.Close())
	}

	genesis, err := cfg.BuildGenesis()
	if err != nil {
		return nil, multierr.Append(err, a.Close())
	}
	e, err := contract.New(st, a.Ledger, self, genesis,
		contract.WithLogger(log.Named("engine")),
		contract.WithSink(sinks),
		contract.WithMetrics(metrics),
	)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("open engine: %w", err), a.Close())
	}
	a.Engine = e
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.closers[i]())
	}
	a.closers = nil
	return errs
}

// Caller resolves the acting address: the --caller flag, GANJES_CALLER or config.
func (a *App) Caller() (common.Address, error) {
	return a.Config.CallerAddress()
}

// DrainEvents hands back the events emitted since the last drain and empties
// the buffer, so long-running commands stay bounded.
func (a *App) DrainEvents() []dao.Record {
	return a.Sink.Drain()
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*App, error) {
	s, ok := cmd.Context().Value(appKey).(*session)
	if !ok || s.app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return s.app, nil
}
