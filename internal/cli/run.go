package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/on-the-ground/reducks_go/ducks/config"
	"github.com/on-the-ground/reducks_go/ducks/log"
	"github.com/on-the-ground/reducks_go/ducks/saga"
	"github.com/on-the-ground/reducks_go/ducks/storage"
	"github.com/on-the-ground/reducks_go/ducks/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Storage    string
	SQLitePath string
	Timings    bool
}

func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a scenario and print the message trace and final state",
		Long: `Replay the messages of a YAML scenario through the demo application:
users fetched per key, a sidebar flag and a persisted theme.

Example:
  reducks run ./scenario.yaml
  reducks run --format json --storage sqlite --sqlite-path /tmp/reducks.db ./scenario.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.Storage != "" {
				cfg.Storage = opts.Storage
			}
			if opts.SQLitePath != "" {
				cfg.SQLitePath = opts.SQLitePath
			}
			sc, err := LoadScenario(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runScenario(ctx, cmd.OutOrStdout(), opts, cfg, sc)
		},
	}

	cmd.Flags().StringVar(&opts.Storage, "storage", "", "theme storage backend (memory|sqlite|ristretto|redis), defaults to REDUCKS_STORAGE")
	cmd.Flags().StringVar(&opts.SQLitePath, "sqlite-path", "", "sqlite database path, defaults to REDUCKS_SQLITE_PATH")
	cmd.Flags().BoolVar(&opts.Timings, "timings", false, "append per-type reducer timings to the report")
	return cmd
}

func openStorage(ctx context.Context, cfg config.Config) (storage.Storage, func(), error) {
	switch cfg.Storage {
	case "memory":
		st, err := storage.NewMemory()
		return st, func() {}, err
	case "ristretto":
		st, err := storage.NewRistretto(64)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "sqlite":
		st, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	case "redis":
		client, err := storage.ConnectRedis(ctx, storage.RedisConfig{
			URL:           cfg.RedisURL,
			RetryAttempts: cfg.RedisRetries,
			RetryInterval: cfg.RedisRetryInterval,
		})
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedis(client, "reducks:"), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, cfg.Storage)
}

func runScenario(ctx context.Context, out io.Writer, opts *RunOptions, cfg config.Config, sc *Scenario) error {
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	ctx, teardown := log.WithZapHandler(ctx, cfg.LogBuffer, logger)
	defer teardown()

	st, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
	}
	defer closeStorage()

	writer := storage.NewWriter(ctx, cfg.PersistWorkers, cfg.PersistBuffer)
	defer writer.Close()

	app, err := newDemo(st, writer, logger)
	if err != nil {
		return err
	}

	s, err := store.New(app.duck.Reducer, store.WithLogger(logger), store.WithSourceBuffer(cfg.SourceBuffer))
	if err != nil {
		return err
	}
	defer s.Close()
	rec := &recorder{}
	s.Subscribe(rec.record)
	timings := collectTimings(s.Source(), logger)

	rt := saga.New(s, saga.WithLogger(logger))
	sagaCtx, cancel := context.WithCancel(ctx)
	task := rt.Run(sagaCtx, app.duck.Saga)
	defer func() {
		cancel()
		<-task.Done()
	}()

	settle := func() error {
		ctx, cancel := context.WithTimeout(ctx, sc.Timeout)
		defer cancel()
		return rt.Settle(ctx)
	}

	logger.Info("running scenario", zap.String("name", sc.Name), zap.Int("messages", len(sc.Messages)))
	for i, step := range sc.Messages {
		msg, err := app.message(step)
		if err != nil {
			return fmt.Errorf("message %d: %w", i+1, err)
		}
		if err := rt.Dispatch(msg); err != nil {
			return fmt.Errorf("message %d: %w", i+1, err)
		}
		if step.Async {
			continue
		}
		if err := settle(); err != nil {
			return fmt.Errorf("message %d did not settle: %w", i+1, err)
		}
	}
	if err := settle(); err != nil {
		return fmt.Errorf("scenario did not settle: %w", err)
	}

	rep := report{
		Name:  sc.Name,
		Trace: rec.trace(),
		State: app.view(s.State()),
	}
	s.Close()
	if t := <-timings; opts.Timings {
		rep.Timings = t
	}
	return writeReport(out, opts.Format, rep)
}
