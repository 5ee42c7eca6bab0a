package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"evalgo.org/qosd/internal/api"
	"evalgo.org/qosd/internal/integrity"
	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/internal/version"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the status API server",
		Long: `Start the read-only HTTP API that exposes the QoS configuration
and the integrity checks of the store.

When store.bootstrap_on_start is set and the store holds no active
scheduling profile yet, the default QoS configuration is bootstrapped
before the server starts listening.`,
		RunE: runServe,
	}
	cmd.Flags().String("host", "", "bind address (overrides server.host)")
	cmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}

	info := version.Get()
	logger.Info("starting qosd", "version", info.Version, "commit", info.GitCommit)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Store.BootstrapOnStart {
		needed, err := needsBootstrap(st)
		if err != nil {
			return err
		}
		if needed {
			if err := bootstrap(st, false); err != nil {
				return err
			}
			logger.Info("QoS configuration bootstrapped", "store", st.Path())
		}
	}

	svc, err := integrity.NewService(st, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create integrity service: %w", err)
	}
	defer svc.Close()

	server := api.New(cfg, st, svc, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// needsBootstrap reports whether the store has never been bootstrapped.
func needsBootstrap(st *store.Store) (bool, error) {
	needed := false
	err := st.View(func(txn *store.Txn) error {
		sys, err := txn.System()
		if errors.Is(err, store.ErrNotFound) {
			needed = true
			return nil
		}
		if err != nil {
			return err
		}
		needed = sys.ScheduleProfile == ""
		return nil
	})
	return needed, err
}
