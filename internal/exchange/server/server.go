package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradefeed/config"
	"tradefeed/internal/exchange/api"
	"tradefeed/internal/exchange/archive"
	"tradefeed/internal/exchange/fanout"
	"tradefeed/internal/exchange/store"
	"tradefeed/internal/exchange/ws"
	"tradefeed/pkg/storage/postgres"

	"go.uber.org/zap"
)

const statsInterval = 5 * time.Second

// Run wires the trade store, fanout hub, transports and the optional
// archive sink, then serves until SIGINT/SIGTERM.
func Run(cfg *config.Config, logger *zap.Logger) error {
	st := store.New(cfg.Store.MaxTrades)
	hub := fanout.NewHub(cfg.Fanout.Buffer, logger)

	router := api.NewHandler(st, hub, logger).Router()
	router.GET("/ws/trades", ws.NewHandler(hub, logger).Handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Postgres.Enabled {
		client, err := postgres.InitializeAndMigrateTradeRecord(cfg.Postgres, cfg.Postgres.CreateDB)
		if err != nil {
			return fmt.Errorf("failed to initialize trade archive: %w", err)
		}
		defer client.Close()

		archiver := archive.New(hub.Subscribe(), client, logger)
		go archiver.Run(ctx)
		logger.Info("trade archive enabled", zap.String("dbname", cfg.Postgres.DBName))
	}

	// Periodically log store counters for visibility.
	go func() {
		ticker := time.NewTicker(statsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("store stats",
					zap.Int64("trades", st.CountAll()),
					zap.Int("symbols", st.SymbolCount()),
					zap.Int("subscribers", hub.SubscriberCount()))
			}
		}
	}()

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stopCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	return httpSrv.Shutdown(shutdownCtx)
}
