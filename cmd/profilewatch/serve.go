package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/profilewatch/broker"
	"github.com/hazyhaar/profilewatch/dbopen"
	"github.com/hazyhaar/profilewatch/shield"
)

func serveCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scrape API over HTTP and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			logger := newLogger(cfg.Server.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				logger.Error("profilewatch: start", "error", err)
				return err
			}
			defer a.Close()

			// Rate limits live next to the history when there is one.
			var db *sql.DB
			if a.results != nil {
				db = a.results.DB()
			} else {
				if db, err = dbopen.Open(":memory:", dbopen.WithSchema(shield.Schema)); err != nil {
					return err
				}
				db.SetMaxOpenConns(1)
				defer db.Close()
			}
			stack, rl := shield.DefaultStack(db)
			rl.StartReloader(ctx)

			mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "profilewatch", Version: version}, nil)
			a.broker.RegisterMCP(mcpSrv)

			hcfg := broker.HandlerConfig{TokenHash: cfg.Server.TokenHash}
			if a.results != nil {
				hcfg.History = a.results
			}

			r := chi.NewRouter()
			for _, mw := range stack {
				r.Use(mw)
			}
			r.With(shield.RequireToken(cfg.Server.TokenHash)).Handle("/mcp",
				mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return mcpSrv }, nil))
			r.Mount("/", a.broker.Handler(hcfg))

			srv := &http.Server{
				Addr:              cfg.Server.Listen,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
				WriteTimeout:      cfg.Broker.Timeout + 15*time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				logger.Info("profilewatch: listening", "addr", cfg.Server.Listen, "state", cfg.State.Backend, "history", a.results != nil)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case <-ctx.Done():
			case err := <-errc:
				if err != nil {
					logger.Error("profilewatch: server", "error", err)
					return err
				}
			}
			logger.Info("profilewatch: shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("profilewatch: shutdown", "error", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (overrides server.listen and PORT)")
	return cmd
}
