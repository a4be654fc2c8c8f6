package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/profilewatch/render"
)

func scrapeCmd() *cobra.Command {
	var (
		format   string
		output   string
		headless bool
	)
	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Scrape one profile and print it",
		Example: `  profilewatch scrape https://www.linkedin.com/in/jane-doe/
  profilewatch scrape https://www.linkedin.com/in/jane-doe/ -f markdown -o jane.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && !cmd.Flags().Changed("format") {
				if f := inferFormat(output); f != "" {
					format = f
				}
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless = &headless
			}
			logger := newLogger(cfg.Server.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			resp := a.broker.Scrape(ctx, args[0])
			out, err := render.Format(resp, format)
			if err != nil {
				return err
			}
			if err := writeOutput(output, out); err != nil {
				return err
			}
			if !resp.OK() {
				return fmt.Errorf("scrape failed: %s", resp.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, text, markdown, html)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (format inferred from extension if -f is not set)")
	cmd.Flags().BoolVar(&headless, "headless", true, "Run Chrome without a window")
	return cmd
}
