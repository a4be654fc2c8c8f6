package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/profilewatch/idgen"
	"github.com/hazyhaar/profilewatch/render"
)

func historyCmd() *cobra.Command {
	var (
		format string
		output string
		limit  int
		prune  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "history [requestID]",
		Short: "List recent scrapes or show one by request ID",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			newLogger(cfg.Server.LogLevel)
			store, err := openResults(cfg.Results)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("history is disabled: set results.path in the config")
			}
			defer store.Close()
			ctx := cmd.Context()

			if prune > 0 {
				n, err := store.Prune(ctx, prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Pruned %d scrapes older than %s\n", n, prune)
			}

			if len(args) == 1 {
				id, err := idgen.ParseRequestID(args[0])
				if err != nil {
					return err
				}
				resp, err := store.Get(ctx, id)
				if err != nil {
					return err
				}
				out, err := render.Format(resp, format)
				if err != nil {
					return err
				}
				return writeOutput(output, out)
			}

			list, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if format == "json" {
				data, err := json.MarshalIndent(list, "", "  ")
				if err != nil {
					return err
				}
				return writeOutput(output, string(data))
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REQUEST ID\tSTATUS\tNAME\tURL\tCREATED")
			for _, s := range list {
				status := s.Status
				if s.Code != "" {
					status += " (" + s.Code + ")"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.RequestID, status, s.Name, s.URL, s.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (json, text, markdown, html)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent scrapes to list")
	cmd.Flags().DurationVar(&prune, "prune", 0, "Delete scrapes older than this before listing")
	return cmd
}
