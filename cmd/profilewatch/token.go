package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/profilewatch/shield"
)

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token [token]",
		Short: "Print a bcrypt hash for PROFILEWATCH_TOKEN_HASH",
		Long: `Hashes the given API token, or a freshly generated one, for use as
server.token_hash or PROFILEWATCH_TOKEN_HASH. Clients then send
"Authorization: Bearer <token>".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			} else {
				buf := make([]byte, 24)
				if _, err := rand.Read(buf); err != nil {
					return err
				}
				token = hex.EncodeToString(buf)
				fmt.Fprintf(cmd.OutOrStdout(), "token: %s\n", token)
			}
			hash, err := shield.HashToken(token)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hash:  %s\n", hash)
			return nil
		},
	}
}
