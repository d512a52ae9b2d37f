package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/VeerabhadraYerram/Fill-A-Hole-sub000/internal/api"
)

var (
	tokenRole string
	tokenTTL  time.Duration
)

// tokenCmd mints API tokens signed with the configured secret
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Issue an API token for a user",
	Long: `Token signs an HS256 JWT with auth.jwt_secret for local testing and
operator access. Use --role admin for the /api/v1/jobs endpoints.

Example:
  fillahole token alice
  fillahole token ops --role admin --ttl 1h`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tok, err := api.NewToken(cfg.Auth.JWTSecret, args[0], tokenRole, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenRole, "role", "", "role claim (admin)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
