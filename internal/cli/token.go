package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"smartaudit/internal/config"
	"smartaudit/internal/pkg/jwtutil"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the API",
	Long: `Issue a signed bearer token for an operator. Tokens are only checked when
auth.enabled is set. The secret and default lifetime come from the configuration.

Examples:
  smartaudit token --subject alice
  smartaudit token --subject ci --ttl 24h`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringP("subject", "s", "", "operator name carried in the token")
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default auth.jwt_expire_minute)")
	_ = tokenCmd.MarkFlagRequired("subject")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	subject, _ := cmd.Flags().GetString("subject")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		ttl = time.Duration(cfg.Auth.JWTExpireMinute) * time.Minute
	}

	token, err := jwtutil.GenerateToken(cfg.Auth.JWTSecret, ttl, subject)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
