// syncctl is the operator CLI for the sync service: inspect mapping
// records, probe workflow transitions on either instance, and fire signed
// test webhooks at a running server.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "syncctl",
	Short: "syncctl - operate the Jira sync service",
	Long: `Operator tooling for the bidirectional Jira sync service.

The service URL defaults to http://localhost:8080; override it with --url
or SYNCCTL_URL. When the server runs with ADMIN_JWT_SECRET set, syncctl
mints its own short-lived bearer token from the same secret, or you can
pass an existing token with --token.

Examples:
  # Summary plus record listing
  syncctl status

  # Only conflicted records
  syncctl status --status conflict

  # One record in detail
  syncctl record 'PROJ-123#OPS-77'

  # What transitions does the right instance offer on an issue?
  syncctl transitions right OPS-77

  # Deliver a signed synthetic webhook
  syncctl webhook left --event jira:issue_updated --issue PROJ-123`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("url", "", "Sync service base URL")
	rootCmd.PersistentFlags().String("token", "", "Bearer token for operator endpoints")

	_ = viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	// The CLI reads the same environment the server does, so a shell that
	// can run the server can drive syncctl with no extra setup.
	_ = viper.BindEnv("url", "SYNCCTL_URL")
	_ = viper.BindEnv("token", "SYNCCTL_TOKEN")
	_ = viper.BindEnv("http_addr", "HTTP_ADDR")
	_ = viper.BindEnv("webhook_secret", "WEBHOOK_SECRET")
	_ = viper.BindEnv("admin_jwt_secret", "ADMIN_JWT_SECRET")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
