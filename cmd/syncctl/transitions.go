package main

import (
	"fmt"
	"strings"

	"github.com/erauner12/jirasync/internal/config"
	"github.com/erauner12/jirasync/internal/jira"
	"github.com/erauner12/jirasync/internal/model"
	"github.com/spf13/cobra"
)

var transitionsCmd = &cobra.Command{
	Use:   "transitions <left|right> <issue-key>",
	Short: "List workflow transitions available on an issue",
	Long: `List the workflow transitions an issue currently offers, talking to the
instance directly with the same credentials the server uses.

With --to, additionally report whether the named status is reachable from
the issue's current status. Workflows differ between instances, so an
unreachable status is the usual reason a status change did not propagate.`,
	Args: cobra.ExactArgs(2),
	RunE: runTransitions,
}

func init() {
	transitionsCmd.Flags().String("to", "", "Probe whether this status is reachable")

	rootCmd.AddCommand(transitionsCmd)
}

func runTransitions(cmd *cobra.Command, args []string) error {
	side, err := model.ParseSide(args[0])
	if err != nil {
		return err
	}
	key := args[1]

	cfg := config.FromEnv().Side(side)
	if cfg.BaseURL == "" || cfg.Username == "" || cfg.APIToken == "" {
		prefix := strings.ToUpper(side.String())
		return fmt.Errorf("%s instance is not configured, set %s_BASE_URL, %s_USERNAME and %s_API_TOKEN",
			side, prefix, prefix, prefix)
	}

	client := jira.NewClient(jira.Config{
		BaseURL:    cfg.BaseURL,
		Username:   cfg.Username,
		APIToken:   cfg.APIToken,
		ProjectKey: cfg.ProjectKey,
		Label:      side.String(),
	})
	ctx := cmd.Context()

	issue, err := client.GetIssue(ctx, key)
	if err != nil {
		return err
	}
	fmt.Printf("%s: current status %q\n", key, issue.Status)

	transitions, err := client.Transitions(ctx, key)
	if err != nil {
		return err
	}
	fmt.Printf("\nAvailable transitions (%d):\n", len(transitions))
	for i, t := range transitions {
		fmt.Printf("  %d. %s (ID %s) -> %s\n", i+1, t.Name, t.ID, t.ToStatus)
	}

	target, _ := cmd.Flags().GetString("to")
	if target == "" {
		return nil
	}
	if strings.EqualFold(issue.Status, target) {
		fmt.Printf("\nIssue is already in %q\n", target)
		return nil
	}
	for _, t := range transitions {
		if strings.EqualFold(t.ToStatus, target) {
			fmt.Printf("\nStatus %q is reachable via transition %q\n", target, t.Name)
			return nil
		}
	}
	return fmt.Errorf("status %q is not reachable from %q", target, issue.Status)
}
