package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/erauner12/jirasync/internal/model"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync record summary and listing",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().String("status", "", "Filter by sync status (pending, in_progress, success, failed, conflict)")
	statusCmd.Flags().Int("limit", 50, "Maximum records to list")
	statusCmd.Flags().Bool("json", false, "Raw JSON output")

	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	statusFilter, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	q := url.Values{}
	if statusFilter != "" {
		q.Set("status", statusFilter)
	}
	q.Set("limit", strconv.Itoa(limit))

	var list recordList
	if err := apiGet("/v1/admin/records?"+q.Encode(), &list); err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	total := 0
	for _, n := range list.Counts {
		total += n
	}
	fmt.Printf("Sync records: %d total\n", total)
	for _, st := range []model.Status{
		model.StatusPending, model.StatusInProgress, model.StatusSuccess,
		model.StatusFailed, model.StatusConflict,
	} {
		if n := list.Counts[string(st)]; n > 0 {
			fmt.Printf("  %-12s %d\n", st, n)
		}
	}

	if len(list.Records) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYNC ID\tLEFT\tRIGHT\tSTATUS\tDIRECTION\tERRORS\tLAST SYNC")
	for _, rec := range list.Records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			rec.SyncID,
			orDash(rec.LeftKey),
			orDash(rec.RightKey),
			rec.Status,
			orDash(string(rec.LastSyncDirection)),
			rec.ErrorCount,
			fmtTime(rec.LastSyncTimestamp),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if list.NextCursor != "" {
		fmt.Println("\nMore records available; re-run with a larger --limit.")
	}
	return nil
}
