package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record <sync-id>",
	Short: "Show one sync record in detail",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecord,
}

func init() {
	recordCmd.Flags().Bool("json", false, "Raw JSON output")

	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	var detail recordDetail
	if err := apiGet("/v1/admin/records/"+url.PathEscape(args[0]), &detail); err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	}

	rec := detail.Record
	fmt.Printf("Sync record: %s\n", rec.SyncID)
	fmt.Printf("  Left key:      %s\n", orDash(rec.LeftKey))
	fmt.Printf("  Right key:     %s\n", orDash(rec.RightKey))
	fmt.Printf("  Status:        %s\n", rec.Status)
	fmt.Printf("  Direction:     %s\n", orDash(string(rec.LastSyncDirection)))
	fmt.Printf("  Last sync:     %s\n", fmtTime(rec.LastSyncTimestamp))
	if rec.LeftLastUpdated != nil {
		fmt.Printf("  Left updated:  %s\n", fmtTime(*rec.LeftLastUpdated))
	}
	if rec.RightLastUpdated != nil {
		fmt.Printf("  Right updated: %s\n", fmtTime(*rec.RightLastUpdated))
	}
	fmt.Printf("  Error count:   %d\n", rec.ErrorCount)
	if rec.ErrorMessage != "" {
		fmt.Printf("  Last error:    %s\n", rec.ErrorMessage)
	}
	if rec.RequiresManualResolution {
		fmt.Println("  REQUIRES MANUAL RESOLUTION")
		if rec.ConflictDetails != "" {
			fmt.Printf("  Conflict:      %s\n", rec.ConflictDetails)
		}
	}

	if len(detail.Comments) == 0 {
		return nil
	}

	fmt.Printf("\nComment records (%d):\n", len(detail.Comments))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE ID\tTARGET ID\tDIRECTION\tSTATUS\tLAST SYNC")
	for _, c := range detail.Comments {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.SourceCommentID,
			orDash(c.TargetCommentID),
			orDash(string(c.Direction)),
			c.Status,
			fmtTime(c.LastSyncTimestamp),
		)
	}
	return w.Flush()
}
