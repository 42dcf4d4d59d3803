package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/erauner12/jirasync/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var webhookCmd = &cobra.Command{
	Use:   "webhook <left|right>",
	Short: "Send a signed synthetic webhook to the service",
	Long: `Build a minimal Jira webhook payload, sign it with WEBHOOK_SECRET, and
deliver it to the service's pinned route for the given side. Useful for
verifying signature checking and end-to-end dispatch without touching a
real instance's webhook configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: runWebhook,
}

func init() {
	webhookCmd.Flags().String("event", "jira:issue_updated", "Webhook event name")
	webhookCmd.Flags().String("issue", "", "Issue key")
	webhookCmd.Flags().String("comment", "", "Comment id (for comment_* events)")
	_ = webhookCmd.MarkFlagRequired("issue")

	rootCmd.AddCommand(webhookCmd)
}

func runWebhook(cmd *cobra.Command, args []string) error {
	side, err := model.ParseSide(args[0])
	if err != nil {
		return err
	}
	event, _ := cmd.Flags().GetString("event")
	issueKey, _ := cmd.Flags().GetString("issue")
	commentID, _ := cmd.Flags().GetString("comment")

	secret := viper.GetString("webhook_secret")
	if secret == "" {
		return errors.New("WEBHOOK_SECRET is not set")
	}

	payload := map[string]any{
		"timestamp":    time.Now().UnixMilli(),
		"webhookEvent": event,
		"issue":        map[string]any{"key": issueKey},
	}
	if commentID != "" {
		payload["comment"] = map[string]any{"id": commentID}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	signature := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	target := fmt.Sprintf("%s/webhooks/%s", serverURL(), side)
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", signature)

	fmt.Printf("POST %s\n", target)
	fmt.Printf("Payload: %s\n", body)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Printf("Response %d: %s\n", resp.StatusCode, strings.TrimSpace(string(respBody)))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook rejected with status %d", resp.StatusCode)
	}
	return nil
}
