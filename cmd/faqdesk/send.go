package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/faqdesk/faqdesk/internal/activity"
)

var (
	sendConversation string
	sendUser         string
)

var sendCmd = &cobra.Command{
	Use:   "send [text]",
	Short: "Send a test message activity to the server",
	Long: `Send a message activity to the server's activity webhook. Useful for
exercising the chat pipeline locally. The server must have the connector
callback configured (FAQDESK_SERVICE_URL) for replies to go anywhere.`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendConversation, "conv", "cli", "conversation identifier")
	sendCmd.Flags().StringVar(&sendUser, "user", "cli-user", "sender identifier")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	act := activity.Activity{
		Type:         activity.TypeMessage,
		Text:         args[0],
		Conversation: activity.ConversationAccount{ID: sendConversation},
		From:         activity.ChannelAccount{ID: sendUser},
	}

	body, err := json.Marshal(act)
	if err != nil {
		return err
	}

	resp, err := http.Post(serverURL+"/api/activities", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting activity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	fmt.Println("accepted")
	return nil
}
