// FAQDesk
//
// A conversational FAQ bot that answers questions from a knowledge base and
// escalates to a human expert channel when the automated answer is not
// enough.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "faqdesk",
	Short: "FAQDesk - FAQ bot with expert escalation",
	Long: `FAQDesk answers user questions from a knowledge base and hands the
conversation to a human expert channel when needed.

  faqdesk serve                         Start the server
  faqdesk send "question" --conv cli    Send a test activity to the server`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("FAQDESK_SERVER", "http://localhost:7071"), "FAQDesk server URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
