// portrait-sign computes the X-Signature and X-Timestamp headers for a
// request body, for exercising a signing-enabled server from curl or
// scripts.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-portrait-studio/internal/auth"
)

var (
	secretFlag    string
	timestampFlag string
)

var rootCmd = &cobra.Command{
	Use:   "portrait-sign [file]",
	Short: "Sign a request body for the portrait API",
	Long: `Portrait Sign reads a request body from a file (or stdin) and prints
the X-Timestamp and X-Signature header values a signing-enabled server
expects. The secret comes from --secret or the API_SECRET environment
variable.

Examples:
  portrait-sign body.json
  cat body.json | portrait-sign
  portrait-sign --timestamp 1700000000000 body.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&secretFlag, "secret", "", "Shared secret (defaults to API_SECRET)")
	rootCmd.Flags().StringVar(&timestampFlag, "timestamp", "", "Millisecond timestamp (defaults to now)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	godotenv.Load()

	secret := secretFlag
	if secret == "" {
		secret = os.Getenv("API_SECRET")
	}
	if secret == "" {
		return fmt.Errorf("no secret: pass --secret or set API_SECRET")
	}

	var body []byte
	var err error
	if len(args) == 1 {
		body, err = os.ReadFile(args[0])
	} else {
		body, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	timestamp := timestampFlag
	if timestamp == "" {
		timestamp = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	fmt.Printf("X-Timestamp: %s\n", timestamp)
	fmt.Printf("X-Signature: %s\n", auth.Sign(secret, timestamp, string(body)))
	return nil
}
