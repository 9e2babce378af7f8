// Command viewsctl reads and records page views through the views API.
package main

import (
	"fmt"
	"os"
	"time"

	"portfolio-views/client"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	timeout   = 10 * time.Second
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "viewsctl",
	Short:         "Inspect and record blog post views",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("VIEWS_SERVER", "http://localhost:8080"), "Views API base URL (or set VIEWS_SERVER)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "Request timeout")

	watchCmd.Flags().BoolVar(&watchTrack, "track", false, "Record one view when the watch starts")
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 5*time.Second, "Refresh interval")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(hitCmd)
	rootCmd.AddCommand(postsCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(serverURL, client.WithResponseCache())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
