// Command viewtail prints events published by views servers.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-views/cache"
	"portfolio-views/pubsub"

	"github.com/spf13/cobra"
)

var (
	redisURL      string
	redisPassword string
	event         string
)

var rootCmd = &cobra.Command{
	Use:          "viewtail",
	Short:        "Print views events as servers publish them",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		redisStore, err := cache.NewRedisStore(ctx, redisURL, redisPassword, 0, time.Minute)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisStore.Close()

		if err := tail(ctx, pubsub.NewPubSub(redisStore.Client), event, cmd.OutOrStdout()); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&redisURL, "redis", os.Getenv("REDIS_URL"), "Redis address (or set REDIS_URL)")
	rootCmd.Flags().StringVar(&redisPassword, "password", os.Getenv("REDIS_PASSWORD"), "Redis password (or set REDIS_PASSWORD)")
	rootCmd.Flags().StringVarP(&event, "event", "e", pubsub.EventViewsFlushed, "Event to print")
}

// tail prints every event named name to out until ctx is done.
func tail(ctx context.Context, ps *pubsub.PubSub, name string, out io.Writer) error {
	return ps.Subscribe(ctx, name, func(data map[string]interface{}) {
		if name == pubsub.EventViewsFlushed {
			slugs, err := pubsub.FlushedSlugs(data)
			if err == nil {
				fmt.Fprintf(out, "%s  %s  %d slugs %v\n", time.Now().Format(time.RFC3339), name, len(slugs), slugs)
				return
			}
		}
		raw, _ := json.Marshal(data)
		fmt.Fprintf(out, "%s  %s  %s\n", time.Now().Format(time.RFC3339), name, raw)
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("viewtail: %v", err)
	}
}
