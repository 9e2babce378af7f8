package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"time"

	"portfolio-views/client"
	"portfolio-views/fetch"
	"portfolio-views/models"
	"portfolio-views/queue"
	"portfolio-views/viewcounter"

	"github.com/spf13/cobra"
)

var (
	watchTrack    bool
	watchInterval time.Duration
)

// watchCmd polls the views list and prints the post's count when it changes
var watchCmd = &cobra.Command{
	Use:   "watch <slug>",
	Short: "Print the view count of a post as it changes",
	Long: `Poll the views API and print the count of one post whenever it changes.

With --track the watch counts as one view of the post, recorded once when it
starts. A refresh that is still running when the next one is due is
cancelled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		// responses must not be served from cache while polling
		return watch(ctx, client.New(serverURL), args[0], watchTrack, watchInterval, cmd.OutOrStdout())
	},
}

type watchView struct {
	counter *viewcounter.Counter
	slug    string
	track   bool
	out     io.Writer

	mu      sync.Mutex
	printed bool
	last    uint
	lastErr string
}

func (v *watchView) render(s fetch.State[[]models.ViewRecord]) {
	count := v.counter.Render(viewcounter.Props{Slug: v.slug, Views: s.Data, Track: v.track})

	v.mu.Lock()
	defer v.mu.Unlock()
	now := time.Now().Format("15:04:05")
	if s.Err != nil {
		if msg := s.Err.Error(); msg != v.lastErr {
			v.lastErr = msg
			fmt.Fprintf(v.out, "%s  %s: %v\n", now, v.slug, s.Err)
		}
		return
	}
	v.lastErr = ""
	if s.Loading || !s.HasData || (v.printed && count == v.last) {
		return
	}
	v.printed = true
	v.last = count
	fmt.Fprintf(v.out, "%s  %s  %d views\n", now, v.slug, count)
}

func watch(ctx context.Context, c *client.Client, slug string, track bool, interval time.Duration, out io.Writer) error {
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", interval)
	}

	worker := queue.NewWorker(1)
	worker.Start(1)
	defer worker.Stop()

	view := &watchView{
		counter: viewcounter.New(viewcounter.NewTracker(c, worker, timeout)),
		slug:    slug,
		track:   track,
		out:     out,
	}
	defer view.counter.Unmount()

	fetcher := fetch.New(func(ctx context.Context) ([]models.ViewRecord, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return c.ListViews(ctx)
	}, fetch.WithOnChange(view.render))
	defer fetcher.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for tick := 0; ; tick++ {
		fetcher.Update(slug, tick)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
