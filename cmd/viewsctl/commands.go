package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"portfolio-views/client"

	"github.com/spf13/cobra"
)

// listCmd prints every stored count
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List view counts for every post",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		views, err := newClient().ListViews(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SLUG\tVIEWS")
		for _, v := range views {
			fmt.Fprintf(tw, "%s\t%d\n", v.Slug, v.Count)
		}
		return tw.Flush()
	},
}

var getCmd = &cobra.Command{
	Use:   "get <slug>",
	Short: "Print the view count of one post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		count, err := newClient().GetViews(ctx, args[0], false)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), count)
		return nil
	},
}

// hitCmd records a view without waiting for it to be stored
var hitCmd = &cobra.Command{
	Use:   "hit <slug>",
	Short: "Record one view of a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if err := newClient().Increment(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queued view of %s\n", args[0])
		return nil
	},
}

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List posts with their reading time and views",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		posts, err := newClient().ListPosts(ctx)
		if err != nil {
			return err
		}
		return printPosts(cmd.OutOrStdout(), posts)
	},
}

func printPosts(w io.Writer, posts []client.PostViews) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSLUG\tMIN\tVIEWS\tTITLE")
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", p.Date.Format("2006-01-02"), p.Slug, p.ReadingMinutes, p.Views, p.Title)
	}
	return tw.Flush()
}
