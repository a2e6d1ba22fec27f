package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jmerrifield20/photohunt/internal/friends"
	"github.com/jmerrifield20/photohunt/internal/photos"
	"github.com/jmerrifield20/photohunt/internal/themes"
	"github.com/jmerrifield20/photohunt/internal/users"
	"github.com/jmerrifield20/photohunt/internal/votes"
	"github.com/spf13/cobra"
)

type counter interface {
	Count(ctx context.Context) (int64, error)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		rows := []struct {
			name string
			c    counter
		}{
			{"users", users.NewUserRepository(db)},
			{"edges", friends.NewEdgeRepository(db)},
			{"themes", themes.NewRepository(db)},
			{"photos", photos.NewRepository(db)},
			{"votes", votes.NewRepository(db)},
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TABLE\tROWS")
		for _, r := range rows {
			n, err := r.c.Count(ctx)
			if err != nil {
				return fmt.Errorf("count %s: %w", r.name, err)
			}
			fmt.Fprintf(w, "%s\t%d\n", r.name, n)
		}
		return w.Flush()
	},
}
