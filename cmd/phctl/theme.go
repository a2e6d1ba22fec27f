package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jmerrifield20/photohunt/internal/themes"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var themeStart string

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Schedule and list themes",
}

var themeAddCmd = &cobra.Command{
	Use:   "add <display name>",
	Short: "Schedule a theme starting on --start (default today)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now().UTC()
		if themeStart != "" {
			t, err := time.Parse(time.DateOnly, themeStart)
			if err != nil {
				return fmt.Errorf("%w: --start must be YYYY-MM-DD", errUsage)
			}
			start = t
		}

		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		svc := themes.NewService(themes.NewRepository(db), zap.NewNop())
		t, err := svc.Add(ctx, strings.Join(args, " "), start)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "theme %d %q starts %s\n", t.ID, t.DisplayName, t.Start.Format(time.DateOnly))
		return nil
	},
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List started themes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		list, err := themes.NewService(themes.NewRepository(db), zap.NewNop()).List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTART\tPREVIEW")
		for _, t := range list {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", t.ID, t.DisplayName, t.Start.Format(time.DateOnly), t.PreviewPhotoID)
		}
		return w.Flush()
	},
}

func init() {
	themeAddCmd.Flags().StringVar(&themeStart, "start", "", "start day, YYYY-MM-DD")
	themeCmd.AddCommand(themeAddCmd)
	themeCmd.AddCommand(themeListCmd)
}
