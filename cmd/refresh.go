package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/Doudousmyle42/mangatracker/internal/config"
	"github.com/Doudousmyle42/mangatracker/internal/ui"
	"github.com/Doudousmyle42/mangatracker/internal/util"

	"github.com/spf13/cobra"
)

var (
	flagRefreshAll bool
	flagWorkers    int
)

func init() {
	refreshCmd := &cobra.Command{
		Use:   "refresh [id...]",
		Short: "Re-extract tracked pages and pick up new chapters",
		RunE:  runRefresh,
	}
	refreshCmd.Flags().BoolVar(&flagRefreshAll, "all", false, "refresh every tracked manga")
	refreshCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel refreshes (defaults to refresh_workers)")

	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !flagRefreshAll {
		return fmt.Errorf("pass one or more ids, or --all")
	}
	if len(args) > 0 && flagRefreshAll {
		return fmt.Errorf("--all cannot be combined with ids")
	}

	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := parseEntryID(s)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	a, err := openLibrary(config.Options{Workers: flagWorkers})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := util.SetupInterruptHandler(context.Background())
	defer cancel()

	if flagRefreshAll {
		all, err := a.service.List(ctx, "")
		if err != nil {
			return err
		}
		for _, e := range all {
			ids = append(ids, e.ID)
		}
	}

	if len(ids) == 0 {
		fmt.Println("Nothing to refresh.")
		return nil
	}

	pm := ui.NewProgressManager(os.Stderr)
	ph := pm.Register("refresh", len(ids))

	report, err := a.service.RefreshAll(ctx, ids, a.cfg.RefreshWorkers, ph)
	pm.Close()
	if err != nil {
		return err
	}

	for _, e := range report.Updated {
		fmt.Printf("New chapter: #%d %s -> %s\n", e.ID, e.Title, e.Chapter)
	}
	for _, f := range report.Failures {
		fmt.Fprintf(os.Stderr, "failed %s\n", f)
	}
	fmt.Println(report.Stats.Summary())

	return nil
}
