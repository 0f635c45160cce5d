package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/Doudousmyle42/mangatracker/internal/config"
	"github.com/Doudousmyle42/mangatracker/internal/library"
	"github.com/Doudousmyle42/mangatracker/internal/util"

	"github.com/spf13/cobra"
)

var (
	flagQuery     string
	flagUserAgent string
)

func init() {
	addCmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Track a manga from one of its reader pages",
		Args:  cobra.ExactArgs(1),
		RunE:  runAdd,
	}
	addCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked manga, most recently updated first",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	listCmd.Flags().StringVar(&flagQuery, "query", "", "only show titles containing this text")

	chapterCmd := &cobra.Command{
		Use:   "chapter <id> <value>",
		Short: "Set the current chapter of a tracked manga",
		Args:  cobra.ExactArgs(2),
		RunE:  runChapter,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Stop tracking a manga",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}

	rootCmd.AddCommand(addCmd, listCmd, chapterCmd, deleteCmd)
}

func optionsFromFlags() config.Options {
	return config.Options{
		Render:    flagRender,
		UserAgent: flagUserAgent,
	}
}

func openLibrary(opts config.Options) (*app, error) {
	return newApp(appOptions{Options: opts, withLibrary: true})
}

func parseEntryID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}

	return id, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := openLibrary(optionsFromFlags())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := util.SetupInterruptHandler(context.Background())
	defer cancel()

	e, err := a.service.Add(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Added #%d %s (chapter %s)\n", e.ID, e.Title, e.Chapter)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := openLibrary(config.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.service.List(cmd.Context(), flagQuery)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No manga tracked yet.")
		return nil
	}

	printEntries(entries)
	return nil
}

func printEntries(entries []library.Entry) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tCHAPTER\tSOURCE\tUPDATED")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.ID, e.Title, e.Chapter, e.Source, e.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}

	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to flush table output: %v\n", err)
	}
}

func runChapter(cmd *cobra.Command, args []string) error {
	id, err := parseEntryID(args[0])
	if err != nil {
		return err
	}

	a, err := openLibrary(config.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	e, err := a.service.SetChapter(cmd.Context(), id, args[1])
	if err != nil {
		return err
	}

	fmt.Printf("#%d %s is now at chapter %s\n", e.ID, e.Title, e.Chapter)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := parseEntryID(args[0])
	if err != nil {
		return err
	}

	a, err := openLibrary(config.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.Delete(cmd.Context(), id); err != nil {
		return err
	}

	fmt.Printf("Deleted #%d\n", id)
	return nil
}
