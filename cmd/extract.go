package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Doudousmyle42/mangatracker/internal/providers"
	"github.com/Doudousmyle42/mangatracker/internal/util"

	"github.com/spf13/cobra"
)

var (
	flagRender bool
	flagJSON   bool
)

func init() {
	extractCmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract title, chapter, cover and synopsis from a reader page",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
	extractCmd.Flags().BoolVar(&flagRender, "render", false, "render the page in a headless browser instead of fetching it")
	extractCmd.Flags().BoolVar(&flagJSON, "json", false, "print the result as JSON")

	inspectCmd := &cobra.Command{
		Use:   "inspect <file> <url>",
		Short: "Extract metadata from a saved HTML page, resolving links against <url>",
		Args:  cobra.ExactArgs(2),
		RunE:  runInspect,
	}
	inspectCmd.Flags().BoolVar(&flagJSON, "json", false, "print the result as JSON")

	rootCmd.AddCommand(extractCmd, inspectCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{Options: optionsFromFlags()})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := util.SetupInterruptHandler(context.Background())
	defer cancel()

	var ex providers.Extractor = a.extractor()
	if flagRender {
		ex = a.renderer
	}

	res, err := ex.Extract(ctx, args[0])
	if err != nil {
		return err
	}

	return printResult(res)
}

func runInspect(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{Options: optionsFromFlags()})
	if err != nil {
		return err
	}
	defer a.Close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", args[0], err)
	}

	return printResult(a.scraper.ExtractHTML(args[1], string(data)))
}

func printResult(res providers.Result) error {
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("Title:    %s\n", res.Title)
	fmt.Printf("Chapter:  %s\n", res.Chapter)
	fmt.Printf("Cover:    %s\n", res.CoverImage)
	fmt.Printf("Source:   %s\n", res.Source)
	if res.Synopsis != "" {
		fmt.Printf("Synopsis: %s\n", res.Synopsis)
	}

	return nil
}
