package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/Doudousmyle42/mangatracker/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var flagYes bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create and activate the Default config",
	RunE: func(cmd *cobra.Command, args []string) error {
		def := config.DefaultConfig()

		fmt.Println("Default configuration:")
		def.Print()
		fmt.Println()

		if !flagYes {
			prompt := promptui.Prompt{
				Label:     fmt.Sprintf("Create Default config in %s", config.ConfigsDir()),
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				fmt.Println("Aborted.")
				return nil
			}
		}

		path, err := config.InitDefaultConfig()
		if errors.Is(err, os.ErrExist) {
			fmt.Println("Configuration already exists at:")
			fmt.Println("  ", path)
			fmt.Println("It is now the active config.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		fmt.Println("Config created at:", path)
		fmt.Println("This config is now active (label: Default).")

		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "do not ask for confirmation")
	configCmd.AddCommand(configInitCmd)
}
