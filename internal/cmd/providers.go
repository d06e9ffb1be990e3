package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/triagemhq/triagemd/internal/config"
	"github.com/triagemhq/triagemd/internal/output"
)

var providersFormat string

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Show the configured CNPJ providers and their health",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(providersFormat)
		if err != nil {
			return err
		}

		engine := newEngine(config.GetConfig())

		rendered, err := output.FormatProviderHealth(format, engine.ProviderHealth())
		if err != nil {
			return err
		}

		fmt.Println(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.Flags().StringVarP(&providersFormat, "output", "o", "table", "output format (table, json)")
}
