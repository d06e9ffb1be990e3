package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/triagemhq/triagemd/internal/config"
	"github.com/triagemhq/triagemd/internal/output"
)

var resolveFormat string

var resolveCmd = &cobra.Command{
	Use:   "resolve <cnpj>",
	Short: "Resolve a CNPJ against the configured registries",
	Long: `Resolve a CNPJ across the configured providers in priority order.
When every provider is unavailable a synthetic contingency record is
returned; the output marks its provenance.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(resolveFormat)
		if err != nil {
			return err
		}

		engine := newEngine(config.GetConfig())

		record, err := engine.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		rendered, err := output.FormatRecord(format, record)
		if err != nil {
			return err
		}

		fmt.Println(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVarP(&resolveFormat, "output", "o", "table", "output format (table, json)")
}
