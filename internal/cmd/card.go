package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/triagemhq/triagemd/internal/config"
	"github.com/triagemhq/triagemd/internal/core/cnpj"
)

var cardOutputFile string

var cardCmd = &cobra.Command{
	Use:   "card <cnpj>",
	Short: "Download the CNPJ certificate PDF",
	Long: `Download the formal CNPJ certificate document. Without a CNPJá
credential a locally generated placeholder PDF is written instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := newEngine(config.GetConfig())

		content, err := engine.DownloadCertificate(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		path := cardOutputFile
		if path == "" {
			path = "cartao_cnpj_" + cnpj.Clean(args[0]) + ".pdf"
		}

		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("write certificate: %w", err)
		}

		fmt.Printf("certificate written to %s (%d bytes)\n", path, len(content))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cardCmd)
	cardCmd.Flags().StringVarP(&cardOutputFile, "output", "o", "", "output file (default cartao_cnpj_<cnpj>.pdf)")
}
