package cmd

import (
	"github.com/spf13/cobra"

	"github.com/propdoc-io/propdoc/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize propdoc configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure propdoc and generates a .propdoc.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
