package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapd/pkg/scripted"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a service file without serving it",
	Long: `Validate a service file: YAML syntax, includes, field values, declared
types and fault codes, and that every output expression compiles against the
declared inputs.`,
	Example: `  soapd validate
  soapd validate -c calc.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := scripted.BuildAll(cfg.Operations, nil); err != nil {
			return fmt.Errorf("invalid service file %s:\n%w", configPath, err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s: valid\n", configPath)
		fmt.Fprintf(w, "  service:    %s\n", cfg.Name)
		fmt.Fprintf(w, "  namespace:  %s\n", cfg.Namespace)
		fmt.Fprintf(w, "  operations: %d\n", len(cfg.Operations))
		if files := cfg.Files(); len(files) > 1 {
			fmt.Fprintf(w, "  includes:   %d\n", len(files)-1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
