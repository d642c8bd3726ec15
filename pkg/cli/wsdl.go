package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapd/pkg/logging"
)

var (
	wsdlBaseURI string
	wsdlOutput  string
)

var wsdlCmd = &cobra.Command{
	Use:   "wsdl",
	Short: "Print the WSDL generated for a service file",
	Example: `  soapd wsdl -c calc.yaml --base-uri http://localhost:8080/soap
  soapd wsdl -o service.wsdl`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("base-uri") {
			cfg.BaseURI = wsdlBaseURI
		}

		e, err := buildEngine(cfg, logging.Nop())
		if err != nil {
			return err
		}
		doc, err := e.WSDL()
		if err != nil {
			return err
		}

		if wsdlOutput != "" {
			return os.WriteFile(wsdlOutput, doc, 0o644)
		}
		_, err = cmd.OutOrStdout().Write(doc)
		return err
	},
}

func init() {
	wsdlCmd.Flags().StringVar(&wsdlBaseURI, "base-uri", "", "Endpoint URI advertised in the WSDL")
	wsdlCmd.Flags().StringVarP(&wsdlOutput, "output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(wsdlCmd)
}
