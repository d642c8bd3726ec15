package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Persistent flags available to all subcommands
	configPath string
	logLevel   string
	logFormat  string

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// DefaultConfigPath is used when --config is not given and SOAPD_CONFIG is unset.
const DefaultConfigPath = "soapd.yaml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "soapd",
	Short: "soapd serves SOAP 1.1 RPC operations declared in YAML",
	Long: `soapd is a SOAP 1.1 RPC/encoded server. Operations are declared in a
service file with typed inputs and outputs computed by expressions; soapd
parses incoming envelopes, dispatches them, serializes typed responses and
publishes a WSDL 1.1 description at <path>?wsdl.

The service file defaults to ./soapd.yaml, or $SOAPD_CONFIG when set.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute runs the root command and exits non-zero on error.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Run executes the CLI with args and writes to the given streams. It is
// intended for tests.
func Run(args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()
	return rootCmd.Execute()
}

func init() {
	defaultConfig := os.Getenv("SOAPD_CONFIG")
	if defaultConfig == "" {
		defaultConfig = DefaultConfigPath
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "Service file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides the service file)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides the service file)")
}
