package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapd/pkg/server"
)

type serveFlags struct {
	address   string
	baseURI   string
	namespace string
	watch     bool
}

// serveFlagVals is the package-level instance bound to cobra flags.
var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the operations of a service file over HTTP",
	Long: `Start the SOAP endpoint described by the service file.

The endpoint answers POSTed envelopes at the configured path and returns the
WSDL for GET <path>?wsdl. /healthz reports status, and when metrics are
enabled Prometheus metrics are served at the metrics path.

With --watch, the service file and its includes are watched and operations
are reloaded on change. A reload that fails keeps the running operations.`,
	Example: `  # Serve ./soapd.yaml
  soapd serve

  # Serve another file on another port, reloading on change
  soapd serve -c calc.yaml --address :9000 --watch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		f := serveFlagVals
		if cmd.Flags().Changed("address") {
			cfg.Address = f.address
		}
		if cmd.Flags().Changed("base-uri") {
			cfg.BaseURI = f.baseURI
		}
		if cmd.Flags().Changed("namespace") {
			cfg.Namespace = f.namespace
		}

		logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer closeLog()

		srv, err := server.New(cfg, server.WithLogger(logger))
		if err != nil {
			return err
		}
		defer srv.Close()

		if f.watch {
			if err := srv.Watch(); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlagVals.address, "address", "a", "", "Listen address (overrides the service file)")
	serveCmd.Flags().StringVar(&serveFlagVals.baseURI, "base-uri", "", "Endpoint URI advertised in the WSDL")
	serveCmd.Flags().StringVar(&serveFlagVals.namespace, "namespace", "", "Service namespace")
	serveCmd.Flags().BoolVarP(&serveFlagVals.watch, "watch", "w", false, "Reload operations when the service files change")
	rootCmd.AddCommand(serveCmd)
}
