package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapd/pkg/soap"
)

// ErrFault is returned by call when a response is a fault.
var ErrFault = errors.New("call returned a fault")

var (
	callDecode   bool
	callResponse bool
)

var callCmd = &cobra.Command{
	Use:   "call [envelope-file]",
	Short: "Dispatch a request envelope offline and print the response",
	Long: `Parse a SOAP request envelope, dispatch it against the operations of the
service file without starting a server, and print the response envelope.
The envelope is read from the file argument, or from stdin when the argument
is omitted or "-".

With --decode the typed results are printed one per line instead of the
envelope. With --response the input is a response envelope instead, for
example one captured from a running server; it is decoded and printed the
same way, naming results after the declared outputs of the service file.
The command exits non-zero when the response is a fault.`,
	Example: `  soapd call add.xml
  echo '<Envelope><Body><Add><a>1</a><b>2</b></Add></Body></Envelope>' | soapd call --decode
  curl -s -d @add.xml localhost:8080/ | soapd call --response`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		body, err := readEnvelope(cmd, args)
		if err != nil {
			return err
		}

		logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer closeLog()

		e, err := buildEngine(cfg, logger)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		var resps []soap.Response
		if callResponse {
			resps, err = soap.DecodeResponses(body, soap.RegistryOutputs(e.Registry()))
			if err != nil {
				return fmt.Errorf("invalid response envelope: %w", err)
			}
			printResponses(w, resps)
		} else {
			var out []byte
			out, resps, err = e.Call(cmd.Context(), bytes.NewReader(body))
			if err != nil {
				return err
			}
			if callDecode {
				printResponses(w, resps)
			} else {
				_, _ = w.Write(out)
				fmt.Fprintln(w)
			}
		}

		for _, r := range resps {
			if r.IsFault() {
				return ErrFault
			}
		}
		return nil
	},
}

func readEnvelope(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

func printResponses(w io.Writer, resps []soap.Response) {
	for _, r := range resps {
		if r.IsFault() {
			f := r.Fault
			if r.Operation == "" {
				fmt.Fprintf(w, "fault %s: %s\n", f.Code, f.String)
			} else {
				fmt.Fprintf(w, "%s: fault %s: %s\n", r.Operation, f.Code, f.String)
			}
			if f.Actor != "" {
				fmt.Fprintf(w, "  actor: %s\n", f.Actor)
			}
			if f.Detail != "" {
				fmt.Fprintf(w, "  detail: %s\n", f.Detail)
			}
			continue
		}
		fmt.Fprintf(w, "%s:\n", r.Operation)
		printFields(w, r.Results, 1)
	}
}

func printFields(w io.Writer, fields *soap.Fields, depth int) {
	indent := strings.Repeat("  ", depth)
	fields.Each(func(name string, v soap.Value) {
		if v.Kind() == soap.KindComplex {
			fmt.Fprintf(w, "%s%s (%s):\n", indent, name, soap.TypeName(v))
			printFields(w, v.Attrs(), depth+1)
			printFields(w, v.Elems(), depth+1)
			return
		}
		fmt.Fprintf(w, "%s%s (%s) = %s\n", indent, name, soap.TypeName(v), soap.Lexical(v))
	})
}

func init() {
	callCmd.Flags().BoolVarP(&callDecode, "decode", "d", false, "Print typed results instead of the envelope")
	callCmd.Flags().BoolVarP(&callResponse, "response", "r", false, "Decode a response envelope instead of dispatching a request")
	rootCmd.AddCommand(callCmd)
}
