// Package cli provides the soapd command-line interface.
//
// Commands:
//   - serve: serve a service file over HTTP, optionally reloading on change
//   - wsdl: print the WSDL generated for a service file
//   - call: dispatch a request envelope offline and print the response
//   - validate: check a service file and compile its expressions
//   - version: show build information
//
// Every command reads the service file named by --config, which defaults to
// $SOAPD_CONFIG or ./soapd.yaml.
package cli
