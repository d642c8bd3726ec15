// Package server hosts a soap.Engine built from a service file.
//
// Routes:
//
//	GET  /healthz        service status as JSON
//	GET  <metrics.path>  Prometheus metrics, when enabled
//	*    <path>          the SOAP endpoint; GET <path>?wsdl returns the WSDL
//
// Every request gets an X-Request-ID and a request-scoped logger, retrieved
// with logging.FromContext. Watch reloads the operations whenever the service
// file or one of its includes changes; a failed reload keeps the running
// operations.
package server
