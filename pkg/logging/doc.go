// Package logging configures the structured loggers used across soapd.
//
// Loggers are plain *slog.Logger values. Components take one through an
// option and fall back to Nop when none is given:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	})
//	engine := soap.NewEngine(soap.Options{Logger: logger})
//
// Request-scoped loggers travel in the context; see WithContext and
// FromContext.
package logging
