package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/soapd/pkg/soap"
)

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

var validLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var validFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks the config and returns every problem found, joined.
func (c *ServiceConfig) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Name) == "" {
		fail("name", "is required")
	}
	if strings.ContainsAny(c.Namespace, " \t\n") {
		fail("namespace", "must not contain whitespace")
	}
	if c.Path != "" && !strings.HasPrefix(c.Path, "/") {
		fail("path", "must start with /")
	}
	if c.MaxBodySize < 0 {
		fail("maxBodySize", "must not be negative")
	}
	if c.Log.Level != "" && !validLevels[strings.ToLower(c.Log.Level)] {
		fail("log.level", "unknown level %q", c.Log.Level)
	}
	if c.Log.Format != "" && !validFormats[strings.ToLower(c.Log.Format)] {
		fail("log.format", "unknown format %q", c.Log.Format)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		fail("metrics.path", "must start with /")
	}
	if c.Metrics.Enabled && c.Metrics.Path == c.Path {
		fail("metrics.path", "must differ from the service path")
	}

	seen := make(map[string]bool, len(c.Operations))
	for i, op := range c.Operations {
		errs = append(errs, op.validate(fmt.Sprintf("operations[%d]", i), seen)...)
	}
	return errors.Join(errs...)
}

func (o *OperationConfig) validate(prefix string, seen map[string]bool) []error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: prefix + field, Message: fmt.Sprintf(format, args...)})
	}

	switch {
	case o.Name == "":
		fail(".name", "is required")
	case !validName(o.Name):
		fail(".name", "%q is not a valid element name", o.Name)
	case seen[o.Name]:
		fail(".name", "duplicate operation %q", o.Name)
	}
	seen[o.Name] = true

	params := make(map[string]bool)
	for i, in := range o.Inputs {
		field := fmt.Sprintf(".inputs[%d]", i)
		if !validName(in.Name) {
			fail(field+".name", "%q is not a valid element name", in.Name)
		} else if params[in.Name] {
			fail(field+".name", "duplicate input %q", in.Name)
		}
		params[in.Name] = true
		if _, err := in.Kind(); err != nil {
			fail(field+".type", "%v", err)
		}
	}

	outs := make(map[string]bool)
	for i, out := range o.Outputs {
		field := fmt.Sprintf(".outputs[%d]", i)
		if !validName(out.Name) {
			fail(field+".name", "%q is not a valid element name", out.Name)
		} else if outs[out.Name] {
			fail(field+".name", "duplicate output %q", out.Name)
		}
		outs[out.Name] = true
		if _, err := out.Kind(); err != nil {
			fail(field+".type", "%v", err)
		}
		if strings.TrimSpace(out.Expr) == "" {
			fail(field+".expr", "is required")
		}
	}

	if o.Fault != nil {
		if _, err := o.Fault.FaultCode(); err != nil {
			fail(".fault.code", "%v", err)
		}
	}
	return errs
}

// Kind resolves the declared type.
func (p ParamConfig) Kind() (soap.Kind, error) { return resolveKind(p.Type) }

// Kind resolves the declared type.
func (o OutputConfig) Kind() (soap.Kind, error) { return resolveKind(o.Type) }

func resolveKind(typeName string) (soap.Kind, error) {
	if typeName == "" {
		return soap.KindString, nil
	}
	k, ok := soap.ParseKind(typeName)
	if !ok {
		return 0, fmt.Errorf("unknown type %q", typeName)
	}
	if k == soap.KindComplex {
		return 0, fmt.Errorf("type %q cannot be declared in a service file", typeName)
	}
	return k, nil
}

// FaultCode resolves the configured code; empty means Server.
func (f *FaultConfig) FaultCode() (soap.FaultCode, error) {
	if f.Code == "" {
		return soap.FaultServer, nil
	}
	code, ok := soap.ParseFaultCode(f.Code)
	if !ok {
		return 0, fmt.Errorf("unknown fault code %q", f.Code)
	}
	return code, nil
}

// validName reports whether s can be used unprefixed as an element name.
func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case i > 0 && (r == '-' || r == '.' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return true
}
