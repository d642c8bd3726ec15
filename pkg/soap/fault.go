package soap

import "fmt"

// FaultCode is one of the four SOAP 1.1 fault codes.
type FaultCode int

// Fault codes.
const (
	FaultVersionMismatch FaultCode = iota
	FaultMustUnderstand
	FaultClient
	FaultServer
)

// String returns the qualified wire form, e.g. "SOAP-ENV:Client".
func (c FaultCode) String() string {
	switch c {
	case FaultVersionMismatch:
		return "SOAP-ENV:VersionMismatch"
	case FaultMustUnderstand:
		return "SOAP-ENV:MustUnderstand"
	case FaultClient:
		return "SOAP-ENV:Client"
	default:
		return "SOAP-ENV:Server"
	}
}

// Fault is a SOAP fault. It implements error so handlers can return it.
type Fault struct {
	Code   FaultCode
	String string
	Actor  string
	Detail string
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.String)
}

// ClientFault returns a fault blaming the caller.
func ClientFault(format string, args ...any) *Fault {
	return &Fault{Code: FaultClient, String: fmt.Sprintf(format, args...)}
}

// ServerFault returns a fault blaming the service.
func ServerFault(format string, args ...any) *Fault {
	return &Fault{Code: FaultServer, String: fmt.Sprintf(format, args...)}
}

// VersionMismatchFault returns a fault for an unsupported envelope version.
func VersionMismatchFault(format string, args ...any) *Fault {
	return &Fault{Code: FaultVersionMismatch, String: fmt.Sprintf(format, args...)}
}

// MustUnderstandFault returns a fault for a header entry that was not understood.
func MustUnderstandFault(format string, args ...any) *Fault {
	return &Fault{Code: FaultMustUnderstand, String: fmt.Sprintf(format, args...)}
}

// WithActor returns a copy of f with the actor set.
func (f *Fault) WithActor(actor string) *Fault {
	c := *f
	c.Actor = actor
	return &c
}

// WithDetail returns a copy of f with the detail set.
func (f *Fault) WithDetail(detail string) *Fault {
	c := *f
	c.Detail = detail
	return &c
}

// ParseFaultCode resolves "Client", "SOAP-ENV:Client" and the like.
func ParseFaultCode(s string) (FaultCode, bool) {
	_, local := splitTag(s)
	switch local {
	case "VersionMismatch":
		return FaultVersionMismatch, true
	case "MustUnderstand":
		return FaultMustUnderstand, true
	case "Client":
		return FaultClient, true
	case "Server":
		return FaultServer, true
	}
	return FaultServer, false
}
