package soap

// Namespace URIs used on the wire and in generated WSDL documents.
const (
	EnvelopeNamespace       = "http://schemas.xmlsoap.org/soap/envelope/"
	EncodingNamespace       = "http://schemas.xmlsoap.org/soap/encoding/"
	SchemaNamespace         = "http://www.w3.org/2001/XMLSchema"
	SchemaInstanceNamespace = "http://www.w3.org/2001/XMLSchema-instance"
	WSDLNamespace           = "http://schemas.xmlsoap.org/wsdl/"
	WSDLSOAPNamespace       = "http://schemas.xmlsoap.org/wsdl/soap/"
	HTTPTransport           = "http://schemas.xmlsoap.org/soap/http"
)

// ContentType is the content type of envelopes and WSDL documents.
const ContentType = "text/xml; charset=utf-8"

// Request is one operation invocation read from an envelope Body.
type Request struct {
	// Operation is the local name of the invocation element.
	Operation string

	// Namespace is the prefix the invocation element carried, if any.
	// It is informational only; matching ignores it.
	Namespace string

	// Args maps argument names to their values. Later duplicates win.
	Args map[string]Value
}

// Arg returns the named argument.
func (r *Request) Arg(name string) (Value, bool) {
	v, ok := r.Args[name]
	return v, ok
}

// Response is the outcome of one dispatched call: either ordered results
// or a fault, never both.
type Response struct {
	Operation string
	Results   *Fields
	Fault     *Fault
}

// IsFault reports whether the response carries a fault.
func (r *Response) IsFault() bool {
	return r.Fault != nil
}
