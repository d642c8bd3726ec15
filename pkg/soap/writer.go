package soap

import (
	"io"

	"github.com/beevik/etree"
)

// Writer renders responses and faults as envelopes.
type Writer struct {
	targetNamespace string
	legacyTypes     bool
	indent          int
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLegacyTypes reproduces the historical wire typing: every value is
// declared xsd:string and only plain strings render content.
func WithLegacyTypes() WriterOption {
	return func(w *Writer) { w.legacyTypes = true }
}

// WithIndent pretty-prints output with n spaces per level.
func WithIndent(n int) WriterOption {
	return func(w *Writer) { w.indent = n }
}

// NewWriter creates a Writer. targetNamespace is bound to the ns1 prefix of
// response elements. When it is empty, response elements are unprefixed.
func NewWriter(targetNamespace string, opts ...WriterOption) *Writer {
	w := &Writer{targetNamespace: targetNamespace}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Marshal renders responses into one envelope. If any response is a fault,
// only the first fault is rendered.
func (w *Writer) Marshal(responses ...Response) ([]byte, error) {
	return w.document(responses).WriteToBytes()
}

// Write renders responses to dst.
func (w *Writer) Write(dst io.Writer, responses ...Response) error {
	_, err := w.document(responses).WriteTo(dst)
	return err
}

// MarshalFault renders a single fault envelope.
func (w *Writer) MarshalFault(f *Fault) ([]byte, error) {
	return w.Marshal(Response{Fault: f})
}

func (w *Writer) document(responses []Response) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement("SOAP-ENV:Envelope")
	env.CreateAttr("xmlns:xsd", SchemaNamespace)
	env.CreateAttr("xmlns:xsi", SchemaInstanceNamespace)
	env.CreateAttr("xmlns:SOAP-ENV", EnvelopeNamespace)
	env.CreateAttr("xmlns:SOAP-ENC", EncodingNamespace)
	if w.targetNamespace != "" {
		env.CreateAttr("xmlns:ns1", w.targetNamespace)
	}
	env.CreateAttr("SOAP-ENV:encodingStyle", EncodingNamespace)

	body := env.CreateElement("SOAP-ENV:Body")

	for i := range responses {
		if f := responses[i].Fault; f != nil {
			writeFault(body, f)
			return w.finish(doc)
		}
	}
	for i := range responses {
		w.writeResult(body, &responses[i])
	}
	return w.finish(doc)
}

func (w *Writer) finish(doc *etree.Document) *etree.Document {
	if w.indent > 0 {
		doc.Indent(w.indent)
	}
	return doc
}

func (w *Writer) writeResult(body *etree.Element, r *Response) {
	tag := r.Operation + "Response"
	if w.targetNamespace != "" {
		tag = "ns1:" + tag
	}
	res := body.CreateElement(tag)
	r.Results.Each(func(_ string, v Value) {
		w.writeValue(res.CreateElement("return"), v)
	})
}

// writeValue types el and fills it with v's content.
func (w *Writer) writeValue(el *etree.Element, v Value) {
	if w.legacyTypes {
		el.CreateAttr("xsi:type", "xsd:string")
		if v.Kind() == KindString && v.Str() != "" {
			el.SetText(v.Str())
		}
		return
	}

	el.CreateAttr("xsi:type", TypeName(v))
	if v.Kind() != KindComplex {
		if s := Lexical(v); s != "" {
			el.SetText(s)
		}
		return
	}
	v.Attrs().Each(func(name string, av Value) {
		el.CreateAttr(name, Lexical(av))
	})
	v.Elems().Each(func(name string, cv Value) {
		w.writeValue(el.CreateElement(name), cv)
	})
}

func writeFault(body *etree.Element, f *Fault) {
	fault := body.CreateElement("SOAP-ENV:Fault")

	code := fault.CreateElement("faultcode")
	code.CreateAttr("xsi:type", "xsd:string")
	code.SetText(f.Code.String())

	// always present, even when empty
	str := fault.CreateElement("faultstring")
	str.CreateAttr("xsi:type", "xsd:string")
	if f.String != "" {
		str.SetText(f.String)
	}

	if f.Actor != "" {
		actor := fault.CreateElement("faultactor")
		actor.CreateAttr("xsi:type", "xsd:string")
		actor.SetText(f.Actor)
	}
	if f.Detail != "" {
		detail := fault.CreateElement("detail")
		detail.CreateAttr("xsi:type", "xsd:string")
		detail.SetText(f.Detail)
	}
}
