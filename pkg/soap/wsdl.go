package soap

import (
	"strings"
	"sync"

	"github.com/beevik/etree"
)

// TargetNamespace turns a configured namespace into a namespace URI.
// Values that already carry a scheme are returned unchanged.
func TargetNamespace(ns string) string {
	if ns == "" || strings.Contains(ns, ":") {
		return ns
	}
	return "urn:" + ns
}

// SOAPAction returns the action URI advertised for an operation.
func SOAPAction(targetNamespace, operation string) string {
	return targetNamespace + "#" + operation
}

// WSDLConfig describes the service advertised by a generated document.
type WSDLConfig struct {
	Service         string
	TargetNamespace string
	BaseURI         string
	LegacyTypes     bool
	Indent          int
}

// WSDL generates service descriptions for a registry and caches the result
// until the registry changes.
type WSDL struct {
	registry *Registry
	cfg      WSDLConfig

	mu         sync.Mutex
	generation uint64
	cached     []byte
}

// NewWSDL creates a generator over reg.
func NewWSDL(reg *Registry, cfg WSDLConfig) *WSDL {
	return &WSDL{registry: reg, cfg: cfg}
}

// Document returns the WSDL for the current registry contents. Output is
// byte-identical between calls while the registry is unchanged. The returned
// slice must not be modified.
func (g *WSDL) Document() ([]byte, error) {
	gen := g.registry.Generation()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cached != nil && g.generation == gen {
		return g.cached, nil
	}

	snap := g.registry.Snapshot()
	out, err := g.Generate(snap)
	if err != nil {
		return nil, err
	}
	g.cached = out
	g.generation = snap.Generation
	return out, nil
}

// Generate renders a document for snap without touching the cache.
func (g *WSDL) Generate(snap Snapshot) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	tns := g.cfg.TargetNamespace
	service := g.cfg.Service

	defs := doc.CreateElement("definitions")
	defs.CreateAttr("xmlns", WSDLNamespace)
	defs.CreateAttr("xmlns:soap", WSDLSOAPNamespace)
	defs.CreateAttr("xmlns:xsd", SchemaNamespace)
	defs.CreateAttr("xmlns:xsi", SchemaInstanceNamespace)
	defs.CreateAttr("xmlns:SOAP-ENV", EnvelopeNamespace)
	defs.CreateAttr("xmlns:SOAP-ENC", EncodingNamespace)
	defs.CreateAttr("xmlns:tns", tns)
	defs.CreateAttr("name", service)
	defs.CreateAttr("targetNamespace", tns)

	schema := defs.CreateElement("types").CreateElement("xsd:schema")
	schema.CreateAttr("targetNamespace", tns)
	for _, ns := range []string{EncodingNamespace, WSDLNamespace} {
		schema.CreateElement("xsd:import").CreateAttr("namespace", ns)
	}

	for _, op := range snap.Operations {
		g.message(defs, op.Name+"Request", op.Inputs)
		g.message(defs, op.Name+"Response", op.Outputs)
	}

	portType := defs.CreateElement("portType")
	portType.CreateAttr("name", service+"PortType")
	for _, op := range snap.Operations {
		el := portType.CreateElement("operation")
		el.CreateAttr("name", op.Name)
		el.CreateElement("documentation").SetText(op.Doc)
		el.CreateElement("input").CreateAttr("message", "tns:"+op.Name+"Request")
		el.CreateElement("output").CreateAttr("message", "tns:"+op.Name+"Response")
	}

	binding := defs.CreateElement("binding")
	binding.CreateAttr("name", service+"Binding")
	binding.CreateAttr("type", "tns:"+service+"PortType")
	sb := binding.CreateElement("soap:binding")
	sb.CreateAttr("style", "rpc")
	sb.CreateAttr("transport", HTTPTransport)
	for _, op := range snap.Operations {
		el := binding.CreateElement("operation")
		el.CreateAttr("name", op.Name)
		so := el.CreateElement("soap:operation")
		so.CreateAttr("soapAction", SOAPAction(tns, op.Name))
		so.CreateAttr("style", "rpc")
		encodedBody(el.CreateElement("input"), tns)
		encodedBody(el.CreateElement("output"), tns)
	}

	svc := defs.CreateElement("service")
	svc.CreateAttr("name", service)
	port := svc.CreateElement("port")
	port.CreateAttr("name", service+"Port")
	port.CreateAttr("binding", "tns:"+service+"Binding")
	port.CreateElement("soap:address").CreateAttr("location", g.cfg.BaseURI)

	if g.cfg.Indent > 0 {
		doc.Indent(g.cfg.Indent)
	}
	return doc.WriteToBytes()
}

func (g *WSDL) message(defs *etree.Element, name string, params []Param) {
	msg := defs.CreateElement("message")
	msg.CreateAttr("name", name)
	for _, p := range params {
		part := msg.CreateElement("part")
		part.CreateAttr("name", p.Name)
		if g.cfg.LegacyTypes {
			part.CreateAttr("type", "xsd:string")
		} else {
			part.CreateAttr("type", TypeName(p.Shape))
		}
	}
}

func encodedBody(parent *etree.Element, tns string) {
	body := parent.CreateElement("soap:body")
	body.CreateAttr("use", "encoded")
	body.CreateAttr("namespace", tns)
	body.CreateAttr("encodingStyle", EncodingNamespace)
}
