package soap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// OutputNames resolves the declared output names of an operation.
// It returns nil for unknown operations.
type OutputNames func(operation string) []string

// RegistryOutputs resolves output names from a registry.
func RegistryOutputs(reg *Registry) OutputNames {
	return func(operation string) []string {
		op, ok := reg.Lookup(operation)
		if !ok {
			return nil
		}
		names := make([]string, len(op.Outputs))
		for i, p := range op.Outputs {
			names[i] = p.Name
		}
		return names
	}
}

// DecodeResponses reads a response envelope as produced by Writer.
// Result values are typed from their xsi:type attribute. Results are named
// positionally by outputs when it knows the operation; otherwise after their
// element, with a 1-based suffix on repeats ("return", "return2", ...).
func DecodeResponses(data []byte, outputs OutputNames) ([]Response, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("invalid XML: %w", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, fmt.Errorf("%w: root element must be Envelope", ErrMalformed)
	}
	body := root.SelectElement("Body")
	if body == nil {
		return nil, fmt.Errorf("%w: envelope has no Body", ErrMalformed)
	}

	var out []Response
	for _, el := range body.ChildElements() {
		if el.Tag == "Fault" {
			out = append(out, Response{Fault: decodeFault(el)})
			continue
		}

		op := strings.TrimSuffix(el.Tag, "Response")
		var names []string
		if outputs != nil {
			names = outputs(op)
		}

		results := &Fields{}
		seen := make(map[string]int)
		for i, child := range el.ChildElements() {
			v, err := decodeValue(child)
			if err != nil {
				return nil, fmt.Errorf("%s result %d: %w", op, i+1, err)
			}
			name := child.Tag
			if i < len(names) {
				name = names[i]
			} else if seen[name]++; seen[name] > 1 {
				name += strconv.Itoa(seen[name])
			}
			results.Set(name, v)
		}
		out = append(out, Response{Operation: op, Results: results})
	}
	return out, nil
}

func decodeFault(el *etree.Element) *Fault {
	f := &Fault{Code: FaultServer}
	if c := el.SelectElement("faultcode"); c != nil {
		if code, ok := ParseFaultCode(strings.TrimSpace(c.Text())); ok {
			f.Code = code
		}
	}
	if s := el.SelectElement("faultstring"); s != nil {
		f.String = s.Text()
	}
	if a := el.SelectElement("faultactor"); a != nil {
		f.Actor = a.Text()
	}
	if d := el.SelectElement("detail"); d != nil {
		f.Detail = d.Text()
	}
	return f
}

// decodeValue types el by its xsi:type, defaulting to xsd:string.
func decodeValue(el *etree.Element) (Value, error) {
	kind := KindString
	if attr := el.SelectAttr("xsi:type"); attr != nil {
		k, ok := ParseKind(attr.Value)
		if !ok {
			return Value{}, fmt.Errorf("unknown type %q", attr.Value)
		}
		kind = k
	}
	if kind != KindComplex {
		return ParseValue(kind, el.Text())
	}

	attrs, elems := &Fields{}, &Fields{}
	for _, a := range el.Attr {
		if a.Space == "xmlns" || a.Key == "xmlns" || a.FullKey() == "xsi:type" {
			continue
		}
		attrs.Set(a.Key, String(a.Value))
	}
	for _, child := range el.ChildElements() {
		v, err := decodeValue(child)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", child.Tag, err)
		}
		elems.Set(child.Tag, v)
	}
	return Complex(attrs, elems), nil
}
