package soap

import (
	"bytes"
	"strings"
	"testing"

	"github.com/beevik/etree"
)

func marshal(t *testing.T, w *Writer, responses ...Response) string {
	t.Helper()
	out, err := w.Marshal(responses...)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return string(out)
}

func TestWriter_EchoResponse(t *testing.T) {
	out := marshal(t, NewWriter("urn:server"), Response{
		Operation: "Echo",
		Results:   NewFields(Field{Name: "value", Value: String("hi")}),
	})

	want := `<ns1:EchoResponse><return xsi:type="xsd:string">hi</return></ns1:EchoResponse>`
	if !strings.Contains(out, want) {
		t.Errorf("output does not contain %s:\n%s", want, out)
	}
	if !strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing XML declaration:\n%s", out)
	}
}

func TestWriter_EnvelopeNamespaces(t *testing.T) {
	out := marshal(t, NewWriter("urn:calc"), Response{Operation: "Ping", Results: &Fields{}})

	doc := etree.NewDocument()
	if err := doc.ReadFromString(out); err != nil {
		t.Fatalf("output is not XML: %v", err)
	}
	env := doc.Root()
	if env.FullTag() != "SOAP-ENV:Envelope" {
		t.Fatalf("root = %s", env.FullTag())
	}

	wantAttrs := map[string]string{
		"xmlns:xsd":              SchemaNamespace,
		"xmlns:xsi":              SchemaInstanceNamespace,
		"xmlns:SOAP-ENV":         EnvelopeNamespace,
		"xmlns:SOAP-ENC":         EncodingNamespace,
		"xmlns:ns1":              "urn:calc",
		"SOAP-ENV:encodingStyle": EncodingNamespace,
	}
	for key, want := range wantAttrs {
		if got := env.SelectAttrValue(key, ""); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}

	bodies := env.SelectElements("Body")
	if len(bodies) != 1 {
		t.Fatalf("expected one Body, got %d", len(bodies))
	}
	if bodies[0].SelectElement("PingResponse") == nil {
		t.Errorf("PingResponse missing:\n%s", out)
	}
}

func TestWriter_EmptyNamespaceIsUnprefixed(t *testing.T) {
	out := marshal(t, NewWriter(""), Response{
		Operation: "Echo",
		Results:   NewFields(Field{Name: "value", Value: String("hi")}),
	})

	if strings.Contains(out, "ns1") {
		t.Errorf("ns1 used without a namespace:\n%s", out)
	}
	if !strings.Contains(out, `<EchoResponse><return xsi:type="xsd:string">hi</return></EchoResponse>`) {
		t.Errorf("unprefixed response element missing:\n%s", out)
	}
}

func TestWriter_TypedValues(t *testing.T) {
	out := marshal(t, NewWriter("urn:server"), Response{
		Operation: "Stats",
		Results: NewFields(
			Field{Name: "count", Value: Int(5)},
			Field{Name: "mean", Value: Decimal(2.5)},
			Field{Name: "ok", Value: Bool(true)},
			Field{Name: "empty", Value: String("")},
		),
	})

	for _, want := range []string{
		`<return xsi:type="xsd:int">5</return>`,
		`<return xsi:type="xsd:decimal">2.5</return>`,
		`<return xsi:type="xsd:boolean">true</return>`,
		`<return xsi:type="xsd:string"/>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in:\n%s", want, out)
		}
	}

	// declaration order is preserved
	if strings.Index(out, "xsd:int") > strings.Index(out, "xsd:decimal") {
		t.Errorf("results out of order:\n%s", out)
	}
}

// Legacy mode reproduces the historical output: every value is declared
// xsd:string and only string content is rendered.
func TestWriter_LegacyTypes(t *testing.T) {
	out := marshal(t, NewWriter("urn:server", WithLegacyTypes()), Response{
		Operation: "Stats",
		Results: NewFields(
			Field{Name: "name", Value: String("calc")},
			Field{Name: "count", Value: Int(5)},
		),
	})

	if !strings.Contains(out, `<return xsi:type="xsd:string">calc</return>`) {
		t.Errorf("string result not rendered:\n%s", out)
	}
	if !strings.Contains(out, `<return xsi:type="xsd:string"/>`) {
		t.Errorf("int result should render as an empty xsd:string element:\n%s", out)
	}
	if strings.Contains(out, "xsd:int") {
		t.Errorf("legacy output carries a non-string type:\n%s", out)
	}
}

func TestWriter_Complex(t *testing.T) {
	v := Complex(
		NewFields(Field{Name: "id", Value: Int(7)}),
		NewFields(
			Field{Name: "name", Value: String("Ada")},
			Field{Name: "age", Value: Int(36)},
		),
	)
	out := marshal(t, NewWriter("urn:server"), Response{
		Operation: "GetUser",
		Results:   NewFields(Field{Name: "user", Value: v}),
	})

	want := `<return xsi:type="SOAP-ENC:Struct" id="7"><name xsi:type="xsd:string">Ada</name><age xsi:type="xsd:int">36</age></return>`
	if !strings.Contains(out, want) {
		t.Errorf("missing %s in:\n%s", want, out)
	}
}

func TestWriter_Escaping(t *testing.T) {
	out := marshal(t, NewWriter("urn:server"), Response{
		Operation: "Echo",
		Results:   NewFields(Field{Name: "v", Value: String("a<b & c")}),
	})
	if !strings.Contains(out, "a&lt;b &amp; c") {
		t.Errorf("text not escaped:\n%s", out)
	}
}

func TestWriter_Fault(t *testing.T) {
	tests := []struct {
		name    string
		fault   *Fault
		want    []string
		notWant []string
	}{
		{
			name:  "client with empty string",
			fault: &Fault{Code: FaultClient},
			want: []string{
				`<SOAP-ENV:Fault>`,
				`<faultcode xsi:type="xsd:string">SOAP-ENV:Client</faultcode>`,
				`<faultstring xsi:type="xsd:string"/>`,
			},
			notWant: []string{"faultactor", "detail"},
		},
		{
			name:  "server with actor and detail",
			fault: ServerFault("boom").WithActor("urn:calc").WithDetail("stack"),
			want: []string{
				`<faultcode xsi:type="xsd:string">SOAP-ENV:Server</faultcode>`,
				`<faultstring xsi:type="xsd:string">boom</faultstring>`,
				`<faultactor xsi:type="xsd:string">urn:calc</faultactor>`,
				`<detail xsi:type="xsd:string">stack</detail>`,
			},
		},
		{
			name:  "version mismatch",
			fault: VersionMismatchFault("v2"),
			want:  []string{`>SOAP-ENV:VersionMismatch<`},
		},
		{
			name:  "must understand",
			fault: MustUnderstandFault("hdr"),
			want:  []string{`>SOAP-ENV:MustUnderstand<`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewWriter("urn:server").MarshalFault(tt.fault)
			if err != nil {
				t.Fatalf("MarshalFault failed: %v", err)
			}
			for _, want := range tt.want {
				if !bytes.Contains(out, []byte(want)) {
					t.Errorf("missing %s in:\n%s", want, out)
				}
			}
			for _, nw := range tt.notWant {
				if bytes.Contains(out, []byte(nw)) {
					t.Errorf("unexpected %s in:\n%s", nw, out)
				}
			}
		})
	}
}

func TestWriter_FaultIsNeverMixed(t *testing.T) {
	out := marshal(t, NewWriter("urn:server"),
		Response{Operation: "Echo", Results: NewFields(Field{Name: "v", Value: String("ok")})},
		Response{Operation: "A", Fault: ClientFault("first")},
		Response{Operation: "B", Fault: ClientFault("second")},
	)

	if strings.Contains(out, "EchoResponse") {
		t.Errorf("success content mixed with fault:\n%s", out)
	}
	if !strings.Contains(out, "first") || strings.Contains(out, "second") {
		t.Errorf("expected only the first fault:\n%s", out)
	}
}

func TestWriter_MultipleResponses(t *testing.T) {
	out := marshal(t, NewWriter("urn:server"),
		Response{Operation: "A", Results: &Fields{}},
		Response{Operation: "B", Results: &Fields{}},
	)
	a, b := strings.Index(out, "<ns1:AResponse"), strings.Index(out, "<ns1:BResponse")
	if a < 0 || b < 0 || a > b {
		t.Errorf("responses missing or out of order:\n%s", out)
	}
}

func TestWriter_WriteMatchesMarshal(t *testing.T) {
	w := NewWriter("urn:server", WithIndent(2))
	resp := Response{Operation: "Echo", Results: NewFields(Field{Name: "v", Value: String("x")})}

	var buf bytes.Buffer
	if err := w.Write(&buf, resp); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.String() != marshal(t, w, resp) {
		t.Error("Write and Marshal disagree")
	}
	if !strings.Contains(buf.String(), "\n  <SOAP-ENV:Body>") {
		t.Errorf("output not indented:\n%s", buf.String())
	}
}
