package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/soapd/pkg/config"
)

const calcYAML = `
name: Calc
namespace: calc
path: /soap
metrics:
  enabled: true
operations:
  - name: Add
    inputs:
      - {name: a, type: int}
      - {name: b, type: int}
    outputs:
      - {name: sum, type: int, expr: "a + b"}
`

const addEnvelope = `<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
<SOAP-ENV:Body><ns1:Add xmlns:ns1="urn:calc"><a>2</a><b>3</b></ns1:Add></SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "soapd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestServer(t *testing.T, content string) *Server {
	t.Helper()
	cfg, err := config.LoadFromFile(writeConfig(t, t.TempDir(), content))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	s, err := New(cfg, WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, h http.Handler, method, target, body string) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, r))
	resp := w.Result()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestServer_Call(t *testing.T) {
	s := newTestServer(t, calcYAML)

	resp, body := do(t, s.Handler(), http.MethodPost, "/soap", addEnvelope)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, `<ns1:AddResponse><return xsi:type="xsd:int">5</return></ns1:AddResponse>`)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestServer_WSDL(t *testing.T) {
	s := newTestServer(t, calcYAML)

	resp, body := do(t, s.Handler(), http.MethodGet, "/soap?wsdl", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<service name="Calc">`)
	assert.Contains(t, body, `name="AddRequest"`)
	assert.Contains(t, body, `soapAction="urn:calc#Add"`)
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, calcYAML)

	resp, body := do(t, s.Handler(), http.MethodGet, HealthPath, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h healthResponse
	require.NoError(t, json.Unmarshal([]byte(body), &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "Calc", h.Service)
	assert.Equal(t, 1, h.Operations)
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t, calcYAML)
	h := s.Handler()

	do(t, h, http.MethodPost, "/soap", addEnvelope)
	do(t, h, http.MethodPost, "/soap", `<Envelope><Body><Nope/></Body></Envelope>`)
	do(t, h, http.MethodPost, "/soap", `<Body/>`)

	m := s.Metrics()
	require.NotNil(t, m)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallsTotal.WithLabelValues("Add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallsTotal.WithLabelValues("Nope", "client")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MalformedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/soap", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/soap", "400")))

	resp, body := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `soapd_calls_total{operation="Add",outcome="ok"} 1`)
}

func TestServer_MetricsDisabled(t *testing.T) {
	s := newTestServer(t, strings.Replace(calcYAML, "enabled: true", "enabled: false", 1))

	assert.Nil(t, s.Metrics())
	resp, _ := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, s.Handler(), http.MethodPost, "/soap", addEnvelope)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RequestIDPropagated(t *testing.T) {
	s := newTestServer(t, calcYAML)

	req := httptest.NewRequest(http.MethodPost, "/soap", strings.NewReader(addEnvelope))
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestServer_New_BuildError(t *testing.T) {
	cfg, err := config.Parse([]byte(`
operations:
  - name: Bad
    outputs: [{name: r, expr: "undefined_var"}]
`))
	require.NoError(t, err)

	_, err = New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad")
}

func TestServer_Serve(t *testing.T) {
	s := newTestServer(t, calcYAML)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String()
	resp, err := http.Post(url+"/soap", "text/xml", strings.NewReader(addEnvelope))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), ">5</return>")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
