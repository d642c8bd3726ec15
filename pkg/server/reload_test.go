package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/soapd/pkg/config"
)

const subYAML = `
  - name: Sub
    inputs:
      - {name: a, type: int}
      - {name: b, type: int}
    outputs:
      - {name: diff, type: int, expr: "a - b"}
`

const subEnvelope = `<Envelope><Body><Sub><a>7</a><b>2</b></Sub></Body></Envelope>`

func loadServer(t *testing.T, path string) *Server {
	t.Helper()
	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)
	s, err := New(cfg, WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestReload_AddsOperation(t *testing.T) {
	path := writeConfig(t, t.TempDir(), calcYAML)
	s := loadServer(t, path)

	_, body := do(t, s.Handler(), http.MethodPost, "/soap", subEnvelope)
	assert.Contains(t, body, "is not defined for this service")

	require.NoError(t, os.WriteFile(path, []byte(calcYAML+subYAML), 0o644))
	require.NoError(t, s.Reload())

	_, body = do(t, s.Handler(), http.MethodPost, "/soap", subEnvelope)
	assert.Contains(t, body, `<return xsi:type="xsd:int">5</return>`)

	m := s.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConfigReloads))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations))

	_, body = do(t, s.Handler(), http.MethodGet, "/soap?wsdl", "")
	assert.Contains(t, body, `name="SubRequest"`)
}

func TestReload_FailureKeepsOperations(t *testing.T) {
	path := writeConfig(t, t.TempDir(), calcYAML)
	s := loadServer(t, path)

	require.NoError(t, os.WriteFile(path, []byte(calcYAML+`
  - name: Broken
    outputs: [{name: r, expr: "a +"}]
`), 0o644))
	require.Error(t, s.Reload())

	_, body := do(t, s.Handler(), http.MethodPost, "/soap", addEnvelope)
	assert.Contains(t, body, ">5</return>")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().ConfigReloadErrors))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.Metrics().ConfigReloads))
}

func TestReload_KeepsEndpointSettings(t *testing.T) {
	path := writeConfig(t, t.TempDir(), calcYAML)
	s := loadServer(t, path)

	changed := `
name: Renamed
namespace: other
path: /elsewhere
operations:
` + subYAML
	require.NoError(t, os.WriteFile(path, []byte(changed), 0o644))
	require.NoError(t, s.Reload())

	cfg := s.Config()
	assert.Equal(t, "Calc", cfg.Name)
	assert.Equal(t, "/soap", cfg.Path)
	require.Len(t, cfg.Operations, 1)
	assert.Equal(t, "Sub", cfg.Operations[0].Name)
}

func TestReload_NoSource(t *testing.T) {
	s, err := New(config.Default())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	assert.True(t, errors.Is(s.Reload(), ErrNoSource))
	assert.True(t, errors.Is(s.Watch(), ErrNoSource))
}

func TestWatch_ReloadsIncludedFile(t *testing.T) {
	dir := t.TempDir()
	opsDir := filepath.Join(dir, "ops")
	require.NoError(t, os.MkdirAll(opsDir, 0o755))
	incPath := filepath.Join(opsDir, "sub.yaml")
	require.NoError(t, os.WriteFile(incPath, []byte("operations: []\n"), 0o644))

	path := writeConfig(t, dir, calcYAML+"include: [ops/*.yaml]\n")
	s := loadServer(t, path)
	require.NoError(t, s.Watch())

	require.NoError(t, os.WriteFile(incPath, []byte("operations:\n"+subYAML), 0o644))

	assert.Eventually(t, func() bool {
		_, ok := s.Engine().Registry().Lookup("Sub")
		return ok
	}, 5*time.Second, 50*time.Millisecond)
}
