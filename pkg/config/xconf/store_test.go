package xconf_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtel/pkg/config/xconf"
)

type sampling struct {
	Ratio float64 `koanf:"ratio"`
}

type appConfig struct {
	Service  string   `koanf:"service"`
	Sampling sampling `koanf:"sampling"`
	Tags     []string `koanf:"tags"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAMLWithDefaults(t *testing.T) {
	path := writeFile(t, "app.yaml", "service: checkout\ntags: [a, b]\n")

	store, err := xconf.Load(path, xconf.WithDefaults(map[string]any{
		"service":        "unknown",
		"sampling.ratio": 0.25,
	}))
	require.NoError(t, err)
	assert.Equal(t, xconf.FormatYAML, store.Format())
	assert.Equal(t, path, store.Path())
	assert.Equal(t, uint64(1), store.Version())

	var cfg appConfig
	require.NoError(t, store.Unmarshal("", &cfg))
	assert.Equal(t, "checkout", cfg.Service, "file overrides default")
	assert.InDelta(t, 0.25, cfg.Sampling.Ratio, 1e-9, "default fills missing key")
	assert.Equal(t, []string{"a", "b"}, cfg.Tags)
}

func TestLoad_Errors(t *testing.T) {
	_, err := xconf.Load("")
	assert.ErrorIs(t, err, xconf.ErrEmptyPath)

	_, err = xconf.Load("/tmp/config.toml")
	assert.ErrorIs(t, err, xconf.ErrUnsupportedFormat)

	_, err = xconf.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, xconf.ErrLoadFailed)

	_, err = xconf.Load(writeFile(t, "bad.json", "{not json"))
	assert.ErrorIs(t, err, xconf.ErrParseFailed)
}

func TestLoadBytes(t *testing.T) {
	store, err := xconf.LoadBytes([]byte(`{"sampling":{"ratio":0.5}}`), xconf.FormatJSON)
	require.NoError(t, err)
	var s sampling
	require.NoError(t, store.Unmarshal("sampling", &s))
	assert.InDelta(t, 0.5, s.Ratio, 1e-9)

	assert.ErrorIs(t, store.Reload(), xconf.ErrNotWatchable)

	empty, err := xconf.LoadBytes(nil, xconf.FormatYAML, xconf.WithDefaults(map[string]any{"service": "d"}))
	require.NoError(t, err)
	assert.Equal(t, "d", empty.Koanf().String("service"))

	_, err = xconf.LoadBytes(nil, xconf.Format("toml"))
	assert.ErrorIs(t, err, xconf.ErrUnsupportedFormat)
}

func TestReload_KeepsSnapshotOnFailure(t *testing.T) {
	path := writeFile(t, "app.yaml", "service: v1\n")
	store, err := xconf.Load(path)
	require.NoError(t, err)
	old := store.Koanf()

	require.NoError(t, os.WriteFile(path, []byte("service: v2\n"), 0o600))
	require.NoError(t, store.Reload())
	assert.Equal(t, "v2", store.Koanf().String("service"))
	assert.Equal(t, "v1", old.String("service"), "old snapshot is immutable")
	assert.Equal(t, uint64(2), store.Version())

	require.NoError(t, os.WriteFile(path, []byte("service: [unclosed\n"), 0o600))
	assert.ErrorIs(t, store.Reload(), xconf.ErrParseFailed)
	assert.Equal(t, "v2", store.Koanf().String("service"))
	assert.Equal(t, uint64(2), store.Version())
}

func TestMarshal_IncludesDefaults(t *testing.T) {
	store, err := xconf.LoadBytes([]byte("service: api\n"), xconf.FormatYAML,
		xconf.WithDefaults(map[string]any{"sampling.ratio": 1.0}))
	require.NoError(t, err)
	out, err := store.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "service: api")
	assert.Contains(t, string(out), "ratio: 1")
}

func TestUnmarshal_TypeMismatch(t *testing.T) {
	store, err := xconf.LoadBytes([]byte("sampling: fast\n"), xconf.FormatYAML)
	require.NoError(t, err)
	var cfg appConfig
	assert.ErrorIs(t, store.Unmarshal("", &cfg), xconf.ErrUnmarshalFailed)
}
