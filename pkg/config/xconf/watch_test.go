package xconf_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/omeyang/xtel/pkg/config/xconf"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "app.yaml", "service: v1\n")
	store, err := xconf.Load(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan error, 8)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(_ *xconf.Store, err error) {
			select {
			case results <- err:
			default:
			}
		}, xconf.WithDebounce(20*time.Millisecond))
	}()

	// fsnotify 注册是异步的，持续写入直到观察到重载
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("service: v2\n"), 0o600)
		select {
		case err := <-results:
			return err == nil && store.Koanf().String("service") == "v2"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_NotWatchable(t *testing.T) {
	store, err := xconf.LoadBytes(nil, xconf.FormatYAML)
	require.NoError(t, err)
	assert.ErrorIs(t, store.Watch(context.Background(), nil), xconf.ErrNotWatchable)
}
