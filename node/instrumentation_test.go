package node

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rollkit/bridge/pkg/config"
	"github.com/rollkit/bridge/pkg/store"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestInstrumentationServices(t *testing.T) {
	cases := []struct {
		name  string
		instr *config.InstrumentationConfig
		want  int
	}{
		{"no section", nil, 0},
		{"disabled", config.DefaultInstrumentationConfig(), 0},
		{"metrics only", &config.InstrumentationConfig{Prometheus: true, PrometheusListenAddr: ":9100"}, 1},
		{"pprof only", &config.InstrumentationConfig{Pprof: true}, 1},
		{"shared address", &config.InstrumentationConfig{Prometheus: true, PrometheusListenAddr: ":9100", Pprof: true, PprofListenAddr: ":9100"}, 1},
		{"separate addresses", &config.InstrumentationConfig{Prometheus: true, PrometheusListenAddr: ":9100", Pprof: true, PprofListenAddr: ":9101"}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := getTestConfig()
			cfg.Instrumentation = tc.instr
			n := newTestNode(t, cfg, store.NewTestKVStore())
			assert.Len(t, n.instrumentationServices(), tc.want)
		})
	}
}

func TestInstrumentationSharedListener(t *testing.T) {
	addr := freeAddr(t)
	cfg := getTestConfig()
	cfg.Instrumentation = &config.InstrumentationConfig{
		Prometheus:           true,
		PrometheusListenAddr: addr,
		MaxOpenConnections:   2,
		Pprof:                true,
		PprofListenAddr:      addr,
	}
	n := newTestNode(t, cfg, store.NewTestKVStore())
	services := n.instrumentationServices()
	require.Len(t, services, 1)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- services[0].Run(ctx)
	}()

	get := func(path string) int {
		resp, err := http.Get(fmt.Sprintf("http://%s%s", addr, path))
		if err != nil {
			return 0
		}
		defer resp.Body.Close()
		return resp.StatusCode
	}
	// metrics and pprof are both served by the one listener
	require.Eventually(t, func() bool {
		return get("/metrics") == http.StatusOK
	}, waitTimeout, pollInterval)
	assert.Equal(t, http.StatusOK, get("/debug/pprof/"))

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitTimeout):
		t.Fatal("instrumentation server did not stop")
	}
}
