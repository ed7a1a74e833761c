package node

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	"github.com/rollkit/bridge/pkg/log"
	"github.com/rollkit/bridge/pkg/service"
)

// instrumentationServices returns the Prometheus and pprof servers enabled in
// the configuration. When both listen on the same address they share a server.
func (n *Node) instrumentationServices() []service.Service {
	cfg := n.conf.Instrumentation
	if cfg == nil {
		return nil
	}

	var services []service.Service
	var promMux *http.ServeMux
	if cfg.IsPrometheusEnabled() {
		promMux = http.NewServeMux()
		promMux.Handle("/metrics", promhttp.Handler())
		services = append(services, newHTTPService(n.logger, "Metrics", cfg.PrometheusListenAddr, cfg.MaxOpenConnections, promMux))
	}

	if cfg.IsPprofEnabled() {
		addr := cfg.GetPprofListenAddr()
		mux := promMux
		if mux == nil || addr != cfg.PrometheusListenAddr {
			mux = http.NewServeMux()
			services = append(services, newHTTPService(n.logger, "Pprof", addr, 0, mux))
		}
		registerPprof(mux)
	}
	return services
}

func registerPprof(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

// newHTTPService serves handler on addr until ctx is done. maxConns limits the
// number of simultaneous connections; 0 means unlimited.
func newHTTPService(logger log.Logger, name, addr string, maxConns int, handler http.Handler) service.Service {
	var run service.Func = func(ctx context.Context) error {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		if maxConns > 0 {
			listener = netutil.LimitListener(listener, maxConns)
		}

		srv := &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Serve(listener)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error while shutting down server", "server", name, "error", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
	return service.NewBaseService(logger.With("address", addr), name, run)
}
