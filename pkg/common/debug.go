package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/arl/statsviz"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DebugServer exposes Prometheus runtime metrics on /metrics and the live
// statsviz dashboard on /debug/statsviz for the duration of a scan.
type DebugServer struct {
	srv *http.Server
	ln  net.Listener
}

// NewDebugServer binds addr and registers the debug handlers. The server does
// not accept connections until Serve is called. errorLog may be nil.
func NewDebugServer(addr string, errorLog *log.Logger) (*DebugServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := statsviz.Register(mux); err != nil {
		return nil, fmt.Errorf("failed to register statsviz: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	return &DebugServer{
		srv: &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second, ErrorLog: errorLog},
		ln:  ln,
	}, nil
}

// Addr returns the bound address, useful when addr requested port 0.
func (d *DebugServer) Addr() string { return d.ln.Addr().String() }

// Serve blocks serving requests until Shutdown is called.
func (d *DebugServer) Serve() error {
	if err := d.srv.Serve(d.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (d *DebugServer) Shutdown(ctx context.Context) error { return d.srv.Shutdown(ctx) }
