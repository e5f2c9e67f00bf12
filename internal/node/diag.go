package node

import (
	"context"
	"net"
	"net/http"
	"time"

	"mikron/internal/diag"
)

// diagServer runs the read-only health/metrics HTTP surface (§9's ambient
// observability, out of the RPC surface proper per §1 Non-goals).
type diagServer struct {
	srv *http.Server
	ln  net.Listener
}

func newDiagServer(reg *diag.Registry, addr string, healthy diag.HealthFunc) *diagServer {
	return &diagServer{srv: reg.Server(addr, healthy)}
}

// Start begins listening in the background. Listen errors are logged, not
// fatal, matching "network parse errors never crash the process" in spirit
// (§7) even though this is an operational surface, not the wire protocol.
func (d *diagServer) Start() {
	ln, err := net.Listen("tcp", d.srv.Addr)
	if err != nil {
		log.WithError(err).WithField("addr", d.srv.Addr).Warn("diag listen failed")
		return
	}
	d.ln = ln
	go func() {
		if err := d.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Warn("diag server exited")
		}
	}()
}

// Stop gracefully shuts down the diag server, if it was started.
func (d *diagServer) Stop() {
	if d.ln == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = diag.Shutdown(ctx, d.srv)
}
