package httpserver

import (
	"net/http"
	"testing"
)

func TestNewAppliesTimeouts(t *testing.T) {
	srv := New(":9999", http.NewServeMux())

	if srv.Addr != ":9999" {
		t.Fatalf("expected addr :9999, got %s", srv.Addr)
	}
	if srv.Handler == nil {
		t.Fatal("expected handler to be set")
	}
	if srv.ReadHeaderTimeout != readHeaderTimeout || srv.ReadTimeout != readTimeout {
		t.Fatalf("unexpected read timeouts: %v / %v", srv.ReadHeaderTimeout, srv.ReadTimeout)
	}
	if srv.WriteTimeout != writeTimeout || srv.IdleTimeout != idleTimeout {
		t.Fatalf("unexpected write/idle timeouts: %v / %v", srv.WriteTimeout, srv.IdleTimeout)
	}
}
