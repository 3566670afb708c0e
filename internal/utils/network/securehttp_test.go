package network

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"
)

func TestNewSecureHTTPClient(t *testing.T) {
	c := NewSecureHTTPClient(5 * time.Minute)
	if c.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %v", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("unexpected transport %T", c.Transport)
	}
	if tr.TLSClientConfig.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x", tr.TLSClientConfig.MinVersion)
	}
	if tr.Proxy == nil {
		t.Error("expected proxy from environment")
	}
}
