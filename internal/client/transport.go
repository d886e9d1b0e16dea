package client

import (
	"net"
	"net/http"
	"time"
)

// newTransport is sized for one control endpoint: a couple of idle
// connections, and header/dial timeouts bounded by the request timeout.
func newTransport(timeout time.Duration) *http.Transport {
	dial := 3 * time.Second
	if timeout > 0 && timeout < dial {
		dial = timeout
	}
	dialer := &net.Dialer{
		Timeout:   dial,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          2,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   dial,
		ResponseHeaderTimeout: timeout,
	}
}
