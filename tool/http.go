package tool

import (
	"net"
	"net/http"
	"time"
)

var (
	DefaultTimeout = 30 * time.Second
)

// NewHTTPClient returns the client used for Bot API calls. The timeout has to stay above
// the long-poll timeout or getUpdates is cut off mid-wait.
func NewHTTPClient(pollTimeout time.Duration) *http.Client {
	timeout := DefaultTimeout
	if pollTimeout+10*time.Second > timeout {
		timeout = pollTimeout + 10*time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   DefaultTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
