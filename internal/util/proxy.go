package util

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"
)

// NewProxyFunc returns a transport proxy function. Explicit settings replace
// the HTTP_PROXY family of environment variables as a whole; with neither
// proxy set the environment is used.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	cfg := httpproxy.FromEnvironment()
	if httpProxy != "" || httpsProxy != "" {
		cfg = &httpproxy.Config{
			HTTPProxy:  httpProxy,
			HTTPSProxy: httpsProxy,
			NoProxy:    noProxy,
		}
		// An https-only setting still covers plain http
		if cfg.HTTPProxy == "" {
			cfg.HTTPProxy = httpsProxy
		}
	}

	proxy := cfg.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return proxy(req.URL)
	}
}
