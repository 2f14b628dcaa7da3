package source

import (
	"net"
	"net/http"
	"net/url"
)

// proxyFunc picks the proxy for a data fetch. Configured proxies take
// precedence over HTTP_PROXY/HTTPS_PROXY/NO_PROXY; loopback hosts are always
// fetched directly so a locally served data directory keeps working behind a
// corporate proxy.
func proxyFunc(httpProxy, httpsProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	return func(req *http.Request) (*url.URL, error) {
		if isLoopback(req.URL.Hostname()) {
			return nil, nil
		}
		proxy := httpProxy
		if req.URL.Scheme == "https" && httpsProxy != "" {
			proxy = httpsProxy
		}
		if proxy == "" {
			return http.ProxyFromEnvironment(req)
		}
		return url.Parse(proxy)
	}
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
