package myhttp

import (
	"fmt"
	"net/http"
)

// HostnameWithScheme returns the externally visible base url. A configured public base
// url wins over the one derived from the request. The derived one trusts the Host header
// the client sent, which is only acceptable locally; deployments must configure it.
func HostnameWithScheme(r *http.Request, publicBaseURL string) string {
	if publicBaseURL != "" {
		return publicBaseURL
	}

	scheme := "https"
	if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
