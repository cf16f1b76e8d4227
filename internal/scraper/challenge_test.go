package scraper

import (
	"net/http"
	"testing"
)

func TestDetectChallenge(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   string
	}{
		{
			name:   "plain page",
			status: http.StatusOK,
			header: http.Header{"Server": {"nginx"}},
			body:   "<html>welcome</html>",
			want:   "",
		},
		{
			name:   "cloudflare by server header",
			status: http.StatusServiceUnavailable,
			header: http.Header{"Server": {"cloudflare"}},
			want:   "Cloudflare",
		},
		{
			name:   "cloudflare by body",
			status: http.StatusForbidden,
			header: http.Header{},
			body:   `<div class="cf-turnstile"></div>`,
			want:   "Cloudflare",
		},
		{
			name:   "cloudflare body on 200 is not a challenge",
			status: http.StatusOK,
			header: http.Header{"Server": {"cloudflare"}},
			body:   "cf-browser-verification",
			want:   "",
		},
		{
			name:   "akamai block page",
			status: http.StatusForbidden,
			header: http.Header{},
			body:   "Access Denied. Reference #18.abc",
			want:   "Akamai",
		},
		{
			name:   "datadome header",
			status: http.StatusForbidden,
			header: http.Header{"X-Datadome": {"protected"}},
			want:   "DataDome",
		},
		{
			name:   "perimeterx body",
			status: http.StatusForbidden,
			header: http.Header{},
			body:   `<script src="https://client.perimeterx.net/main.min.js"></script>`,
			want:   "PerimeterX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectChallenge(tt.status, tt.header, []byte(tt.body)); got != tt.want {
				t.Errorf("DetectChallenge() = %q, want %q", got, tt.want)
			}
		})
	}
}
