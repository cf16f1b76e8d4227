package scraper

import (
	"bytes"
	"net/http"
	"slices"
	"strings"
)

// signature describes how a bot-protection vendor's challenge page looks.
type signature struct {
	vendor   string
	statuses []int
	servers  []string // substrings of the Server header
	headers  []string // presence of any of these headers
	bodies   []string // substrings of the body
}

var challengeSignatures = []signature{
	{
		vendor:   "Cloudflare",
		statuses: []int{http.StatusForbidden, http.StatusServiceUnavailable},
		servers:  []string{"cloudflare"},
		bodies:   []string{"cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare"},
	},
	{
		vendor:   "Akamai",
		statuses: []int{http.StatusForbidden},
		servers:  []string{"akamai"},
	},
	{
		vendor:   "DataDome",
		statuses: []int{http.StatusForbidden},
		servers:  []string{"datadome"},
		headers:  []string{"X-DataDome", "X-DataDome-Response"},
		bodies:   []string{"geo.captcha-delivery.com", "datadome"},
	},
	{
		vendor:   "PerimeterX",
		statuses: []int{http.StatusForbidden},
		headers:  []string{"X-Px-Captcha"},
		bodies:   []string{"client.perimeterx.net", "px-captcha", "_pxBlock"},
	},
}

// DetectChallenge returns the vendor whose challenge page the response
// matches, or "" if none does.
func DetectChallenge(status int, header http.Header, body []byte) string {
	server := strings.ToLower(header.Get("Server"))

	for _, sig := range challengeSignatures {
		if !slices.Contains(sig.statuses, status) {
			continue
		}
		if sig.matches(server, header, body) {
			return sig.vendor
		}
	}

	// Akamai's generic block page carries no vendor header.
	if status == http.StatusForbidden && bytes.Contains(body, []byte("Reference #")) && bytes.Contains(body, []byte("Access Denied")) {
		return "Akamai"
	}
	return ""
}

func (s signature) matches(server string, header http.Header, body []byte) bool {
	for _, sv := range s.servers {
		if strings.Contains(server, sv) {
			return true
		}
	}
	for _, h := range s.headers {
		if header.Get(h) != "" {
			return true
		}
	}
	for _, b := range s.bodies {
		if bytes.Contains(body, []byte(b)) {
			return true
		}
	}
	return false
}
