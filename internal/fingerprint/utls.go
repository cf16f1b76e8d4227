package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names a TLS ClientHello shape for page visits.
type Profile string

const (
	ProfileGo      Profile = "go" // standard crypto/tls
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileRandom  Profile = "random"
)

var helloIDs = map[Profile]utls.ClientHelloID{
	ProfileChrome:  utls.HelloChrome_Auto,
	ProfileFirefox: utls.HelloFirefox_Auto,
	ProfileSafari:  utls.HelloIOS_Auto,
	ProfileRandom:  utls.HelloRandomizedALPN,
}

// ParseProfile maps a config string to a Profile. Empty means ProfileGo.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p == "" || p == ProfileGo {
		return ProfileGo, nil
	}
	if _, ok := helloIDs[p]; !ok {
		return "", fmt.Errorf("fingerprint: unknown profile %q", s)
	}
	return p, nil
}

// Transport returns an *http.Transport for the profile. ProfileGo is a clone
// of http.DefaultTransport; the others perform the TLS handshake with uTLS.
// proxyFunc picks the proxy per request; nil means http.ProxyFromEnvironment.
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyFromEnvironment
	if proxyFunc != nil {
		transport.Proxy = proxyFunc
	}

	if p == ProfileGo || p == "" {
		return transport, nil
	}

	helloID, ok := helloIDs[p]
	if !ok {
		return nil, fmt.Errorf("fingerprint: unknown profile %q", p)
	}

	dial := transport.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn := utls.UClient(tcpConn, &utls.Config{ServerName: host}, helloID)
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("fingerprint: utls handshake with %s: %w", host, err)
		}
		return uConn, nil
	}

	return transport, nil
}
