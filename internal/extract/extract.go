// Package extract pulls contact data out of raw page text and URLs.
package extract

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// emailPattern matches local-part@host.tld where the final label is 2+ letters.
var emailPattern = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)

// Emails returns every distinct email address found in text, sorted
// lexicographically. Matches are case-preserved, so addresses differing only
// in case are kept as separate entries.
func Emails(text string) []string {
	matches := emailPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Domain returns the registrable domain of rawURL: the last two dot-separated
// labels of its lowercased host. Hosts with a single label are returned whole.
// An unparseable URL or one without a host yields "".
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.ToLower(u.Host)
	labels := strings.Split(host, ".")
	if len(labels) >= 2 {
		return strings.Join(labels[len(labels)-2:], ".")
	}
	return host
}
