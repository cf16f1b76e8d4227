// Package query builds the search-engine queries used to surface sites that
// accept guest contributions.
package query

import (
	"fmt"
	"strings"
)

// Phrases are the quoted footprints combined with the niche, in emission order.
var Phrases = []string{
	"write for us",
	"guest post",
	"contribute",
	"submit an article",
	"editorial guidelines",
}

// Build returns one query per phrase for the trimmed niche.
func Build(niche string) []string {
	niche = strings.TrimSpace(niche)
	queries := make([]string, 0, len(Phrases))
	for _, p := range Phrases {
		queries = append(queries, fmt.Sprintf("%q %s", p, niche))
	}
	return queries
}
