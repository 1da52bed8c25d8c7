// Package source gathers the article corpus a generation run extracts from.
package source

import (
	"fmt"
	"strings"
)

// BenchmarkSeeds are the reference articles every run starts from. Their
// similarity neighbourhood is dense with Canadian liquidity events.
var BenchmarkSeeds = []string{
	"https://betakit.com/rockwell-automation-completes-acquisition-of-clearpath-robotics-and-its-otto-motors-division/",
	"https://www.thestar.com/news/gta/transformative-toronto-philanthropist-makes-35-million-donation-to-sickkids-cheo-for-mental-health-care/article_1be8fa68-cdac-471c-aa96-ad70e702a9d4.html",
	"https://betakit.com/hootsuite-sold-to-us-based-infor-after-years-of-acquisition-speculation/",
	"https://betakit.com/shopify-reaches-agreement-to-acquire-checkout-startup-bench/",
	"https://betakit.com/wealthsimple-raises-100-million-round-as-canadian-fintech-continues-growth/",
}

// Document is one search result with its (possibly truncated) text.
type Document struct {
	// Index is the 1-based article number shown to the model.
	Index int
	URL   string
	Title string
	Text  string
	Seed  string
}

// Block renders the document in the delimited form embedded in prompts.
func (d Document) Block() string {
	return fmt.Sprintf("[ARTICLE %d]\nURL: %s\nTITLE: %s\nCONTENT:\n%s\n[END ARTICLE]", d.Index, d.URL, d.Title, d.Text)
}

// Corpus is the fixed input for every extraction attempt of a run.
type Corpus struct {
	Documents []Document
	Text      string
	ValidURLs map[string]struct{}
}

// Contains reports whether url was returned by the search provider, by
// exact string match.
func (c *Corpus) Contains(url string) bool {
	_, ok := c.ValidURLs[url]
	return ok
}

// URLs returns the corpus URLs in document order.
func (c *Corpus) URLs() []string {
	out := make([]string, 0, len(c.Documents))
	for _, d := range c.Documents {
		out = append(out, d.URL)
	}
	return out
}

// NewCorpus assembles the concatenated text and URL set from docs.
func NewCorpus(docs []Document) *Corpus {
	blocks := make([]string, 0, len(docs))
	valid := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		blocks = append(blocks, d.Block())
		valid[d.URL] = struct{}{}
	}
	return &Corpus{
		Documents: docs,
		Text:      strings.Join(blocks, "\n\n"),
		ValidURLs: valid,
	}
}

// Seeds returns the benchmark seeds followed by extra, skipping blanks and
// exact duplicates.
func Seeds(extra []string) []string {
	seen := make(map[string]struct{}, len(BenchmarkSeeds)+len(extra))
	out := make([]string, 0, len(BenchmarkSeeds)+len(extra))
	for _, s := range append(append([]string{}, BenchmarkSeeds...), extra...) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
