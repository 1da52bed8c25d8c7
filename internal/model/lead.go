// Package model defines the domain types shared by the lead generation pipeline.
package model

import (
	"strings"
	"time"
)

// Signal categories the extraction prompt steers toward. The set is open: the
// model may return other values and they are kept as-is.
const (
	SignalLiquidityEvent = "Liquidity Event"
	SignalRapidScaling   = "Rapid Scaling"
	SignalMajorDonation  = "Major Donation"
	SignalExit           = "Exit"
	SignalIPO            = "IPO/SPAC"
)

// Candidate is a lead proposed by the model, before verification.
type Candidate struct {
	Name        string `json:"name"`
	Company     string `json:"company"`
	City        string `json:"city"`
	SignalType  string `json:"signalType"`
	SourceLink  string `json:"sourceLink"`
	Explanation string `json:"explanation"`
	LinkedInURL string `json:"linkedinUrl"`
}

// Lead is a Candidate that passed verification: its source link was returned by
// the search provider and no other lead in the same run shares its name or source.
type Lead Candidate

// NameKey is the case-insensitive identity used for in-run deduplication.
func (c Candidate) NameKey() string { return strings.ToLower(c.Name) }

// SourceKey is the case-insensitive source identity used for in-run deduplication.
func (c Candidate) SourceKey() string { return strings.ToLower(c.SourceLink) }

// List is a named batch of leads produced by one generation run.
type List struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// PersistedLead is the durable form of a Lead. Rows are unique on
// case-insensitive (name, company); the first writer wins.
type PersistedLead struct {
	ID        string    `json:"id"`
	Lead      Lead      `json:"lead"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultListName returns the timestamped name given to a run's list.
func DefaultListName(now time.Time) string {
	return "Generate Run - " + now.Format("2006-01-02 15:04:05")
}
