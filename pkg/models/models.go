package models

import "strings"

type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
)

type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Domain is a capability area a question can be routed to.
type Domain string

const (
	Database Domain = "database"
	Search   Domain = "search"
)

// Domains lists every capability domain in dispatch order.
var Domains = []Domain{Database, Search}

// Category is the relevance classifier verdict.
type Category string

const (
	CategoryDatabase Category = "database"
	CategorySearch   Category = "search"
	CategoryBoth     Category = "both"
	CategoryNone     Category = "none"
)

// Needs reports whether the category routes the question to domain d.
func (c Category) Needs(d Domain) bool {
	switch c {
	case CategoryBoth:
		return true
	case CategoryDatabase:
		return d == Database
	case CategorySearch:
		return d == Search
	default:
		return false
	}
}

type ToolDescriptor struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Inputs      []string `json:"inputs"`
	Outputs     []string `json:"outputs"`
}

type ExecutionRecord struct {
	Tool      string `json:"tool"`
	Result    string `json:"result"`
	Iteration int    `json:"iteration"`
	IsError   bool   `json:"error,omitempty"`
}

type VerificationResult struct {
	IsAdequate  bool   `json:"is_adequate"`
	Reason      string `json:"reason"`
	MissingInfo string `json:"missing_info"`
	Suggestions string `json:"suggestions"`
}

// Plan holds one sub-question per domain, empty when the domain is not needed.
type Plan struct {
	Database string `json:"database"`
	Search   string `json:"search"`
	Fallback bool   `json:"fallback,omitempty"`
}

func (p Plan) For(d Domain) string {
	switch d {
	case Database:
		return strings.TrimSpace(p.Database)
	case Search:
		return strings.TrimSpace(p.Search)
	}
	return ""
}

func (p *Plan) Set(d Domain, question string) {
	switch d {
	case Database:
		p.Database = question
	case Search:
		p.Search = question
	}
}

// Empty reports whether no domain has a sub-question.
func (p Plan) Empty() bool {
	for _, d := range Domains {
		if p.For(d) != "" {
			return false
		}
	}
	return true
}

type CapabilityResult struct {
	Domain     Domain            `json:"domain"`
	Question   string            `json:"question"`
	Answer     string            `json:"answer"`
	History    []ExecutionRecord `json:"history"`
	Iterations int               `json:"iterations"`
	ForcedBy   string            `json:"forced_by,omitempty"`
	Err        string            `json:"error,omitempty"`
}

type IterationRecord struct {
	Round        int                `json:"round"`
	Plan         Plan               `json:"plan"`
	Results      []CapabilityResult `json:"results"`
	Verification VerificationResult `json:"verification"`
}
