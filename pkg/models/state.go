package models

type State string

// Capability agent phases.
const (
	Planning   State = "planning"
	Executing  State = "executing"
	Evaluating State = "evaluating"
	Complete   State = "complete" // terminal
)
