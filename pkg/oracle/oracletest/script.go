// Package oracletest provides a scripted oracle for tests. Replies are chosen
// by the first registered marker contained in the prompt, so concurrent
// callers get deterministic answers regardless of call order.
package oracletest

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrUnscripted = errors.New("oracletest: no reply scripted for prompt")

type rule struct {
	marker  string
	replies []string
	err     error
	calls   int
}

type Script struct {
	mu      sync.Mutex
	rules   []*rule
	prompts []string
}

func New() *Script {
	return &Script{}
}

// On answers prompts containing marker with replies in order; the last reply
// repeats once the list is exhausted.
func (s *Script) On(marker string, replies ...string) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &rule{marker: marker, replies: replies})
	return s
}

// Fail answers prompts containing marker with err.
func (s *Script) Fail(marker string, err error) *Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &rule{marker: marker, err: err})
	return s
}

func (s *Script) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	for _, r := range s.rules {
		if !strings.Contains(prompt, r.marker) {
			continue
		}
		r.calls++
		if r.err != nil {
			return "", r.err
		}
		if len(r.replies) == 0 {
			return "", nil
		}
		i := r.calls - 1
		if i >= len(r.replies) {
			i = len(r.replies) - 1
		}
		return r.replies[i], nil
	}
	return "", ErrUnscripted
}

// Calls returns how many prompts matched marker.
func (s *Script) Calls(marker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.prompts {
		if strings.Contains(p, marker) {
			n++
		}
	}
	return n
}

// Prompts returns every prompt received, in order.
func (s *Script) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}
