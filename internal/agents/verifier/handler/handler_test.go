package handler

import (
	"context"
	"errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-askbot/pkg/memory/buffer"
	"go-askbot/pkg/models"
	"go-askbot/pkg/oracle/oracletest"
	"testing"
)

const marker = "specializes in reviewing answers"

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    models.VerificationResult
		wantErr bool
	}{
		{
			name: "bool",
			raw:  `{"is_adequate": true, "reason": "complete", "missing_info": "", "suggestions": ""}`,
			want: models.VerificationResult{IsAdequate: true, Reason: "complete"},
		},
		{
			name: "fenced string",
			raw:  "```json\n{\"is_adequate\": \"False\", \"reason\": \"no emails\", \"missing_info\": \"emails\", \"suggestions\": \"query emails\"}\n```",
			want: models.VerificationResult{Reason: "no emails", MissingInfo: "emails", Suggestions: "query emails"},
		},
		{
			name: "braces inside reason",
			raw:  `{"is_adequate": true, "reason": "lists every customer as {id, name} pairs", "missing_info": "", "suggestions": ""}`,
			want: models.VerificationResult{IsAdequate: true, Reason: "lists every customer as {id, name} pairs"},
		},
		{name: "missing verdict", raw: `{"reason": "hmm"}`, wantErr: true},
		{name: "not json", raw: "looks good to me", wantErr: true},
		{name: "junk verdict", raw: `{"is_adequate": "mostly"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdict(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseVerdict() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func results() []models.CapabilityResult {
	return []models.CapabilityResult{
		{Domain: models.Database, Question: "list users", Answer: "Alice, Bob"},
		{Domain: models.Search, Question: "company news", Answer: "Acme raised funding"},
	}
}

func TestVerify(t *testing.T) {
	o := oracletest.New().On(marker, `{"is_adequate": true, "reason": "all parts answered"}`)

	v := New(o).Verify(context.Background(), "users and news", buffer.New(), results(), nil)

	assert.True(t, v.IsAdequate)
	assert.Equal(t, "all parts answered", v.Reason)
	p := o.Prompts()[0]
	assert.Contains(t, p, "DATABASE answer (for \"list users\"):\nAlice, Bob")
	assert.Contains(t, p, "SEARCH answer")
}

func TestVerify_Unparseable(t *testing.T) {
	o := oracletest.New().On(marker, "It is fine I think")

	v := New(o).Verify(context.Background(), "q", buffer.New(), results(), nil)

	assert.False(t, v.IsAdequate)
	assert.Equal(t, "It is fine I think", v.Reason)
}

func TestVerify_OracleDown(t *testing.T) {
	o := oracletest.New().Fail(marker, errors.New("503"))

	v := New(o).Verify(context.Background(), "q", buffer.New(), results(), nil)

	assert.False(t, v.IsAdequate)
	assert.Contains(t, v.Reason, "verifier unavailable")
}

func TestVerify_PriorRounds(t *testing.T) {
	o := oracletest.New().On(marker, `{"is_adequate": false, "reason": "still missing"}`)
	rounds := []models.IterationRecord{{Round: 1, Verification: models.VerificationResult{Reason: "emails missing"}}}

	New(o).Verify(context.Background(), "q", buffer.New(), results(), rounds)

	assert.Contains(t, o.Prompts()[0], "round 1: adequate=false, emails missing")
}
