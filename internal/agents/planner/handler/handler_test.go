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

const marker = "specializes in planning"

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    models.Plan
		wantErr bool
	}{
		{
			name: "bare",
			raw:  `{"database": "SELECT users", "search": ""}`,
			want: models.Plan{Database: "SELECT users"},
		},
		{
			name: "fenced with prose",
			raw:  "Here you go:\n```json\n{\"database\": \"\", \"search\": \" latest AI news \"}\n```",
			want: models.Plan{Search: "latest AI news"},
		},
		{
			name: "non string values ignored",
			raw:  `{"database": null, "search": "go"}`,
			want: models.Plan{Search: "go"},
		},
		{
			name: "braces inside a sub-question",
			raw:  `{"database": "customers where prefs = {\"vip\": true}", "search": ""}`,
			want: models.Plan{Database: `customers where prefs = {"vip": true}`},
		},
		{name: "no json", raw: "database please", wantErr: true},
		{name: "unrelated keys", raw: `{"tasks": "x"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePlan(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParsePlan() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	p := models.Plan{Database: "users", Search: "news"}
	assert.Equal(t, models.Plan{Database: "users"}, Clamp(p, "q", models.CategoryDatabase))
	assert.Equal(t, models.Plan{Search: "news"}, Clamp(p, "q", models.CategorySearch))
	assert.Equal(t, p, Clamp(p, "q", models.CategoryBoth))

	// the only populated domain is not routed
	assert.Equal(t, models.Plan{Search: "q", Fallback: true}, Clamp(models.Plan{Database: "users"}, "q", models.CategorySearch))
	assert.Equal(t, models.Plan{Database: "q", Search: "q", Fallback: true}, Clamp(models.Plan{}, "q", models.CategoryBoth))
}

func TestFallback(t *testing.T) {
	assert.Equal(t, models.Plan{Database: "q", Fallback: true}, Fallback("q", models.CategoryDatabase))
	assert.True(t, Fallback("q", models.CategoryNone).Empty())
}

func TestPlan(t *testing.T) {
	o := oracletest.New().On(marker, `{"database": "list users", "search": "company news"}`)
	h := New(o)

	got := h.Plan(context.Background(), "Show users and news", buffer.New(), models.CategoryBoth, nil)

	assert.Equal(t, models.Plan{Database: "list users", Search: "company news"}, got)
	assert.NotContains(t, o.Prompts()[0], "did NOT answer")
}

func TestPlan_Failures(t *testing.T) {
	ctx := context.Background()

	o := oracletest.New().Fail(marker, errors.New("down"))
	assert.Equal(t, Fallback("q", models.CategorySearch), New(o).Plan(ctx, "q", buffer.New(), models.CategorySearch, nil))

	o = oracletest.New().On(marker, "I cannot split this")
	assert.Equal(t, Fallback("q", models.CategoryDatabase), New(o).Plan(ctx, "q", buffer.New(), models.CategoryDatabase, nil))
}

func TestPlan_Replan(t *testing.T) {
	o := oracletest.New().On(marker, `{"database": "list users with emails", "search": ""}`)
	rounds := []models.IterationRecord{{
		Round: 1,
		Plan:  models.Plan{Database: "list users"},
		Verification: models.VerificationResult{
			IsAdequate:  false,
			Reason:      "emails missing",
			MissingInfo: "email column",
			Suggestions: "select the email column",
		},
	}}

	got := New(o).Plan(context.Background(), "users and emails", buffer.New(), models.CategoryDatabase, rounds)

	assert.Equal(t, "list users with emails", got.Database)
	p := o.Prompts()[0]
	assert.Contains(t, p, "Round 1:")
	assert.Contains(t, p, "database: list users")
	assert.Contains(t, p, "did NOT answer")
	assert.Contains(t, p, "email column")
	assert.Contains(t, p, "select the email column")
}
