package buffer

import (
	"go-askbot/pkg/models"
	"strings"
)

// History is an append-only conversation log passed by value. Append copies
// the turns, so a History held by a caller never changes underneath it.
type History struct {
	turns []models.Turn
}

func New(turns ...models.Turn) History {
	return History{turns: append([]models.Turn(nil), turns...)}
}

func (h History) Append(turns ...models.Turn) History {
	next := make([]models.Turn, 0, len(h.turns)+len(turns))
	next = append(next, h.turns...)
	next = append(next, turns...)
	return History{turns: next}
}

// AppendExchange records one completed user/assistant exchange.
func (h History) AppendExchange(question, answer string) History {
	return h.Append(
		models.Turn{Role: models.User, Content: question},
		models.Turn{Role: models.Assistant, Content: answer},
	)
}

func (h History) Len() int {
	return len(h.turns)
}

func (h History) Turns() []models.Turn {
	return append([]models.Turn(nil), h.turns...)
}

// Last returns at most the n most recent turns.
func (h History) Last(n int) []models.Turn {
	if n <= 0 {
		return nil
	}
	if n > len(h.turns) {
		n = len(h.turns)
	}
	return append([]models.Turn(nil), h.turns[len(h.turns)-n:]...)
}

// Digest renders the last n turns as "User: ..." / "Assistant: ..." lines.
func (h History) Digest(n int) string {
	var b strings.Builder
	for _, t := range h.Last(n) {
		switch t.Role {
		case models.User:
			b.WriteString("User: ")
		case models.Assistant:
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	return b.String()
}
