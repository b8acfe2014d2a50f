package logger

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"os"
)

const (
	AgentNameField = "agent"
	DomainField    = "domain"
	RequestIDField = "request"
	SessionIDField = "session"
	RoundField     = "round"
	IterationField = "iteration"
	ToolField      = "tool"
	ActorIDField   = "actor"
)

func NewGlobal(level string, pretty bool) error {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(l)

	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return nil
}

// For returns a sub-logger of the global logger tagged with the agent name.
func For(agent string) zerolog.Logger {
	return log.With().Str(AgentNameField, agent).Logger()
}
