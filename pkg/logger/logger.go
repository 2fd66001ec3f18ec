package logger

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	AgentNameField = "agent"
	ActorIDField   = "actor"
	RequestIDField = "request"
	UserIDField    = "user"
	TierField      = "tier"
	KindField      = "kind"
	ToolField      = "tool"
	ApproachField  = "approach"
	StateField     = "state"
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

// Agent returns a sub-logger tagged with the component name.
func Agent(name string) zerolog.Logger {
	return log.With().Str(AgentNameField, name).Logger()
}
