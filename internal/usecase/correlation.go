package usecase

import (
	"github.com/jaevor/go-nanoid"
)

var correlationIDGenerator = mustCorrelationIDGenerator()

func mustCorrelationIDGenerator() func() string {
	generator, err := nanoid.Standard(21)
	if err != nil {
		panic(err)
	}
	return generator
}

// NewCorrelationID tags one import run across every log line and journal
// entry it produces.
func NewCorrelationID() string {
	return correlationIDGenerator()
}
