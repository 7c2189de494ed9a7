package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindDuplicate, KindOf(Duplicate("0xabc")))
	assert.Equal(t, KindTransport, KindOf(Transport(errors.New("refused"), "ledger unreachable")))
	assert.Equal(t, KindIntegrity, KindOf(Integrity(errors.New("bad json"), "blob corrupt")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("outer context: %w", Duplicate("0xabc"))
	assert.Equal(t, KindDuplicate, KindOf(err))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transport(cause, "ledger unreachable")
	assert.ErrorIs(t, err, cause)
}

func TestValidationList(t *testing.T) {
	err := ValidationList([]string{"description too short", "data hash is required"})
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "description too short; data hash is required")
}

func TestUserMessageTemplates(t *testing.T) {
	assert.Equal(t, "Submission rejected: bad input", UserMessage(Validation("bad input")))
	assert.Equal(t, "Already submitted: identity 0xabc already has a confirmed record", UserMessage(Duplicate("0xabc")))
	assert.Equal(t, "Service unavailable, please retry: ledger unreachable", UserMessage(Transport(errors.New("refused"), "ledger unreachable")))
	assert.Equal(t, "Stored registry data could not be read and was reset", UserMessage(Integrity(errors.New("bad json"), "blob corrupt")))
}

func TestUserMessageFallbackNeverLeaksDetail(t *testing.T) {
	internal := errors.New("pgxpool: connection to 10.0.0.5 failed")
	msg := UserMessage(internal)
	assert.Equal(t, "An unexpected error occurred, please try again", msg)
	assert.NotContains(t, msg, "10.0.0.5")

	assert.Equal(t, msg, UserMessage(nil))
}
