package wire_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/linerpc/linerpc/internal/wire"
)

func TestClassifyRoundTrips(t *testing.T) {
	err := wire.Classify(errors.New("bad params"), wire.CategoryRPC, wire.CodeInvalidParams)

	assert.Equal(t, wire.CategoryRPC, wire.GetCategory(err))
	assert.Equal(t, wire.CodeInvalidParams, wire.GetCode(err))
}

func TestGetCodeDefaultsToInternalError(t *testing.T) {
	assert.Equal(t, wire.CodeInternalError, wire.GetCode(errors.New("boom")))
	assert.Equal(t, wire.CategoryInternal, wire.GetCategory(errors.New("boom")))
}

func TestToErrorUsesDefaultMessageForCode(t *testing.T) {
	err := wire.Classify(errors.New("x"), wire.CategoryRPC, wire.CodeParseError)
	wireErr := wire.ToError(err)
	assert.Equal(t, wire.CodeParseError, wireErr.Code)
	assert.Equal(t, "Parse error", wireErr.Message)
}
