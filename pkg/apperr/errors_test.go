package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aibtc/wallet-core/pkg/apperr"
)

func TestError_IsMatchesByKind(t *testing.T) {
	t.Parallel()

	err := apperr.Wrap(apperr.KindNotFound, "wallet xyz not found", fmt.Errorf("boom"))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.False(t, errors.Is(err, apperr.ErrWrongPassword))
}

func TestError_WithDetailsAndSuggestion(t *testing.T) {
	t.Parallel()

	err := apperr.New(apperr.KindInvalidInput, "bad amount").
		WithDetails("amount", "-1").
		WithSuggestion("amount must be positive")

	assert.Contains(t, err.Error(), "amount: -1")
	assert.Equal(t, "amount must be positive", err.Suggestion)
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, apperr.ExitNotFound, apperr.ExitCode(apperr.ErrNotFound))
	assert.Equal(t, apperr.ExitGeneral, apperr.ExitCode(errors.New("plain")))
}
