package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPassesThrough(t *testing.T) {
	orig := NotFoundf("project %s not found", "p1")
	got := From(fmt.Errorf("load project: %w", orig))

	assert.Same(t, orig, got)
	assert.Equal(t, KindNotFound, got.Kind)
	assert.Equal(t, "project p1 not found", got.ClientMessage)
}

func TestFromWrapsUnknown(t *testing.T) {
	cause := errors.New("connection refused")
	got := From(cause)

	assert.Equal(t, KindUnknown, got.Kind)
	assert.Equal(t, "something went wrong", got.ClientMessage)
	assert.ErrorIs(t, got, cause)
	assert.Equal(t, "connection refused", got.Details)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(Conflictf("duplicate")))
	assert.Equal(t, KindAuth, KindOf(Authf("not yours")))
	assert.Equal(t, KindValidation, KindOf(Validationf("bad input")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.True(t, IsKind(NotFoundf("missing"), KindNotFound))
}

func TestWithCauseKeepsExplicitDetails(t *testing.T) {
	e := &Error{Kind: KindConflict, ClientMessage: "duplicate", Details: "2 rows"}
	e.WithCause(errors.New("unique_violation"))

	assert.Equal(t, "2 rows", e.Details)
	assert.Contains(t, e.Error(), "unique_violation")
}
