package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trackhouse/service/internal/apperr"
)

func TestAuthorize(t *testing.T) {
	assert.NoError(t, Authorize("u1", "u1"))

	err := Authorize("u2", "u1")
	assert.Error(t, err)
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))

	// an empty principal never matches, not even an empty owner
	assert.Error(t, Authorize("", ""))
}
