package internal_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sanLimbu/esindex/internal"
)

func TestError(t *testing.T) {
	orig := errors.New("connection refused")

	err := internal.WrapErrorf(orig, internal.ErrorCodeNotFound, "get %s", "doc")
	assert.Equal(t, "get doc: connection refused", err.Error())
	assert.ErrorIs(t, err, orig)

	var ierr *internal.Error
	assert.True(t, errors.As(err, &ierr))
	assert.Equal(t, internal.ErrorCodeNotFound, ierr.Code())

	err = internal.NewErrorf(internal.ErrorCodeInvalidArgument, "Invalid query value.")
	assert.Equal(t, "Invalid query value.", err.Error())
}
