package errutil

import (
	"context"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")
	assert.NoError(t, Join(nil, nil))
	assert.Equal(t, err1, Join(err1, nil))
	assert.Equal(t, err2, Join(nil, err2))

	joined := Join(err1, err2)
	merr, ok := joined.(*multierror.Error)
	require.True(t, ok)
	assert.Equal(t, []error{err1, err2}, merr.Errors)
}

func TestIsCtxError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := errors.Wrap(context.Canceled, "read reply")
	assert.False(t, IsCtxError(ctx, err), "ctx is not done yet")
	cancel()
	assert.True(t, IsCtxError(ctx, err))
	assert.False(t, IsCtxError(ctx, errors.New("other")))
	assert.False(t, IsCtxError(ctx, nil))
}
