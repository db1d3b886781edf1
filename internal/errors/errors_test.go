package errors_test

import (
	"errors"
	"fmt"
	"testing"

	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnreachableSourceError(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		err := harvesterrors.NewStatusError("http://producer/a", 503)
		assert.Equal(t, "source http://producer/a unreachable: unexpected status 503", err.Error())
		assert.True(t, harvesterrors.IsUnreachable(err))
		assert.False(t, harvesterrors.IsMalformed(err))
	})

	t.Run("wrapped transport error", func(t *testing.T) {
		base := errors.New("connection refused")
		err := harvesterrors.NewUnreachableSourceError("http://producer/a", base)
		assert.Contains(t, err.Error(), "connection refused")
		assert.ErrorIs(t, err, base)
		assert.True(t, harvesterrors.IsUnreachable(fmt.Errorf("fetch: %w", err)))
	})
}

func TestMalformedDataError(t *testing.T) {
	t.Run("document", func(t *testing.T) {
		err := harvesterrors.NewMalformedDocument("expected a JSON array")
		assert.Equal(t, "malformed data: document: expected a JSON array", err.Error())
		assert.True(t, harvesterrors.IsMalformed(err))
	})

	t.Run("field with location", func(t *testing.T) {
		var err error = harvesterrors.NewMalformedField(2, "status.timestamp", "missing", nil)
		err = harvesterrors.WithLocation(fmt.Errorf("parse: %w", err), "http://producer/b")

		var m *harvesterrors.MalformedDataError
		require.True(t, errors.As(err, &m))
		assert.Equal(t, "http://producer/b", m.Location)
		assert.Equal(t,
			`malformed data from http://producer/b: element 2 field "status.timestamp": missing`,
			m.Error())
	})

	t.Run("location is not overwritten", func(t *testing.T) {
		err := &harvesterrors.MalformedDataError{Location: "first", Index: -1, Message: "bad"}
		_ = harvesterrors.WithLocation(err, "second")
		assert.Equal(t, "first", err.Location)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		base := errors.New("boom")
		assert.Same(t, base, harvesterrors.WithLocation(base, "x"))
	})
}

func TestCycleAbortedError(t *testing.T) {
	cause := harvesterrors.NewStatusError("http://approvals", 500)
	err := harvesterrors.Abort("approvals", cause)

	assert.True(t, harvesterrors.IsCycleAborted(err))
	assert.True(t, harvesterrors.IsUnreachable(err))
	assert.Contains(t, err.Error(), "cycle aborted at approvals")
	assert.NoError(t, harvesterrors.Abort("save", nil))
}

func TestConfigAndIOErrors(t *testing.T) {
	cfgErr := harvesterrors.NewConfigError("storage", "unknown backend \"tape\"", nil)
	assert.Equal(t, `configuration error in storage: unknown backend "tape"`, cfgErr.Error())
	assert.ErrorIs(t, cfgErr, harvesterrors.ErrInvalidInput)

	assert.NoError(t, harvesterrors.WrapIO("write", "/tmp/x", nil))
	ioErr := harvesterrors.WrapIO("write", "/tmp/x", errors.New("disk full"))
	assert.Equal(t, "write /tmp/x: disk full", ioErr.Error())
}
