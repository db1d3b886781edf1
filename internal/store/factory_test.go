package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/ppiankov/harvester/internal/model"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := New(ctx, model.StorageConfig{Backend: model.BackendFile, File: model.FileStorage{Path: filepath.Join(dir, "x.json")}}, decoder())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = New(ctx, model.StorageConfig{Backend: model.BackendSQLite, SQL: model.SQLStorage{DSN: filepath.Join(dir, "x.db")}}, decoder())
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	assert.NoError(t, s.Close())

	_, err = New(ctx, model.StorageConfig{Backend: "tape"}, decoder())
	assert.ErrorIs(t, err, harvesterrors.ErrInvalidInput)
}
