package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querylab/internal/testutil"
)

func TestCreate_CreatesNewDatabase(t *testing.T) {
	_, path := createTestStore(t)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestCreate_RefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lesson.db")
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0o644))

	_, err := Create(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExists))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data), "existing file must be untouched")
}

func TestCreate_Pragmas(t *testing.T) {
	s, _ := createTestStore(t)

	tests := []struct {
		pragma   string
		expected string
	}{
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
	}
	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			if err := s.verifyPragma(tt.pragma, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
	assert.False(t, s.ReadOnly())
}

func TestOpen_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	_, err := Open(path)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "Open must not create the file")
}

func TestOpen_IsReadOnly(t *testing.T) {
	s := materialize(t, testutil.SchoolSchema())

	assert.True(t, s.ReadOnly())
	if err := s.verifyPragma("query_only", "1"); err != nil {
		t.Error(err)
	}

	_, err := s.DB().Exec(`DELETE FROM "orders"`)
	assert.Error(t, err, "writes must be rejected")

	err = s.WriteSchema(context.Background(), testutil.SchoolSchema())
	assert.ErrorIs(t, err, ErrReadOnly)

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM "orders"`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestQuery(t *testing.T) {
	s := materialize(t, testutil.SchoolSchema())

	rows, err := s.Query(context.Background(), `SELECT "name" FROM "students" WHERE "age" > ? ORDER BY rowid`, 20)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"Ana", "Cleo"}, names)
}

func TestClose_Nil(t *testing.T) {
	var s Store
	assert.NoError(t, s.Close())
}
