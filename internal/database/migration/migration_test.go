package migration

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"kawach/internal/logging"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureMigrated(t *testing.T) {
	ctx := context.Background()

	t.Run("skips when schema exists", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		var buf bytes.Buffer
		mock.ExpectQuery("SELECT to_regclass").
			WithArgs("public.access_grants").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err = EnsureMigrated(ctx, db, logging.New(&buf, time.UTC), "db")

		assert.NoError(t, err)
		assert.Contains(t, buf.String(), "db_migration_skip")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("applies every step", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT to_regclass").
			WithArgs("public.access_grants").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS documents").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_documents_owner_created").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS access_grants").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_access_grants_status").WillReturnResult(sqlmock.NewResult(0, 0))

		err = EnsureMigrated(ctx, db, logging.Discard(), "db")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("step failure stops migration", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		var buf bytes.Buffer
		mock.ExpectQuery("SELECT to_regclass").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS documents").WillReturnError(errors.New("permission denied"))

		err = EnsureMigrated(ctx, db, logging.New(&buf, time.UTC), "db")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "create_table_documents")
		assert.Contains(t, buf.String(), `"level":"error"`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sentinel query failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT to_regclass").WillReturnError(errors.New("timeout"))

		err = EnsureMigrated(ctx, db, logging.Discard(), "db")

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
