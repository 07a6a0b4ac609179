package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"filevault/internal/activity"
)

func TestRecorderPostgres_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	rec := NewRecorderPostgres(db)
	ctx := context.Background()

	t.Run("inserted", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO activities").
			WithArgs(sqlmock.AnyArg(), "u1", "f1", activity.ActionVersionCreate, "seq 3", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := rec.Record(ctx, "u1", "f1", activity.ActionVersionCreate, "seq 3")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure surfaces", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO activities").
			WillReturnError(errors.New("connection reset"))

		err := rec.Record(ctx, "u1", "f1", activity.ActionUpload, "")

		assert.Error(t, err)
	})
}
