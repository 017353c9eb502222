package sql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridbase/gridbase/dialect"
)

func TestStatsDriverCountsQueriesAndExecs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("INSERT INTO records").WillReturnResult(sqlmock.NewResult(0, 1))

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db))

	var rows Rows
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, &rows))
	require.NoError(t, rows.Close())
	require.NoError(t, drv.Exec(context.Background(), "INSERT INTO records DEFAULT VALUES", []any{}, nil))

	snap := drv.QueryStats().Stats()
	assert.EqualValues(t, 1, snap.TotalQueries)
	assert.EqualValues(t, 1, snap.TotalExecs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsDriverSlowQueryHook(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT 1").
		WillDelayFor(5 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	var slow int
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowThreshold(time.Nanosecond),
		WithSlowQueryHook(func(context.Context, string, []any, time.Duration) { slow++ }),
	)

	var rows Rows
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, &rows))
	require.NoError(t, rows.Close())

	assert.Equal(t, 1, slow)
	assert.EqualValues(t, 1, drv.QueryStats().Stats().SlowQueries)
}

func TestStatsDriverCountsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT boom").WillReturnError(assert.AnError)

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db))
	var rows Rows
	require.Error(t, drv.Query(context.Background(), "SELECT boom", []any{}, &rows))
	assert.EqualValues(t, 1, drv.QueryStats().Stats().Errors)
}

func TestStatsReset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db))
	var rows Rows
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, &rows))
	require.NoError(t, rows.Close())

	drv.QueryStats().Reset()
	assert.EqualValues(t, 0, drv.QueryStats().Stats().TotalQueries)
}
