package repository_test

import (
	"errors"
	"log/slog"
	"regexp"
	"testing"

	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upsertQuery = `INSERT INTO link_results (link, place, latitude, longitude, ok, error, processed_at)`

func TestEnsureSchema(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - create table", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS link_results")).
			WillReturnError(assert.AnError)

		err = repo.EnsureSchema(ctx)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to create link_results table")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - create table", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS link_results")).
			WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

		require.NoError(t, repo.EnsureSchema(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSaveResult(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - upsert result", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)
		result := models.Result{Link: "a", Place: "P", Coordinates: &models.Coordinates{Latitude: 1, Longitude: 2}}

		mock.ExpectExec(regexp.QuoteMeta(upsertQuery)).
			WithArgs("a", "P", pgxmock.AnyArg(), pgxmock.AnyArg(), true, pgxmock.AnyArg()).
			WillReturnError(assert.AnError)

		err = repo.SaveResult(ctx, result)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to save link result")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - resolved link", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)
		lat, lon := -23.58, -46.65
		result := models.Result{
			Link:        "https://maps.app.goo.gl/a",
			Place:       "Parque",
			Coordinates: &models.Coordinates{Latitude: lat, Longitude: lon},
		}

		mock.ExpectExec(regexp.QuoteMeta(upsertQuery)).
			WithArgs(result.Link, "Parque", &lat, &lon, true, (*string)(nil)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.SaveResult(ctx, result))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - failed link", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)
		msg := "no coordinates"
		result := models.Result{Link: "bad", Place: models.PlaceUnavailable, Err: errors.New(msg)}

		mock.ExpectExec(regexp.QuoteMeta(upsertQuery)).
			WithArgs("bad", models.PlaceUnavailable, (*float64)(nil), (*float64)(nil), false, &msg).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.SaveResult(ctx, result))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCountResults(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - count", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM link_results;")).WillReturnError(assert.AnError)

		count, err := repo.CountResults(ctx)

		require.ErrorIs(t, err, assert.AnError)
		assert.Zero(t, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - count", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM link_results;")).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

		count, err := repo.CountResults(ctx)

		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Interface(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	assert.Implements(t, (*repository.Interface)(nil), repository.NewRepository(mock, slog.Default()))
}
