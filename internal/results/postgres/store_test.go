package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/profile-image-resolver/internal/results"
)

func TestRecordInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "avatars")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	res := results.Result{
		RunID:      "0190b6b2-7c1e-7000-8000-000000000000",
		Account:    "jack",
		ImageURL:   "https://pbs.twimg.com/profile_images/1/a_400x400.jpg",
		Strategy:   "structured_data",
		Resolved:   true,
		ResolvedAt: now,
	}
	url, strategy := res.ImageURL, res.Strategy

	mock.ExpectExec("INSERT INTO avatars").
		WithArgs(res.RunID, res.Account, &url, &strategy, true, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Record(context.Background(), res))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordUnresolvedUsesNulls(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec("INSERT INTO profile_image_results").
		WithArgs("run", "ghost", (*string)(nil), (*string)(nil), false, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Record(context.Background(), results.Result{RunID: "run", Account: "ghost", ResolvedAt: now}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordPropagatesError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "avatars")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO avatars").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("relation does not exist"))

	err = store.Record(context.Background(), results.Result{RunID: "run", Account: "jack"})
	require.ErrorContains(t, err, "insert result")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRequiresRunID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "avatars")
	require.NoError(t, err)
	require.Error(t, store.Record(context.Background(), results.Result{Account: "jack"}))

	var nilStore *Store
	require.Error(t, nilStore.Record(context.Background(), results.Result{RunID: "run"}))
	nilStore.Close()
}

func TestTableNameValidation(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, "avatars")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	for _, bad := range []string{"avatars; DROP TABLE x", "1avatars", "public.avatars"} {
		_, err := NewWithPool(mock, bad)
		assert.Error(t, err, bad)
	}
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)

	_, err = New(context.Background(), Config{DSN: "postgres://localhost/db", Table: "bad name"})
	require.Error(t, err)
}
