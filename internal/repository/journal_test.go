package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/store"
)

func newMock(t *testing.T) (*Journal, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewJournal(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestJournalInsertMovie(t *testing.T) {
	j, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO movies (id, title, director, price) VALUES (?,?,?,?)")).
		WithArgs(3, "Dune", "Villeneuve", 10000).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE id_sequences SET next_id=? WHERE name=?")).
		WithArgs(4, "movie").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := j.InsertMovie(context.Background(), model.Movie{ID: 3, Title: "Dune", Director: "Villeneuve", Price: 10000})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalDeleteUserCascades(t *testing.T) {
	j, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM ratings WHERE user_id=?")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("DELETE FROM reservations WHERE user_id=?")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q("DELETE FROM customers WHERE id=?")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, j.DeleteUser(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalDeleteMissingRowRollsBack(t *testing.T) {
	j, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM ratings WHERE movie_id=?")).WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("DELETE FROM reservations WHERE movie_id=?")).WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("DELETE FROM movies WHERE id=?")).WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := j.DeleteMovie(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNoRowsAffected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalFailureAbortsStoreMutation(t *testing.T) {
	j, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO customers")).WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	s := store.New(store.WithJournal(j))
	_, err := s.InsertUser(context.Background(), "Ann", 30, model.TierVIP)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0, s.Counts().Users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalBookAndRate(t *testing.T) {
	j, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO reservations (movie_id, user_id, reservation_price) VALUES (?,?,?)")).
		WithArgs(1, 2, 7500.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO ratings (movie_id, user_id, rating) VALUES (?,?,?)")).
		WithArgs(1, 2, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := context.Background()
	require.NoError(t, j.InsertReservation(ctx, model.Reservation{MovieID: 1, UserID: 2, Price: 7500}))
	require.NoError(t, j.InsertRating(ctx, model.Rating{MovieID: 1, UserID: 2, Value: 5}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalReset(t *testing.T) {
	j, mock := newMock(t)
	mock.ExpectBegin()
	for _, stmt := range []string{"DELETE FROM ratings", "DELETE FROM reservations", "DELETE FROM movies", "DELETE FROM customers", "UPDATE id_sequences SET next_id=1"} {
		mock.ExpectExec(q(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, j.Reset(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalLoadRestores(t *testing.T) {
	j, mock := newMock(t)
	mock.ExpectQuery(q("SELECT id, title, director, price FROM movies ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "director", "price"}).
			AddRow(1, "Dune", "Villeneuve", 10000).
			AddRow(4, "Heat", "Mann", 5000))
	mock.ExpectQuery(q("SELECT id, name, age, class FROM customers ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age", "class"}).
			AddRow(2, "Ann", 30, "premium"))
	mock.ExpectQuery(q("SELECT movie_id, user_id, reservation_price FROM reservations")).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "user_id", "reservation_price"}).
			AddRow(1, 2, 7500.0))
	mock.ExpectQuery(q("SELECT movie_id, user_id, rating FROM ratings")).
		WillReturnRows(sqlmock.NewRows([]string{"movie_id", "user_id", "rating"}).
			AddRow(1, 2, 4))
	mock.ExpectQuery(q("SELECT next_id FROM id_sequences WHERE name=?")).WithArgs("movie").
		WillReturnRows(sqlmock.NewRows([]string{"next_id"}).AddRow(6))
	mock.ExpectQuery(q("SELECT next_id FROM id_sequences WHERE name=?")).WithArgs("user").
		WillReturnRows(sqlmock.NewRows([]string{"next_id"}).AddRow(3))

	snap, err := j.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(6), snap.NextMovieID)
	assert.Equal(t, []model.User{{ID: 2, Name: "Ann", Age: 30, Tier: model.TierPremium}}, snap.Users)
	assert.Equal(t, []model.Rating{{MovieID: 1, UserID: 2, Value: 4}}, snap.Ratings)

	s := store.New()
	require.NoError(t, s.Restore(snap))
	id, err := s.InsertMovie(context.Background(), "Alien", "Scott", 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalLoadMissingSequence(t *testing.T) {
	j, mock := newMock(t)
	for _, cols := range [][]string{
		{"id", "title", "director", "price"},
		{"id", "name", "age", "class"},
		{"movie_id", "user_id", "reservation_price"},
		{"movie_id", "user_id", "rating"},
	} {
		mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows(cols))
	}
	mock.ExpectQuery(q("SELECT next_id FROM id_sequences")).WillReturnRows(sqlmock.NewRows([]string{"next_id"}))

	_, err := j.Load(context.Background())
	assert.ErrorIs(t, err, ErrSequenceMissing)
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	for range schema {
		mock.ExpectExec(".+").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
