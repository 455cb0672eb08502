package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ReservationRepo reads and writes reservations and their ratings.
// A rating lives and dies with its reservation, so both tables are
// handled here.
type ReservationRepo struct{ DB *sql.DB }

func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{DB: db} }

func (r *ReservationRepo) InsertTx(ctx context.Context, tx *sql.Tx, res model.Reservation) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO reservations (movie_id, user_id, reservation_price) VALUES (?,?,?)",
		res.MovieID, res.UserID, res.Price)
	return err
}

func (r *ReservationRepo) InsertRatingTx(ctx context.Context, tx *sql.Tx, rt model.Rating) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO ratings (movie_id, user_id, rating) VALUES (?,?,?)",
		rt.MovieID, rt.UserID, rt.Value)
	return err
}

// DeleteByMovieTx removes every rating and reservation of a movie.
func (r *ReservationRepo) DeleteByMovieTx(ctx context.Context, tx *sql.Tx, movieID uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM ratings WHERE movie_id=?", movieID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM reservations WHERE movie_id=?", movieID)
	return err
}

// DeleteByUserTx removes every rating and reservation of a customer.
func (r *ReservationRepo) DeleteByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM ratings WHERE user_id=?", userID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM reservations WHERE user_id=?", userID)
	return err
}

// List returns all reservations ordered by (movie_id, user_id).
func (r *ReservationRepo) List(ctx context.Context) ([]model.Reservation, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT movie_id, user_id, reservation_price FROM reservations ORDER BY movie_id, user_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.MovieID, &res.UserID, &res.Price); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ListRatings returns all ratings ordered by (movie_id, user_id).
func (r *ReservationRepo) ListRatings(ctx context.Context) ([]model.Rating, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT movie_id, user_id, rating FROM ratings ORDER BY movie_id, user_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Rating
	for rows.Next() {
		var rt model.Rating
		if err := rows.Scan(&rt.MovieID, &rt.UserID, &rt.Value); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}
