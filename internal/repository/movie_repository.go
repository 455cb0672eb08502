package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// MovieRepo reads and writes the movies table.
type MovieRepo struct{ DB *sql.DB }

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{DB: db} }

// InsertTx inserts m with its store-assigned id.
func (r *MovieRepo) InsertTx(ctx context.Context, tx *sql.Tx, m model.Movie) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO movies (id, title, director, price) VALUES (?,?,?,?)",
		m.ID, m.Title, m.Director, m.Price)
	return err
}

// DeleteTx removes the movie row only; callers delete dependents first.
func (r *MovieRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM movies WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// List returns all movies ordered by id.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, title, director, price FROM movies ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Movie
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Director, &m.Price); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
