package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// UserRepo reads and writes the customers table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// InsertTx inserts u with its store-assigned id.
func (r *UserRepo) InsertTx(ctx context.Context, tx *sql.Tx, u model.User) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO customers (id, name, age, class) VALUES (?,?,?,?)",
		u.ID, u.Name, u.Age, string(u.Tier))
	return err
}

// DeleteTx removes the customer row only; callers delete dependents
// first.
func (r *UserRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM customers WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// List returns all customers ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name, age, class FROM customers ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		var (
			u    model.User
			tier string
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Age, &tier); err != nil {
			return nil, err
		}
		u.Tier = model.Tier(tier)
		out = append(out, u)
	}
	return out, rows.Err()
}
