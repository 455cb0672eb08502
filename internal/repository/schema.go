package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	seqMovie = "movie"
	seqUser  = "user"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id BIGINT UNSIGNED NOT NULL PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		director VARCHAR(255) NOT NULL,
		price INT NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS customers (
		id BIGINT UNSIGNED NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		age INT NOT NULL,
		class VARCHAR(16) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		movie_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		reservation_price DOUBLE NOT NULL,
		PRIMARY KEY (movie_id, user_id),
		KEY idx_reservations_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ratings (
		movie_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		rating TINYINT NOT NULL,
		PRIMARY KEY (movie_id, user_id),
		KEY idx_ratings_user (user_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS id_sequences (
		name VARCHAR(32) NOT NULL PRIMARY KEY,
		next_id BIGINT UNSIGNED NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS activity_log (
		event_id CHAR(36) NOT NULL PRIMARY KEY,
		type VARCHAR(64) NOT NULL,
		movie_id BIGINT UNSIGNED NULL,
		user_id BIGINT UNSIGNED NULL,
		payload JSON NOT NULL,
		occurred_at DATETIME(6) NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`INSERT IGNORE INTO id_sequences (name, next_id) VALUES ('movie', 1), ('user', 1)`,
}

// Migrate creates the tables if they do not exist and seeds the id
// sequences.  It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

func setSequenceTx(ctx context.Context, tx *sql.Tx, name string, next uint64) error {
	_, err := tx.ExecContext(ctx, "UPDATE id_sequences SET next_id=? WHERE name=?", next, name)
	return err
}
