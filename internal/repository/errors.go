// Package repository persists the booking catalogue in MySQL.
//
// The in-memory store stays authoritative for every business rule; the
// tables here carry only primary keys so that the journal can replay
// exactly what the store accepted.  Deletes cascade explicitly inside
// a transaction rather than through FOREIGN KEY clauses.
package repository

import "errors"

// ErrSequenceMissing is returned by Load when the id_sequences table
// has not been seeded; run Migrate first.
var ErrSequenceMissing = errors.New("id sequence row missing")

// ErrNoRowsAffected signals that a write expected to touch a row
// touched none, meaning the database and the store disagree.
var ErrNoRowsAffected = errors.New("no rows affected")
