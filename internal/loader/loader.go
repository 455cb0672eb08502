// Package loader turns seed rows into movies, users and reservations.
//
// Each row names a movie, a customer and implicitly a booking of that
// movie by that customer at the row's price and class.  Rows are
// applied independently: a duplicate movie or customer is reused, an
// invalid one skips the row, and a booking that the store rejects is
// dropped silently.
package loader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/store"
)

// Header is the expected CSV header, in any column order.
var Header = []string{"title", "director", "price", "name", "age", "class"}

// Row is one seed record.  Numeric fields are kept as read so that a
// malformed value only skips its own row.
type Row struct {
	Line     int
	Title    string
	Director string
	Price    string
	Name     string
	Age      string
	Class    string
}

// ReadCSV parses seed rows.  The first record must be a header holding
// every column of Header.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(head))
	for i, h := range head {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range Header {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("missing column %q", h)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, Row{
			Line:     line,
			Title:    rec[col["title"]],
			Director: rec[col["director"]],
			Price:    rec[col["price"]],
			Name:     rec[col["name"]],
			Age:      rec[col["age"]],
			Class:    rec[col["class"]],
		})
	}
}

// Target is the part of the store Ingest writes to.
type Target interface {
	InsertMovie(ctx context.Context, title, director string, price int) (uint64, error)
	InsertUser(ctx context.Context, name string, age int, tier model.Tier) (uint64, error)
	BookMovie(ctx context.Context, movieID, userID uint64, opts store.BookOptions) (float64, error)
	MovieIDByTitle(title string) (uint64, bool)
	UserIDByIdentity(name string, age int) (uint64, bool)
}

// Summary counts what Ingest did.
type Summary struct {
	Rows          int `json:"rows"`
	MoviesCreated int `json:"movies_created"`
	UsersCreated  int `json:"users_created"`
	Booked        int `json:"booked"`
	Skipped       int `json:"skipped"`
	BookingFailed int `json:"booking_failed"`
}

// Ingest applies rows in order.  Only infrastructure failures (for
// example a journal write error) stop it; business rule violations are
// absorbed per row.
func Ingest(ctx context.Context, t Target, rows []Row, log zerolog.Logger) (Summary, error) {
	var sum Summary
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Rows++
		ok, err := ingestRow(ctx, t, row, &sum, log)
		if err != nil {
			return sum, fmt.Errorf("line %d: %w", row.Line, err)
		}
		if !ok {
			sum.Skipped++
		}
	}
	log.Info().
		Int("rows", sum.Rows).
		Int("movies_created", sum.MoviesCreated).
		Int("users_created", sum.UsersCreated).
		Int("booked", sum.Booked).
		Int("skipped", sum.Skipped).
		Msg("seed ingested")
	return sum, nil
}

// ingestRow reports false when the row was skipped before booking.
func ingestRow(ctx context.Context, t Target, row Row, sum *Summary, log zerolog.Logger) (bool, error) {
	price, err := strconv.Atoi(strings.TrimSpace(row.Price))
	if err != nil {
		log.Debug().Int("line", row.Line).Str("price", row.Price).Msg("row skipped: bad price")
		return false, nil
	}
	age, err := strconv.Atoi(strings.TrimSpace(row.Age))
	if err != nil {
		log.Debug().Int("line", row.Line).Str("age", row.Age).Msg("row skipped: bad age")
		return false, nil
	}

	// surrounding blanks are not part of a title or a name
	title, director, name := strings.TrimSpace(row.Title), strings.TrimSpace(row.Director), strings.TrimSpace(row.Name)
	if _, err := t.InsertMovie(ctx, title, director, price); err == nil {
		sum.MoviesCreated++
	} else if !errors.Is(err, model.ErrMovieTitleExists) {
		return false, absorb(err, row, log)
	}

	tier, _ := model.ParseTier(row.Class)
	if _, err := t.InsertUser(ctx, name, age, tier); err == nil {
		sum.UsersCreated++
	} else if !errors.Is(err, model.ErrUserExists) {
		return false, absorb(err, row, log)
	}

	movieID, ok := t.MovieIDByTitle(title)
	if !ok {
		return false, nil
	}
	userID, ok := t.UserIDByIdentity(name, age)
	if !ok {
		return false, nil
	}

	base := float64(price)
	if _, err := t.BookMovie(ctx, movieID, userID, store.BookOptions{Price: &base, Tier: &tier}); err != nil {
		if model.KindOf(err) == model.KindUnknown {
			return true, err
		}
		sum.BookingFailed++
		log.Debug().Int("line", row.Line).Err(err).Msg("booking dropped")
		return true, nil
	}
	sum.Booked++
	return true, nil
}

// absorb swallows business rule violations and passes anything else
// through.
func absorb(err error, row Row, log zerolog.Logger) error {
	if model.KindOf(err) == model.KindUnknown {
		return err
	}
	log.Debug().Int("line", row.Line).Err(err).Msg("row skipped")
	return nil
}

// IngestFile reads the seed CSV at path and ingests it into t.
func IngestFile(ctx context.Context, t Target, path string, log zerolog.Logger) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	rows, err := ReadCSV(f)
	if err != nil {
		return Summary{}, fmt.Errorf("%s: %w", path, err)
	}
	return Ingest(ctx, t, rows, log)
}
