package model

import (
	"errors"
	"fmt"
)

// Kind classifies a business rule violation.  Every kind is a
// recoverable, caller-visible condition; none of them is fatal.
type Kind int

const (
	KindUnknown Kind = iota
	KindMovieTitleExists
	KindMoviePriceOutOfRange
	KindMovieNotFound
	KindUserExists
	KindUserAgeOutOfRange
	KindUserClassInvalid
	KindUserNotFound
	KindMovieFullyBooked
	KindAlreadyBooked
	KindNotBooked
	KindAlreadyRated
	KindRatingOutOfRange
	KindNoRatingsForTargetUser
)

var kindNames = map[Kind]string{
	KindUnknown:                "Unknown",
	KindMovieTitleExists:       "MovieTitleExists",
	KindMoviePriceOutOfRange:   "MoviePriceOutOfRange",
	KindMovieNotFound:          "MovieNotFound",
	KindUserExists:             "UserExists",
	KindUserAgeOutOfRange:      "UserAgeOutOfRange",
	KindUserClassInvalid:       "UserClassInvalid",
	KindUserNotFound:           "UserNotFound",
	KindMovieFullyBooked:       "MovieFullyBooked",
	KindAlreadyBooked:          "AlreadyBooked",
	KindNotBooked:              "NotBooked",
	KindAlreadyRated:           "AlreadyRated",
	KindRatingOutOfRange:       "RatingOutOfRange",
	KindNoRatingsForTargetUser: "NoRatingsForTargetUser",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is returned by the store and the recommender when an
// operation is rejected by a business rule.  Message names the
// offending identifiers so that callers can surface it directly.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is makes every *Error match the sentinel of the same kind, so
// callers can write errors.Is(err, model.ErrMovieNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind carried by err, or KindUnknown when err is
// not a business rule violation.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Sentinels for errors.Is comparisons.
var (
	ErrMovieTitleExists       = &Error{Kind: KindMovieTitleExists}
	ErrMoviePriceOutOfRange   = &Error{Kind: KindMoviePriceOutOfRange}
	ErrMovieNotFound          = &Error{Kind: KindMovieNotFound}
	ErrUserExists             = &Error{Kind: KindUserExists}
	ErrUserAgeOutOfRange      = &Error{Kind: KindUserAgeOutOfRange}
	ErrUserClassInvalid       = &Error{Kind: KindUserClassInvalid}
	ErrUserNotFound           = &Error{Kind: KindUserNotFound}
	ErrMovieFullyBooked       = &Error{Kind: KindMovieFullyBooked}
	ErrAlreadyBooked          = &Error{Kind: KindAlreadyBooked}
	ErrNotBooked              = &Error{Kind: KindNotBooked}
	ErrAlreadyRated           = &Error{Kind: KindAlreadyRated}
	ErrRatingOutOfRange       = &Error{Kind: KindRatingOutOfRange}
	ErrNoRatingsForTargetUser = &Error{Kind: KindNoRatingsForTargetUser}
)

func newError(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

func MovieTitleExists(title string) error {
	return newError(KindMovieTitleExists, "the movie %s already exists", title)
}

func MoviePriceOutOfRange(price int) error {
	return newError(KindMoviePriceOutOfRange, "movie price should be from %d to %d, got %d", MinMoviePrice, MaxMoviePrice, price)
}

func MovieNotFound(id uint64) error {
	return newError(KindMovieNotFound, "movie %d does not exist", id)
}

func UserExists(name string, age int) error {
	return newError(KindUserExists, "the user (%s, %d) already exists", name, age)
}

func UserAgeOutOfRange(age int) error {
	return newError(KindUserAgeOutOfRange, "user age should be from %d to %d, got %d", MinUserAge, MaxUserAge, age)
}

func UserClassInvalid(tier string) error {
	return newError(KindUserClassInvalid, "user class should be basic, premium or vip, got %q", tier)
}

func UserNotFound(id uint64) error {
	return newError(KindUserNotFound, "user %d does not exist", id)
}

func MovieFullyBooked(movieID uint64) error {
	return newError(KindMovieFullyBooked, "movie %d has already been fully booked", movieID)
}

func AlreadyBooked(movieID, userID uint64) error {
	return newError(KindAlreadyBooked, "user %d has already booked movie %d", userID, movieID)
}

func NotBooked(movieID, userID uint64) error {
	return newError(KindNotBooked, "user %d has not booked movie %d yet", userID, movieID)
}

func AlreadyRated(movieID, userID uint64) error {
	return newError(KindAlreadyRated, "user %d has already rated movie %d", userID, movieID)
}

func RatingOutOfRange(rating int) error {
	return newError(KindRatingOutOfRange, "rating should be from %d to %d, got %d", MinRating, MaxRating, rating)
}

func NoRatingsForTargetUser(userID uint64) error {
	return newError(KindNoRatingsForTargetUser, "user %d has not rated any movie", userID)
}
