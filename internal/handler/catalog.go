package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-booking/internal/loader"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/service"
	"github.com/iliyamo/cinema-booking/internal/store"
)

// Catalog is the mutating side of the store.
type Catalog interface {
	InsertMovie(ctx context.Context, title, director string, price int) (uint64, error)
	RemoveMovie(ctx context.Context, id uint64) error
	InsertUser(ctx context.Context, name string, age int, tier model.Tier) (uint64, error)
	RemoveUser(ctx context.Context, id uint64) error
	BookMovie(ctx context.Context, movieID, userID uint64, opts store.BookOptions) (float64, error)
	RateMovie(ctx context.Context, movieID, userID uint64, rating int) error
	Reset(ctx context.Context) error
	User(id uint64) (model.User, bool)
}

// Seeder reloads the catalogue after a reset.
type Seeder func(ctx context.Context) (loader.Summary, error)

// CatalogHandler serves the operator endpoints that change the
// catalogue.  Every accepted mutation is counted and published as an
// activity event.
type CatalogHandler struct {
	base
	Store  Catalog
	Events service.Events
	Seed   Seeder // nil when no seed file is configured
}

func NewCatalogHandler(s Catalog, ev service.Events, seed Seeder, log zerolog.Logger) *CatalogHandler {
	if ev == nil {
		ev = service.NopEvents{}
	}
	return &CatalogHandler{base: base{log: log}, Store: s, Events: ev, Seed: seed}
}

// ----- DTOs -----

type movieReq struct {
	Title    string `json:"title" validate:"required"`
	Director string `json:"director"`
	Price    *int   `json:"price" validate:"required"`
}

type userReq struct {
	Name  string `json:"name" validate:"required"`
	Age   *int   `json:"age" validate:"required"`
	Class string `json:"class" validate:"required"`
}

type bookingReq struct {
	MovieID uint64   `json:"movie_id" validate:"required"`
	UserID  uint64   `json:"user_id" validate:"required"`
	Price   *float64 `json:"price" validate:"omitempty,gte=0"`
	Class   *string  `json:"class"`
}

type ratingReq struct {
	MovieID uint64 `json:"movie_id" validate:"required"`
	UserID  uint64 `json:"user_id" validate:"required"`
	Rating  *int   `json:"rating" validate:"required"`
}

type resetReq struct {
	Reseed bool `json:"reseed"`
}

type bookingResp struct {
	MovieID          uint64  `json:"movie_id"`
	UserID           uint64  `json:"user_id"`
	ReservationPrice float64 `json:"reservation_price"`
}

type resetResp struct {
	Reset bool            `json:"reset"`
	Seed  *loader.Summary `json:"seed,omitempty"`
}

// ----- handlers -----

func (h *CatalogHandler) InsertMovie(c echo.Context) error {
	var req movieReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	id, err := h.Store.InsertMovie(c.Request().Context(), strings.TrimSpace(req.Title), strings.TrimSpace(req.Director), *req.Price)
	if err != nil {
		return h.reject(c, "insert_movie", err)
	}
	h.accept(c, "insert_movie", queue.NewEvent(queue.MovieInserted).WithMovie(id))
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *CatalogHandler) RemoveMovie(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	if err := h.Store.RemoveMovie(c.Request().Context(), id); err != nil {
		return h.reject(c, "remove_movie", err)
	}
	h.accept(c, "remove_movie", queue.NewEvent(queue.MovieRemoved).WithMovie(id))
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) InsertUser(c echo.Context) error {
	var req userReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	tier, _ := model.ParseTier(req.Class) // the store reports an invalid class
	id, err := h.Store.InsertUser(c.Request().Context(), strings.TrimSpace(req.Name), *req.Age, tier)
	if err != nil {
		return h.reject(c, "insert_user", err)
	}
	h.accept(c, "insert_user", queue.NewEvent(queue.UserInserted).WithUser(id))
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *CatalogHandler) RemoveUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	if err := h.Store.RemoveUser(c.Request().Context(), id); err != nil {
		return h.reject(c, "remove_user", err)
	}
	h.accept(c, "remove_user", queue.NewEvent(queue.UserRemoved).WithUser(id))
	return c.NoContent(http.StatusNoContent)
}

// BookMovie reserves a seat.  price and class override the catalogue
// price and the user's tier, the way bulk imports book.
func (h *CatalogHandler) BookMovie(c echo.Context) error {
	var req bookingReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	opts := store.BookOptions{Price: req.Price}
	if req.Class != nil {
		tier, ok := model.ParseTier(*req.Class)
		if !ok {
			return h.reject(c, "book_movie", model.UserClassInvalid(*req.Class))
		}
		opts.Tier = &tier
	}

	price, err := h.Store.BookMovie(c.Request().Context(), req.MovieID, req.UserID, opts)
	if err != nil {
		return h.reject(c, "book_movie", err)
	}
	tier := ""
	if opts.Tier != nil {
		tier = string(*opts.Tier)
	} else if u, ok := h.Store.User(req.UserID); ok {
		tier = string(u.Tier)
	}
	metrics.ReservationPrice.WithLabelValues(tier).Observe(price)
	h.accept(c, "book_movie", queue.NewEvent(queue.MovieBooked).WithMovie(req.MovieID).WithUser(req.UserID).WithPrice(price))
	return c.JSON(http.StatusCreated, bookingResp{MovieID: req.MovieID, UserID: req.UserID, ReservationPrice: price})
}

func (h *CatalogHandler) RateMovie(c echo.Context) error {
	var req ratingReq
	if msg, ok := bindValid(c, &req); !ok {
		return badRequest(c, msg)
	}
	if err := h.Store.RateMovie(c.Request().Context(), req.MovieID, req.UserID, *req.Rating); err != nil {
		return h.reject(c, "rate_movie", err)
	}
	h.accept(c, "rate_movie", queue.NewEvent(queue.MovieRated).WithMovie(req.MovieID).WithUser(req.UserID).WithRating(*req.Rating))
	return c.JSON(http.StatusCreated, echo.Map{"movie_id": req.MovieID, "user_id": req.UserID, "rating": *req.Rating})
}

// Reset empties the catalogue and, when asked and a seed is configured,
// loads the seed file again.  An empty body means no reseed.
func (h *CatalogHandler) Reset(c echo.Context) error {
	var req resetReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	ctx := c.Request().Context()
	if err := h.Store.Reset(ctx); err != nil {
		return h.reject(c, "reset", err)
	}
	h.accept(c, "reset", queue.NewEvent(queue.CatalogueReset))

	resp := resetResp{Reset: true}
	if req.Reseed {
		if h.Seed == nil {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "no_seed", "message": "no seed file configured"})
		}
		sum, err := h.Seed(ctx)
		if err != nil {
			return h.respondError(c, err)
		}
		resp.Seed = &sum
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *CatalogHandler) reject(c echo.Context, op string, err error) error {
	outcome := "error"
	if k := model.KindOf(err); k != model.KindUnknown {
		outcome = k.String()
	}
	metrics.RecordMutation(op, outcome)
	return h.respondError(c, err)
}

// accept records a committed mutation and publishes its event.  A
// publish failure is logged and never fails the request.
func (h *CatalogHandler) accept(c echo.Context, op string, ev queue.ActivityEvent) {
	metrics.RecordMutation(op, "ok")
	if name, ok := c.Get(middleware.CtxOperator).(string); ok {
		ev = ev.WithOperator(name)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 2*time.Second)
	defer cancel()
	if err := h.Events.Publish(ctx, ev); err != nil {
		h.log.Warn().Err(err).Str("type", ev.Type).Str("event_id", ev.ID).Msg("publish activity failed")
	}
}
