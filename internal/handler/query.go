package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/cinema-booking/internal/query"
	"github.com/iliyamo/cinema-booking/internal/recommend"
)

// defaultK is the item-based result size when ?k is absent.
const defaultK = 5

// QueryHandler serves the public listings and recommendations.
type QueryHandler struct {
	base
	Query  *query.Facade
	Engine *recommend.Engine
}

func NewQueryHandler(q *query.Facade, e *recommend.Engine, log zerolog.Logger) *QueryHandler {
	return &QueryHandler{base: base{log: log}, Query: q, Engine: e}
}

func (h *QueryHandler) ListMovies(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Query.ListMovies())
}

func (h *QueryHandler) ListUsers(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Query.ListUsers())
}

func (h *QueryHandler) UsersForMovie(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	rows, err := h.Query.UsersForMovie(id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *QueryHandler) MoviesForUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	rows, err := h.Query.MoviesForUser(id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *QueryHandler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Query.Stats())
}

func (h *QueryHandler) Popularity(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	res, err := h.Engine.RecommendPopularity(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ItemBased returns up to ?k predictions (default 5).  k <= 0 yields an
// empty list once the user checks pass.
func (h *QueryHandler) ItemBased(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	k := defaultK
	if raw := c.QueryParam("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "k must be an integer")
		}
		k = n
	}
	recs, err := h.Engine.RecommendItemBased(c.Request().Context(), id, k)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, recs)
}

type similarityResp struct {
	MovieIDs []uint64    `json:"movie_ids"`
	Matrix   [][]float64 `json:"matrix"`
}

// Similarity dumps the movie-to-movie similarity matrix.
func (h *QueryHandler) Similarity(c echo.Context) error {
	m, ids, err := h.Engine.Similarity(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	resp := similarityResp{MovieIDs: ids, Matrix: make([][]float64, len(ids))}
	for i := range ids {
		resp.Matrix[i] = m.Row(i)
	}
	return c.JSON(http.StatusOK, resp)
}
