// Package handlers holds the admin API's echo handlers. The surface is
// read-only: it exists for operators to inspect what the bot has stored.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/embedforge/embedforge/internal/store"
)

type EmbedsHandler struct {
	logger *slog.Logger
	embeds store.EmbedStore
}

func NewEmbedsHandler(log *slog.Logger, embeds store.EmbedStore) *EmbedsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EmbedsHandler{
		logger: log.With(slog.String("handler", "embeds")),
		embeds: embeds,
	}
}

func (h *EmbedsHandler) Register(e *echo.Echo) {
	e.GET("/embeds", h.List)
	e.GET("/embeds/:key", h.Get)
}

func (h *EmbedsHandler) List(c echo.Context) error {
	recs, err := h.embeds.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list embeds", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "list failed"})
	}
	if recs == nil {
		recs = []store.Record{}
	}
	return c.JSON(http.StatusOK, recs)
}

// Get resolves the key as a record id when it parses as an integer, and as
// a record name otherwise.
func (h *EmbedsHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	key := c.Param("key")

	var rec store.Record
	var err error
	if id, perr := strconv.ParseInt(key, 10, 64); perr == nil {
		rec, err = h.embeds.GetByID(ctx, id)
	} else {
		rec, err = h.embeds.GetByName(ctx, key)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}
		h.logger.Error("get embed", slog.String("key", key), slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, rec)
}
