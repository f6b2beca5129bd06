package roomhandler

import (
	"net/http"

	"gameroomgo/internal/history"
	"gameroomgo/internal/services/room"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	coord   room.ICoordinator
	matches *history.Recorder
}

func New(coord room.ICoordinator, matches *history.Recorder) *Handler {
	return &Handler{coord: coord, matches: matches}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/rooms", h.rooms)
	r.GET("/matches", h.list)
}

// @Summary		List live rooms
// @Description	Returns a summary of every currently open room.
// @Tags			Rooms
// @Success		200	{object}	RoomsResponse
// @Router			/rooms [get]
func (h *Handler) rooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.coord.ListRooms())
}

// @Summary		List finished matches
// @Description	Retrieves a paginated list of archived match outcomes, newest first.
// @Tags			Matches
// @Param			limit	query		int	false	"Max results (0-100)"	minimum(0)	maximum(100)	default(10)
// @Param			offset	query		int	false	"Offset for pagination"	minimum(0)	default(0)
// @Success		200		{array}		history.MatchDTO
// @Failure		400		{object}	ErrorResponse
// @Failure		500		{object}	ErrorResponse
// @Router			/matches [get]
func (h *Handler) list(c *gin.Context) {
	var q ListMatchesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	out, err := h.matches.ListMatches(c, q.Limit, q.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}
