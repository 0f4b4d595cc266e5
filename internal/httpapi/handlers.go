package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mafianight/server/internal/directory"
	"github.com/mafianight/server/internal/game"
	"github.com/mafianight/server/internal/room"
)

// API exposes the engine, coordinators and room lifecycle over HTTP.
type API struct {
	engine   *game.Engine
	nights   *game.NightActions
	votes    *game.Votes
	rooms    *room.Service
	registry *directory.Registry
	log      zerolog.Logger
}

func New(engine *game.Engine, nights *game.NightActions, votes *game.Votes, rooms *room.Service, registry *directory.Registry, log zerolog.Logger) *API {
	return &API{engine: engine, nights: nights, votes: votes, rooms: rooms, registry: registry, log: log}
}

// fail maps the game error taxonomy onto HTTP statuses. Everything in the
// taxonomy is a non-retryable validation failure surfaced to the caller.
func fail(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, game.ErrGameNotFound), errors.Is(err, room.ErrRoomNotFound), errors.Is(err, directory.ErrUnknownPlayer):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrAlreadyVoted), errors.Is(err, room.ErrAlreadySeated):
		status = http.StatusConflict
	case errors.Is(err, game.ErrInvalidPhaseTransition), errors.Is(err, game.ErrWrongPhase), errors.Is(err, game.ErrGameAlreadyEnded):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"success": false, "message": err.Error()})
}

func (a *API) registerPlayer(c *gin.Context) {
	var req struct {
		Nickname string `json:"nickname" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	member := a.registry.Register(req.Nickname)
	c.JSON(http.StatusCreated, member)
}

func (a *API) createRoom(c *gin.Context) {
	var req struct {
		Title           string `json:"title" binding:"required"`
		HostUserID      string `json:"hostUserId" binding:"required"`
		RequiredPlayers int    `json:"requiredPlayers" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	rm, err := a.rooms.Create(c.Request.Context(), req.HostUserID, req.Title, req.RequiredPlayers)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rm)
}

func (a *API) getRoom(c *gin.Context) {
	rm, err := a.rooms.Get(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rm)
}

func (a *API) joinRoom(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	started, err := a.rooms.Join(c.Request.Context(), c.Param("roomId"), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	message := "joined room"
	if started {
		message = "joined room, game starting"
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": message, "gameStarted": started})
}

func (a *API) leaveRoom(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	if err := a.rooms.Leave(c.Request.Context(), c.Param("roomId"), req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "left room"})
}

func (a *API) roomParticipants(c *gin.Context) {
	roomID := c.Param("roomId")
	ids, err := a.rooms.Participants(c.Request.Context(), roomID)
	if err != nil {
		fail(c, err)
		return
	}
	rm, err := a.rooms.Get(c.Request.Context(), roomID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"participants": ids,
		"count":        len(ids),
		"canStartGame": len(ids) >= rm.RequiredPlayers,
	})
}

// gameState reveals every role; it is mounted behind admin basic auth.
func (a *API) gameState(c *gin.Context) {
	state, err := a.engine.GameState(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (a *API) publicGameState(c *gin.Context) {
	state, err := a.engine.PublicGameState(c.Request.Context(), c.Param("roomId"), c.Query("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// transition wraps the engine's phase-advance operations.
func (a *API) transition(fn func(*gin.Context) (*game.State, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := fn(c)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, state)
	}
}

func (a *API) checkWin(c *gin.Context) {
	result, err := a.engine.CheckWinConditions(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (a *API) submitNightAction(c *gin.Context) {
	var req struct {
		UserID       string `json:"userId" binding:"required"`
		Role         string `json:"role" binding:"required"`
		TargetUserID string `json:"targetUserId" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	complete, err := a.nights.Submit(c.Request.Context(), c.Param("roomId"), req.UserID, game.Role(req.Role), req.TargetUserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "night action recorded", "allComplete": complete})
}

func (a *API) retractNightAction(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
		Role   string `json:"role" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	if err := a.nights.Retract(c.Request.Context(), c.Param("roomId"), req.UserID, game.Role(req.Role)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "night action retracted"})
}

func (a *API) nightActionStatus(c *gin.Context) {
	status, err := a.nights.Status(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (a *API) investigationResult(c *gin.Context) {
	day := 0
	if raw := c.Query("day"); raw != "" {
		day, _ = strconv.Atoi(raw)
	}
	role, err := a.nights.InvestigationResult(c.Request.Context(), c.Param("roomId"), day, c.Query("userId"), c.Query("targetUserId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"targetUserId": c.Query("targetUserId"), "role": role})
}

// nightActionRecord dumps the current day's raw submission record; mounted
// behind admin basic auth.
func (a *API) nightActionRecord(c *gin.Context) {
	record, err := a.nights.All(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": record})
}

// investigations dumps every recorded investigation result for a day; mounted
// behind admin basic auth.
func (a *API) investigations(c *gin.Context) {
	day := 0
	if raw := c.Query("day"); raw != "" {
		day, _ = strconv.Atoi(raw)
	}
	results, err := a.nights.Investigations(c.Request.Context(), c.Param("roomId"), day)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investigations": results})
}

func (a *API) submitVote(c *gin.Context) {
	var req struct {
		UserID       string `json:"userId" binding:"required"`
		TargetUserID string `json:"targetUserId" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	complete, err := a.votes.Submit(c.Request.Context(), c.Param("roomId"), req.UserID, req.TargetUserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "vote recorded", "allComplete": complete})
}

func (a *API) voteStatus(c *gin.Context) {
	status, err := a.votes.Status(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (a *API) voteCompletion(c *gin.Context) {
	completion, err := a.votes.Completion(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, completion)
}
