package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/mafianight/server/internal/game"
)

// Register mounts the API. adminAccounts guards the role-revealing routes
// (full state, raw night-action record, investigation dump); pass nil to
// leave them unmounted.
func (a *API) Register(r *gin.Engine, adminAccounts gin.Accounts) {
	api := r.Group("/api")

	api.POST("/players", a.registerPlayer)

	api.POST("/rooms", a.createRoom)
	api.GET("/rooms/:roomId", a.getRoom)
	api.POST("/rooms/:roomId/join", a.joinRoom)
	api.POST("/rooms/:roomId/leave", a.leaveRoom)
	api.GET("/rooms/:roomId/participants", a.roomParticipants)

	g := api.Group("/game")
	g.GET("/public-state/:roomId", a.publicGameState)
	g.POST("/start-night/:roomId", a.transition(func(c *gin.Context) (*game.State, error) {
		return a.engine.StartFirstNight(c.Request.Context(), c.Param("roomId"))
	}))
	g.POST("/transition-night/:roomId", a.transition(func(c *gin.Context) (*game.State, error) {
		return a.engine.TransitionToNight(c.Request.Context(), c.Param("roomId"))
	}))
	g.POST("/transition-night-result/:roomId", a.transition(func(c *gin.Context) (*game.State, error) {
		return a.engine.TransitionToNightResult(c.Request.Context(), c.Param("roomId"))
	}))
	g.POST("/transition-day/:roomId", a.transition(func(c *gin.Context) (*game.State, error) {
		return a.engine.TransitionToDay(c.Request.Context(), c.Param("roomId"))
	}))
	g.POST("/transition-vote/:roomId", a.transition(func(c *gin.Context) (*game.State, error) {
		return a.engine.TransitionToVote(c.Request.Context(), c.Param("roomId"))
	}))
	g.POST("/transition-day-result/:roomId", a.transition(func(c *gin.Context) (*game.State, error) {
		return a.engine.TransitionToDayResult(c.Request.Context(), c.Param("roomId"))
	}))
	g.GET("/check-win/:roomId", a.checkWin)

	g.POST("/night-action/:roomId", a.submitNightAction)
	g.DELETE("/night-action/:roomId", a.retractNightAction)
	g.GET("/night-action-status/:roomId", a.nightActionStatus)
	g.GET("/investigation/:roomId", a.investigationResult)

	g.POST("/vote/:roomId", a.submitVote)
	g.GET("/vote-status/:roomId", a.voteStatus)
	g.GET("/vote-completion/:roomId", a.voteCompletion)

	if len(adminAccounts) > 0 {
		auth := gin.BasicAuth(adminAccounts)
		g.GET("/state/:roomId", auth, a.gameState)
		g.GET("/night-actions/:roomId", auth, a.nightActionRecord)
		g.GET("/investigations/:roomId", auth, a.investigations)
	}
}
