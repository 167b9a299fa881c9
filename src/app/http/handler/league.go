package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"statapi/src/app/http/dto"
	"statapi/src/app/http/response"
	"statapi/src/app/middleware"
	"statapi/src/core/usecase"
)

// LeagueHandler handles league endpoints. The database is chosen by the
// route prefix (/<database>/leagues) except for Unlinked, which always reads
// the default database.
type LeagueHandler struct {
	leagueService *usecase.LeagueService
}

func NewLeagueHandler(leagueService *usecase.LeagueService) *LeagueHandler {
	return &LeagueHandler{leagueService: leagueService}
}

// List GET /<database>/leagues
func (h *LeagueHandler) List(c *gin.Context) {
	leagues, err := h.leagueService.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, dto.LeaguesFromDomain(leagues))
}

// Get GET /<database>/leagues/:league_id
func (h *LeagueHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("league_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid league id", middleware.GetRequestID(c))
		return
	}

	league, err := h.leagueService.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, dto.LeagueFromDomain(*league))
}

// Link PUT /<database>/leagues/:league_id/external_id
func (h *LeagueHandler) Link(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("league_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid league id", middleware.GetRequestID(c))
		return
	}

	var req dto.LinkLeagueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "external_id", err.Error(), middleware.GetRequestID(c))
		return
	}

	league, err := h.leagueService.Link(c.Request.Context(), id, req.ExternalID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, dto.LeagueFromDomain(*league))
}

// Unlinked returns the leagues of the default database with no external id.
// GET /api/get_leagues_api_new/
func (h *LeagueHandler) Unlinked(c *gin.Context) {
	leagues, err := h.leagueService.Unlinked(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, dto.LeaguesFromDomain(leagues))
}
