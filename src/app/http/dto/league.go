package dto

import "statapi/src/core/domain"

// LinkLeagueRequest is the payload for PUT /<database>/leagues/:league_id/external_id.
type LinkLeagueRequest struct {
	ExternalID int64 `json:"external_id" binding:"required,gt=0"`
}

// LeagueResponse is a league as exposed by the API.
type LeagueResponse struct {
	ID         int64  `json:"league_id"`
	Name       string `json:"name"`
	Country    string `json:"country"`
	ExternalID *int64 `json:"external_id"`
}

// LeagueFromDomain converts a domain league.
func LeagueFromDomain(l domain.League) LeagueResponse {
	return LeagueResponse{
		ID:         l.ID,
		Name:       l.Name,
		Country:    l.Country,
		ExternalID: l.ExternalID,
	}
}

// LeaguesFromDomain converts a list, returning an empty slice rather than nil
// so the JSON body is always an array.
func LeaguesFromDomain(leagues []domain.League) []LeagueResponse {
	out := make([]LeagueResponse, 0, len(leagues))
	for _, l := range leagues {
		out = append(out, LeagueFromDomain(l))
	}
	return out
}
