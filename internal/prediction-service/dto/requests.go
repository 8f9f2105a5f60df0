package dto

import (
	"github.com/radieske/esports-prediction-poc/internal/market"
)

// PlaceBetRequest: {matchId, predictions:[{type, choice, betAmount}]}; o usuário vem do header X-User-ID.
type PlaceBetRequest = market.BetRequest

// SubmitResultsRequest: {results:{firstBan, firstPick, mostBanned, picks}}.
type SubmitResultsRequest struct {
	Results market.DraftResults `json:"results"`
}

type CreateMatchRequest = market.NewMatch

type DepositRequest struct {
	Amount      string `json:"amount"` // decimal em string, ex: "150.00"
	ExternalRef string `json:"externalRef"`
}
