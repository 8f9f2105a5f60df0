package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/internal/notification/repository"
	"github.com/radieske/esports-prediction-poc/internal/prediction-service/dto"
	"github.com/radieske/esports-prediction-poc/pkg/contracts/events"
)

// Market são as operações de market.Service usadas pela API.
type Market interface {
	PlaceBet(ctx context.Context, userID string, req market.BetRequest) (*market.Bet, error)
	GetBet(ctx context.Context, betID string) (*market.Bet, error)
	UserBet(ctx context.Context, userID, matchID string) (*market.Bet, error)
	GetMatch(ctx context.Context, matchID string) (*market.Match, error)
	QuoteOdds(ctx context.Context, matchID string) (map[string]map[string]decimal.Decimal, error)
	MatchStats(ctx context.Context, matchID string) (market.MatchStats, error)
	CreateMatch(ctx context.Context, nm market.NewMatch) (*market.Match, error)
	StartDraftPhase(ctx context.Context, matchID string) (*market.Match, error)
	CancelMatch(ctx context.Context, matchID string) (market.CancelResult, error)
	ProcessResults(ctx context.Context, matchID string, results market.DraftResults) (market.ResultsSummary, error)
	DistributeRewards(ctx context.Context, matchID string) (market.RewardSummary, error)
	Deposit(ctx context.Context, userID string, amount decimal.Decimal, ref string) (*market.Account, error)
	GetAccount(ctx context.Context, userID string) (*market.Account, error)
}

type BetPublisher interface {
	PublishBetPlaced(ctx context.Context, b *market.Bet) error
}

// OddsCache é versionado por partida: Set recusa cotações calculadas antes do último Invalidate.
type OddsCache interface {
	Get(ctx context.Context, matchID string) (*dto.OddsResponse, bool, error)
	Version(ctx context.Context, matchID string) (int64, error)
	Set(ctx context.Context, q dto.OddsResponse, version int64) (bool, error)
	Invalidate(ctx context.Context, matchID string) error
}

type PoolBroadcaster interface {
	PublishPoolUpdate(ctx context.Context, u events.PoolUpdate) error
}

// PoolSnapshot monta a atualização de pool da partida (pubsub.BuildPoolUpdate sobre o estado atual).
type PoolSnapshot func(ctx context.Context, matchID string) (events.PoolUpdate, error)

type NotificationReader interface {
	Get(ctx context.Context, id string) (*repository.Notification, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]repository.Notification, error)
}

// API expõe o mercado de predições em REST. Publisher, Cache, Broadcaster,
// Notifications e WS são opcionais (nil desliga o recurso).
type API struct {
	Log           *zap.Logger
	Market        Market
	Publisher     BetPublisher
	Cache         OddsCache
	Broadcaster   PoolBroadcaster
	Snapshot      PoolSnapshot
	Notifications NotificationReader
	WS            http.HandlerFunc
}

const userHeader = "X-User-ID"

func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/v1/bets", a.placeBet)
	r.Get("/v1/bets/{id}", a.getBet)

	r.Get("/v1/matches/{id}", a.getMatch)
	r.Get("/v1/matches/{id}/bets/me", a.myBet)
	r.Get("/v1/matches/{id}/odds", a.getOdds)
	r.Get("/v1/matches/{id}/stats", a.getStats)

	r.Get("/v1/accounts/me", a.myAccount)

	r.Route("/v1/admin", func(r chi.Router) {
		r.Post("/matches", a.createMatch)
		r.Post("/matches/{id}/draft", a.startDraft)
		r.Post("/matches/{id}/cancel", a.cancelMatch)
		r.Post("/matches/{id}/results", a.submitResults)
		r.Post("/matches/{id}/rewards", a.distributeRewards)
		r.Post("/accounts/{userId}/deposit", a.deposit)
	})

	if a.Notifications != nil {
		r.Get("/v1/notifications", a.myNotifications)
		r.Get("/v1/notifications/{id}", a.getNotification)
	}
	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor mapeia o tipo de erro para o status HTTP.
func statusFor(kind market.ErrorKind) int {
	switch kind {
	case market.KindMatchNotFound, market.KindBetNotFound, market.KindNotificationNotFound:
		return http.StatusNotFound
	case market.KindDuplicateBet, market.KindInvalidMatchStatus,
		market.KindResultsNotCompleted, market.KindAlreadyDistributed:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var me *market.Error
	if errors.As(err, &me) {
		writeJSON(w, statusFor(me.Kind), dto.ErrorResponse{Error: string(me.Kind), Message: me.Message})
		return
	}
	a.Log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "INTERNAL", Message: "internal error"})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "BAD_REQUEST", Message: msg})
}

// userID lê o usuário autenticado do header; escreve 401 se faltar.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(userHeader)
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "UNAUTHENTICATED", Message: userHeader + " header required"})
		return "", false
	}
	return id, true
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}

	bet, err := a.Market.PlaceBet(r.Context(), uid, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	// aposta já está gravada: falhas daqui em diante só são logadas
	if a.Publisher != nil {
		if err := a.Publisher.PublishBetPlaced(r.Context(), bet); err != nil {
			a.Log.Warn("publish bet_placed failed", zap.String("betId", bet.ID), zap.Error(err))
		}
	}
	a.poolChanged(r.Context(), bet.MatchID)

	writeJSON(w, http.StatusCreated, dto.FromBet(bet))
}

// poolChanged invalida a cotação em cache e avisa os clientes WebSocket.
func (a *API) poolChanged(ctx context.Context, matchID string) {
	if a.Cache != nil {
		if err := a.Cache.Invalidate(ctx, matchID); err != nil {
			a.Log.Warn("odds cache invalidate failed", zap.String("matchId", matchID), zap.Error(err))
		}
	}
	if a.Broadcaster == nil || a.Snapshot == nil {
		return
	}
	u, err := a.Snapshot(ctx, matchID)
	if err == nil {
		err = a.Broadcaster.PublishPoolUpdate(ctx, u)
	}
	if err != nil {
		a.Log.Warn("pool update broadcast failed", zap.String("matchId", matchID), zap.Error(err))
	}
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	bet, err := a.Market.GetBet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBet(bet))
}

func (a *API) myBet(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	bet, err := a.Market.UserBet(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBet(bet))
}

func (a *API) getMatch(w http.ResponseWriter, r *http.Request) {
	m, err := a.Market.GetMatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// getOdds responde do cache quando possível. A versão é lida antes do cálculo para que
// uma aposta que invalide a partida no meio do caminho descarte esta cotação.
func (a *API) getOdds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	version, cacheable := int64(0), false
	if a.Cache != nil {
		if q, ok, err := a.Cache.Get(r.Context(), id); err == nil && ok {
			writeJSON(w, http.StatusOK, q)
			return
		}
		v, err := a.Cache.Version(r.Context(), id)
		if err != nil {
			a.Log.Warn("odds cache version failed", zap.String("matchId", id), zap.Error(err))
		}
		version, cacheable = v, err == nil
	}

	quote, err := a.Market.QuoteOdds(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	resp := dto.OddsResponse{MatchID: id, Odds: make(map[string]map[string]string, len(quote)), AsOf: time.Now().UTC()}
	for typ, opts := range quote {
		m := make(map[string]string, len(opts))
		for choice, o := range opts {
			m[choice] = o.StringFixed(2)
		}
		resp.Odds[typ] = m
	}

	if cacheable {
		stored, err := a.Cache.Set(r.Context(), resp, version)
		if err != nil {
			a.Log.Warn("odds cache set failed", zap.String("matchId", id), zap.Error(err))
		} else if !stored {
			a.Log.Debug("stale odds quote not cached", zap.String("matchId", id))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) getStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.Market.MatchStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) myAccount(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	acc, err := a.Market.GetAccount(r.Context(), uid)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromAccount(acc))
}
