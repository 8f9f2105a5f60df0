package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/internal/notification/repository"
	"github.com/radieske/esports-prediction-poc/internal/prediction-service/dto"
)

func (a *API) createMatch(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	m, err := a.Market.CreateMatch(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) startDraft(w http.ResponseWriter, r *http.Request) {
	m, err := a.Market.StartDraftPhase(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.poolChanged(r.Context(), m.ID)
	writeJSON(w, http.StatusOK, m)
}

func (a *API) cancelMatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := a.Market.CancelMatch(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.poolChanged(r.Context(), id)
	writeJSON(w, http.StatusOK, dto.CancelResponse{
		MatchID:        id,
		RefundedBets:   res.RefundedBets,
		RefundedAmount: res.RefundedAmount.StringFixed(2),
	})
}

// submitResults processa o resultado e em seguida distribui as recompensas.
// As notificações prediction_result saem da distribuição, não do processamento: se a
// distribuição falhar a resposta é 202, o resultado já está gravado e nenhum apostador
// é avisado até /rewards ser chamado de novo com sucesso.
func (a *API) submitResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req dto.SubmitResultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}

	sum, err := a.Market.ProcessResults(r.Context(), id, req.Results)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.poolChanged(r.Context(), id)

	rewards, err := a.Market.DistributeRewards(r.Context(), id)
	if err != nil {
		a.Log.Error("distribute rewards after results failed", zap.String("matchId", id), zap.Error(err))
		writeJSON(w, http.StatusAccepted, dto.ResultsResponse{Results: sum})
		return
	}
	rr := dto.FromRewards(rewards)
	writeJSON(w, http.StatusOK, dto.ResultsResponse{Results: sum, Rewards: &rr})
}

func (a *API) distributeRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := a.Market.DistributeRewards(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromRewards(rewards))
}

func (a *API) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "bad json")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		badRequest(w, "amount must be a decimal string")
		return
	}
	acc, err := a.Market.Deposit(r.Context(), chi.URLParam(r, "userId"), amount, req.ExternalRef)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromAccount(acc))
}

func (a *API) getNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := a.Notifications.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{
			Error:   string(market.KindNotificationNotFound),
			Message: "notification " + id + " not found",
		})
		return
	}
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (a *API) myNotifications(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := a.Notifications.ListByUser(r.Context(), uid, limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []repository.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}
