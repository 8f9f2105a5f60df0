// Package memstore guarda partidas, apostas e contas em memória.
// Usado nos testes e com STORE_BACKEND=memory.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/esports-prediction-poc/internal/market"
)

// LedgerEntry é um movimento de conta (DEBIT, CREDIT).
type LedgerEntry struct {
	UserID string
	Kind   string
	Amount decimal.Decimal
	Ref    string
}

type state struct {
	matches  map[string]market.Match
	bets     map[string]market.Bet
	betOrder []string
	accounts map[string]decimal.Decimal
	ledger   []LedgerEntry
}

func (st *state) clone() *state {
	out := &state{
		matches:  make(map[string]market.Match, len(st.matches)),
		bets:     make(map[string]market.Bet, len(st.bets)),
		betOrder: append([]string(nil), st.betOrder...),
		accounts: make(map[string]decimal.Decimal, len(st.accounts)),
		ledger:   append([]LedgerEntry(nil), st.ledger...),
	}
	for k, v := range st.matches {
		out.matches[k] = v.Clone()
	}
	for k, v := range st.bets {
		out.bets[k] = v.Clone()
	}
	for k, v := range st.accounts {
		out.accounts[k] = v
	}
	return out
}

// Store implementa market.Store. WithTx trabalha numa cópia do estado e só a
// publica se fn devolver nil; o mutex serializa as transações.
type Store struct {
	txMu sync.Mutex // uma transação por vez
	mu   sync.RWMutex
	st   *state
}

var _ market.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: &state{
		matches:  make(map[string]market.Match),
		bets:     make(map[string]market.Bet),
		accounts: make(map[string]decimal.Decimal),
	}}
}

// SeedAccount cria (ou sobrescreve) a conta com o saldo dado.
func (s *Store) SeedAccount(userID string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.accounts[userID] = balance
}

// Ledger devolve uma cópia dos movimentos de conta confirmados.
func (s *Store) Ledger() []LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LedgerEntry(nil), s.st.ledger...)
}

func (s *Store) WithTx(ctx context.Context, fn func(r market.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()

	if err := fn(&view{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = work
	s.mu.Unlock()
	return nil
}

// Fora de transação cada chamada é atômica por si.

func (s *Store) read(fn func(v *view) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&view{st: s.st})
}

func (s *Store) write(fn func(v *view) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&view{st: s.st})
}

func (s *Store) GetMatch(ctx context.Context, id string) (m *market.Match, err error) {
	err = s.read(func(v *view) error { m, err = v.GetMatch(ctx, id); return err })
	return m, err
}

func (s *Store) LockMatch(ctx context.Context, id string) (*market.Match, error) {
	return s.GetMatch(ctx, id)
}

func (s *Store) InsertMatch(ctx context.Context, m *market.Match) error {
	return s.write(func(v *view) error { return v.InsertMatch(ctx, m) })
}

func (s *Store) SaveMatch(ctx context.Context, m *market.Match) error {
	return s.write(func(v *view) error { return v.SaveMatch(ctx, m) })
}

func (s *Store) ListUpcomingStartingBefore(ctx context.Context, t time.Time) (out []market.Match, err error) {
	err = s.read(func(v *view) error { out, err = v.ListUpcomingStartingBefore(ctx, t); return err })
	return out, err
}

func (s *Store) GetBet(ctx context.Context, id string) (b *market.Bet, err error) {
	err = s.read(func(v *view) error { b, err = v.GetBet(ctx, id); return err })
	return b, err
}

func (s *Store) FindBet(ctx context.Context, userID, matchID string) (b *market.Bet, err error) {
	err = s.read(func(v *view) error { b, err = v.FindBet(ctx, userID, matchID); return err })
	return b, err
}

func (s *Store) BetExists(ctx context.Context, userID, matchID string) (ok bool, err error) {
	err = s.read(func(v *view) error { ok, err = v.BetExists(ctx, userID, matchID); return err })
	return ok, err
}

func (s *Store) ListBetsByMatch(ctx context.Context, matchID string) (out []market.Bet, err error) {
	err = s.read(func(v *view) error { out, err = v.ListBetsByMatch(ctx, matchID); return err })
	return out, err
}

func (s *Store) InsertBet(ctx context.Context, b *market.Bet) error {
	return s.write(func(v *view) error { return v.InsertBet(ctx, b) })
}

func (s *Store) SaveBetSettlement(ctx context.Context, b *market.Bet) error {
	return s.write(func(v *view) error { return v.SaveBetSettlement(ctx, b) })
}

func (s *Store) GetAccount(ctx context.Context, userID string) (a *market.Account, err error) {
	err = s.read(func(v *view) error { a, err = v.GetAccount(ctx, userID); return err })
	return a, err
}

func (s *Store) DebitAccount(ctx context.Context, userID string, amount decimal.Decimal, ref string) error {
	return s.write(func(v *view) error { return v.DebitAccount(ctx, userID, amount, ref) })
}

func (s *Store) CreditAccount(ctx context.Context, userID string, amount decimal.Decimal, ref string) error {
	return s.write(func(v *view) error { return v.CreditAccount(ctx, userID, amount, ref) })
}

func (s *Store) EnsureAccount(ctx context.Context, userID string) error {
	return s.write(func(v *view) error { return v.EnsureAccount(ctx, userID) })
}

// view opera diretamente sobre um state; dentro de WithTx é a cópia de trabalho.
type view struct{ st *state }

func (v *view) GetMatch(_ context.Context, id string) (*market.Match, error) {
	m, ok := v.st.matches[id]
	if !ok {
		return nil, market.ErrMatchNotFound
	}
	c := m.Clone()
	return &c, nil
}

func (v *view) LockMatch(ctx context.Context, id string) (*market.Match, error) {
	return v.GetMatch(ctx, id)
}

func (v *view) InsertMatch(_ context.Context, m *market.Match) error {
	if _, ok := v.st.matches[m.ID]; ok {
		return market.ErrMatchExists
	}
	v.st.matches[m.ID] = m.Clone()
	return nil
}

func (v *view) SaveMatch(_ context.Context, m *market.Match) error {
	if _, ok := v.st.matches[m.ID]; !ok {
		return market.ErrMatchNotFound
	}
	v.st.matches[m.ID] = m.Clone()
	return nil
}

func (v *view) ListUpcomingStartingBefore(_ context.Context, t time.Time) ([]market.Match, error) {
	var out []market.Match
	for _, m := range v.st.matches {
		if m.Status == market.StatusUpcoming && !m.StartTime.After(t) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (v *view) GetBet(_ context.Context, id string) (*market.Bet, error) {
	b, ok := v.st.bets[id]
	if !ok {
		return nil, market.ErrBetNotFound
	}
	c := b.Clone()
	return &c, nil
}

func (v *view) FindBet(_ context.Context, userID, matchID string) (*market.Bet, error) {
	for _, id := range v.st.betOrder {
		b := v.st.bets[id]
		if b.UserID == userID && b.MatchID == matchID {
			c := b.Clone()
			return &c, nil
		}
	}
	return nil, market.ErrBetNotFound
}

func (v *view) BetExists(ctx context.Context, userID, matchID string) (bool, error) {
	_, err := v.FindBet(ctx, userID, matchID)
	if err == market.ErrBetNotFound {
		return false, nil
	}
	return err == nil, err
}

func (v *view) ListBetsByMatch(_ context.Context, matchID string) ([]market.Bet, error) {
	var out []market.Bet
	for _, id := range v.st.betOrder {
		if b := v.st.bets[id]; b.MatchID == matchID {
			out = append(out, b.Clone())
		}
	}
	return out, nil
}

func (v *view) InsertBet(ctx context.Context, b *market.Bet) error {
	exists, _ := v.BetExists(ctx, b.UserID, b.MatchID)
	if _, dup := v.st.bets[b.ID]; dup || exists {
		return market.ErrDuplicateBet
	}
	v.st.bets[b.ID] = b.Clone()
	v.st.betOrder = append(v.st.betOrder, b.ID)
	return nil
}

// SaveBetSettlement só altera status/recompensa; stakes e odds ficam como estavam.
func (v *view) SaveBetSettlement(_ context.Context, b *market.Bet) error {
	cur, ok := v.st.bets[b.ID]
	if !ok {
		return market.ErrBetNotFound
	}
	cur = cur.Clone()
	for i := range cur.Predictions {
		if i < len(b.Predictions) {
			cur.Predictions[i].Status = b.Predictions[i].Status
			cur.Predictions[i].Reward = b.Predictions[i].Reward
		}
	}
	cur.TotalReward = b.TotalReward
	cur.UpdatedAt = b.UpdatedAt
	v.st.bets[b.ID] = cur
	return nil
}

func (v *view) GetAccount(_ context.Context, userID string) (*market.Account, error) {
	bal, ok := v.st.accounts[userID]
	if !ok {
		return nil, market.ErrAccountNotFound
	}
	return &market.Account{UserID: userID, Balance: bal}, nil
}

func (v *view) DebitAccount(_ context.Context, userID string, amount decimal.Decimal, ref string) error {
	bal, ok := v.st.accounts[userID]
	if !ok {
		return market.ErrAccountNotFound
	}
	if bal.LessThan(amount) {
		return market.ErrInsufficientFunds
	}
	v.st.accounts[userID] = bal.Sub(amount)
	v.st.ledger = append(v.st.ledger, LedgerEntry{UserID: userID, Kind: "DEBIT", Amount: amount, Ref: ref})
	return nil
}

func (v *view) CreditAccount(_ context.Context, userID string, amount decimal.Decimal, ref string) error {
	bal, ok := v.st.accounts[userID]
	if !ok {
		return market.ErrAccountNotFound
	}
	v.st.accounts[userID] = bal.Add(amount)
	v.st.ledger = append(v.st.ledger, LedgerEntry{UserID: userID, Kind: "CREDIT", Amount: amount, Ref: ref})
	return nil
}

func (v *view) EnsureAccount(_ context.Context, userID string) error {
	if _, ok := v.st.accounts[userID]; !ok {
		v.st.accounts[userID] = decimal.Zero
	}
	return nil
}
