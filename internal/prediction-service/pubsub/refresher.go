package pubsub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/radieske/esports-prediction-poc/internal/market"
	"github.com/radieske/esports-prediction-poc/pkg/contracts/events"
)

type Invalidator interface {
	Invalidate(ctx context.Context, matchID string) error
}

type Publisher interface {
	PublishPoolUpdate(ctx context.Context, u events.PoolUpdate) error
}

// Source é o pedaço do store usado para montar o snapshot.
type Source interface {
	GetMatch(ctx context.Context, id string) (*market.Match, error)
	ListBetsByMatch(ctx context.Context, matchID string) ([]market.Bet, error)
}

// PoolRefresher propaga uma mudança de estado da partida fora da API:
// invalida a cotação em cache e publica o snapshot dos pools.
// Cache e Publisher podem ficar nil.
type PoolRefresher struct {
	Source    Source
	Cache     Invalidator
	Publisher Publisher
	Now       func() time.Time
}

func (p *PoolRefresher) Snapshot(ctx context.Context, matchID string) (events.PoolUpdate, error) {
	m, err := p.Source.GetMatch(ctx, matchID)
	if err != nil {
		return events.PoolUpdate{}, err
	}
	bets, err := p.Source.ListBetsByMatch(ctx, matchID)
	if err != nil {
		return events.PoolUpdate{}, err
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return BuildPoolUpdate(m, bets, now().UTC()), nil
}

// MatchChanged invalida e publica; uma falha não impede a outra etapa.
func (p *PoolRefresher) MatchChanged(ctx context.Context, matchID string) error {
	var errs []error
	if p.Cache != nil {
		if err := p.Cache.Invalidate(ctx, matchID); err != nil {
			errs = append(errs, fmt.Errorf("invalidate odds cache: %w", err))
		}
	}
	if p.Publisher != nil {
		u, err := p.Snapshot(ctx, matchID)
		if err == nil {
			err = p.Publisher.PublishPoolUpdate(ctx, u)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("publish pool update: %w", err))
		}
	}
	return errors.Join(errs...)
}
