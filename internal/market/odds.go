package market

import "github.com/shopspring/decimal"

var (
	// CommissionRate é a fração retida de cada pool antes de pagar os vencedores (5%).
	CommissionRate = decimal.RequireFromString("0.05")

	BaseOdds = decimal.RequireFromString("2.00")  // pool vazio
	MinOdds  = decimal.RequireFromString("1.10")  // piso
	MaxOdds  = decimal.RequireFromString("10.00") // teto e opção sem apostas

	payoutRate = decimal.NewFromInt(1).Sub(CommissionRate)
)

// ComputeOdds calcula a odd pari-mutuel atual de (typeTag, choice) a partir do pool do tipo
// e das apostas já existentes na partida. Não tem efeitos colaterais; tipo desconhecido
// é tratado como pool vazio.
func ComputeOdds(m *Match, bets []Bet, typeTag, choice string) decimal.Decimal {
	pt := m.PredictionType(typeTag)
	if pt == nil || pt.RewardPool == 0 {
		return BaseOdds
	}

	optionPool := OptionStake(bets, typeTag, choice)
	if optionPool == 0 {
		return MaxOdds
	}

	return parimutuelOdds(pt.RewardPool, optionPool)
}

// (typePool / optionPool) * (1 - comissão), limitado a [1.10, 10.00], 2 casas
func parimutuelOdds(typePool, optionPool int64) decimal.Decimal {
	odds := decimal.NewFromInt(typePool).
		Div(decimal.NewFromInt(optionPool)).
		Mul(payoutRate)

	if odds.LessThan(MinOdds) {
		odds = MinOdds
	}
	if odds.GreaterThan(MaxOdds) {
		odds = MaxOdds
	}
	return odds.Round(2)
}

// OptionStake soma o valor apostado em (typeTag, choice) em todas as apostas.
func OptionStake(bets []Bet, typeTag, choice string) int64 {
	var sum int64
	for _, b := range bets {
		for _, p := range b.Predictions {
			if p.Type == typeTag && p.Choice == choice {
				sum += p.BetAmount
			}
		}
	}
	return sum
}

// QuoteMatch devolve a odd corrente de todas as opções de todos os tipos.
func QuoteMatch(m *Match, bets []Bet) map[string]map[string]decimal.Decimal {
	out := make(map[string]map[string]decimal.Decimal, len(m.PredictionTypes))
	for _, pt := range m.PredictionTypes {
		opts := make(map[string]decimal.Decimal, len(pt.Options))
		for _, o := range pt.Options {
			opts[o] = ComputeOdds(m, bets, pt.Type, o)
		}
		out[pt.Type] = opts
	}
	return out
}
