package market

import (
	"sort"
	"strings"
)

// Resolver decide se uma escolha venceu dado o resultado do draft.
type Resolver func(choice string, r DraftResults) bool

type prefixRule struct {
	prefix   string
	resolver Resolver
}

// RuleSet mapeia tags de tipo para resolvedores: primeiro por tag exata,
// depois pelo prefixo mais longo. Tag sem regra perde.
type RuleSet struct {
	exact    map[string]Resolver
	prefixes []prefixRule
}

func NewRuleSet() *RuleSet {
	return &RuleSet{exact: make(map[string]Resolver)}
}

func (rs *RuleSet) Register(tag string, r Resolver) *RuleSet {
	rs.exact[tag] = r
	return rs
}

func (rs *RuleSet) RegisterPrefix(prefix string, r Resolver) *RuleSet {
	rs.prefixes = append(rs.prefixes, prefixRule{prefix: prefix, resolver: r})
	sort.SliceStable(rs.prefixes, func(i, j int) bool {
		return len(rs.prefixes[i].prefix) > len(rs.prefixes[j].prefix)
	})
	return rs
}

func (rs *RuleSet) Lookup(tag string) (Resolver, bool) {
	if r, ok := rs.exact[tag]; ok {
		return r, true
	}
	for _, p := range rs.prefixes {
		if strings.HasPrefix(tag, p.prefix) {
			return p.resolver, true
		}
	}
	return nil, false
}

// Resolve devolve won/lost para a predição.
func (rs *RuleSet) Resolve(tag, choice string, r DraftResults) PredictionStatus {
	if res, ok := rs.Lookup(tag); ok && res(choice, r) {
		return PredictionWon
	}
	return PredictionLost
}

// Equals vence quando a escolha é igual ao campo (campo vazio nunca vence).
func Equals(field func(DraftResults) string) Resolver {
	return func(choice string, r DraftResults) bool {
		v := field(r)
		return v != "" && v == choice
	}
}

// MemberOf vence quando a escolha está no conjunto do campo.
func MemberOf(field func(DraftResults) []string) Resolver {
	return func(choice string, r DraftResults) bool {
		for _, v := range field(r) {
			if v != "" && v == choice {
				return true
			}
		}
		return false
	}
}

// DefaultRules é a tabela de regras de draft (bans, picks e herói mais banido).
func DefaultRules() *RuleSet {
	return NewRuleSet().
		Register("first_ban_team1", Equals(func(r DraftResults) string { return r.FirstBan.Team1 })).
		Register("first_ban_team2", Equals(func(r DraftResults) string { return r.FirstBan.Team2 })).
		Register("first_pick_team1", Equals(func(r DraftResults) string { return r.FirstPick.Team1 })).
		Register("first_pick_team2", Equals(func(r DraftResults) string { return r.FirstPick.Team2 })).
		Register("most_banned", Equals(func(r DraftResults) string { return r.MostBanned })).
		RegisterPrefix("pick_team1_", MemberOf(func(r DraftResults) []string { return r.Picks.Team1 })).
		RegisterPrefix("pick_team2_", MemberOf(func(r DraftResults) []string { return r.Picks.Team2 }))
}
