package market

import "time"

type MatchStatus string

const (
	StatusUpcoming   MatchStatus = "upcoming"
	StatusLive       MatchStatus = "live"
	StatusDraftPhase MatchStatus = "draft_phase"
	StatusCompleted  MatchStatus = "completed"
	StatusCancelled  MatchStatus = "cancelled"
)

// transições permitidas; estados terminais não aparecem como origem
var statusTransitions = map[MatchStatus][]MatchStatus{
	StatusUpcoming:   {StatusLive, StatusDraftPhase, StatusCancelled},
	StatusLive:       {StatusDraftPhase, StatusCompleted, StatusCancelled},
	StatusDraftPhase: {StatusCompleted},
}

// CanTransitionTo informa se a partida pode sair de s para next.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	for _, st := range statusTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

// PredictionType é uma pergunta da partida (ex: "first_ban_team1") com opções fechadas.
// RewardPool e BetsCount só crescem; Closed nunca volta para false.
type PredictionType struct {
	Type       string   `json:"type"`
	Options    []string `json:"options"`
	RewardPool int64    `json:"rewardPool"`
	BetsCount  int64    `json:"betsCount"`
	Closed     bool     `json:"closed"`
}

func (pt *PredictionType) HasOption(choice string) bool {
	for _, o := range pt.Options {
		if o == choice {
			return true
		}
	}
	return false
}

type TeamPair struct {
	Team1 string `json:"team1"`
	Team2 string `json:"team2"`
}

type TeamPicks struct {
	Team1 []string `json:"team1"`
	Team2 []string `json:"team2"`
}

// DraftResults é o payload de resultado enviado pelo admin.
// Campos ausentes ficam vazios e nunca casam com uma escolha.
type DraftResults struct {
	FirstBan   TeamPair  `json:"firstBan"`
	FirstPick  TeamPair  `json:"firstPick"`
	MostBanned string    `json:"mostBanned"`
	Picks      TeamPicks `json:"picks"`
}

type DraftOutcome struct {
	Results     DraftResults `json:"results"`
	Completed   bool         `json:"completed"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

type Match struct {
	ID                 string           `json:"id"`
	Game               string           `json:"game"`
	Team1              string           `json:"team1"`
	Team2              string           `json:"team2"`
	StartTime          time.Time        `json:"startTime"`
	Status             MatchStatus      `json:"status"`
	DraftOutcome       DraftOutcome     `json:"draftOutcome"`
	PredictionTypes    []PredictionType `json:"predictionTypes"`
	RewardsDistributed bool             `json:"rewardsDistributed"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// PredictionType devolve um ponteiro para o tipo dentro da partida (nil se não existir).
func (m *Match) PredictionType(tag string) *PredictionType {
	for i := range m.PredictionTypes {
		if m.PredictionTypes[i].Type == tag {
			return &m.PredictionTypes[i]
		}
	}
	return nil
}

func (m *Match) transition(next MatchStatus) error {
	if !m.Status.CanTransitionTo(next) {
		return newError(KindInvalidMatchStatus, "match %s cannot go from %s to %s", m.ID, m.Status, next)
	}
	m.Status = next
	return nil
}

// Clone faz cópia profunda (slices e ponteiros), usada pelos stores em memória.
func (m Match) Clone() Match {
	out := m
	out.PredictionTypes = make([]PredictionType, len(m.PredictionTypes))
	for i, pt := range m.PredictionTypes {
		pt.Options = append([]string(nil), pt.Options...)
		out.PredictionTypes[i] = pt
	}
	out.DraftOutcome.Results.Picks.Team1 = append([]string(nil), m.DraftOutcome.Results.Picks.Team1...)
	out.DraftOutcome.Results.Picks.Team2 = append([]string(nil), m.DraftOutcome.Results.Picks.Team2...)
	if m.DraftOutcome.CompletedAt != nil {
		t := *m.DraftOutcome.CompletedAt
		out.DraftOutcome.CompletedAt = &t
	}
	return out
}
