package market

import (
	"errors"
	"fmt"
)

type ErrorKind string

// Admissão
const (
	KindMatchNotFound         ErrorKind = "MATCH_NOT_FOUND"
	KindBettingClosed         ErrorKind = "BETTING_CLOSED"
	KindNoPredictions         ErrorKind = "NO_PREDICTIONS"
	KindInvalidBetAmount      ErrorKind = "INVALID_BET_AMOUNT"
	KindInvalidPredictionType ErrorKind = "INVALID_PREDICTION_TYPE"
	KindInvalidChoice         ErrorKind = "INVALID_CHOICE"
	KindInsufficientFunds     ErrorKind = "INSUFFICIENT_FUNDS"
	KindDuplicateBet          ErrorKind = "DUPLICATE_BET"
	KindInvalidData           ErrorKind = "INVALID_DATA"
	KindInvalidTeam           ErrorKind = "INVALID_TEAM"
)

// Estado
const (
	KindInvalidMatchStatus  ErrorKind = "INVALID_MATCH_STATUS"
	KindResultsNotCompleted ErrorKind = "RESULTS_NOT_COMPLETED"
	KindAlreadyDistributed  ErrorKind = "ALREADY_DISTRIBUTED"
)

// Entidades secundárias
const (
	KindBetNotFound          ErrorKind = "BET_NOT_FOUND"
	KindNotificationNotFound ErrorKind = "NOTIFICATION_NOT_FOUND"
)

// Erros devolvidos pelos stores
var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrBetNotFound       = errors.New("bet not found")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateBet      = errors.New("bet already exists for user and match")
	ErrMatchExists       = errors.New("match already exists")
	ErrLockHeld          = errors.New("lock held by another process")
)

// Error é um erro esperado (admissão/estado/não encontrado) que o chamador pode tratar pelo Kind.
// Qualquer outro erro é interno e sobe sem tratamento.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	e := newError(kind, format, args...)
	e.Err = err
	return e
}

// KindOf extrai o Kind de err; ok=false para erros internos.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
