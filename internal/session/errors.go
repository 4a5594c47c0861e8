package session

import (
	"errors"
	"fmt"

	"github.com/mcdev12/draftroom/internal/ledger"
)

// Class separates how callers should react to a rejected operation.
type Class string

const (
	// ClassValidation marks a rule violation. Retrying the same command
	// will fail again.
	ClassValidation Class = "VALIDATION"
	// ClassConflict marks a command that raced another and lost, e.g. a bid
	// that arrived after settlement. The client should resync and decide.
	ClassConflict Class = "CONFLICT"
	// ClassTransient marks an infrastructure failure. The same command may
	// succeed on retry.
	ClassTransient Class = "TRANSIENT"
)

// Stable reason codes clients can branch on. The human-readable message may
// change; these must not.
const (
	CodeNotYourTurn        = "ERR_NOT_YOUR_TURN"
	CodeNotInProgress      = "ERR_DRAFT_NOT_IN_PROGRESS"
	CodeAlreadyStarted     = "ERR_DRAFT_ALREADY_STARTED"
	CodeCompleted          = "ERR_DRAFT_COMPLETED"
	CodePaused             = "ERR_DRAFT_PAUSED"
	CodeLotOpen            = "ERR_AUCTION_IN_PROGRESS"
	CodeNoLotOpen          = "ERR_NO_ACTIVE_AUCTION"
	CodeLotClosed          = "ERR_AUCTION_CLOSED"
	CodeBidTooLow          = "ERR_BID_TOO_LOW"
	CodeInvalidYears       = "ERR_INVALID_YEARS"
	CodeInvalidAmount      = "ERR_INVALID_AMOUNT"
	CodeInsufficientBudget = "ERR_INSUFFICIENT_BUDGET"
	CodeRosterFull         = "ERR_ROSTER_FULL"
	CodePositionLimit      = "ERR_POSITION_LIMIT"
	CodePlayerTaken        = "ERR_PLAYER_ALREADY_TAKEN"
	CodePlayerUnknown      = "ERR_PLAYER_NOT_FOUND"
	CodeNotRookie          = "ERR_NOT_A_ROOKIE"
	CodeNotParticipant     = "ERR_NOT_A_PARTICIPANT"
	CodeNotAdmin           = "ERR_NOT_ADMIN"
	CodeNothingToUndo      = "ERR_NOTHING_TO_UNDO"
	CodeLotteryDone        = "ERR_LOTTERY_EXHAUSTED"
	CodeLotteryNotRun      = "ERR_LOTTERY_NOT_RUN"
	CodeInternal           = "ERR_INTERNAL"
)

// Error is a rejected session command with a stable code and a class that
// tells the caller whether retrying can help.
type Error struct {
	Code    string
	Class   Class
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func validationErr(code, format string, args ...any) *Error {
	return &Error{Code: code, Class: ClassValidation, Message: fmt.Sprintf(format, args...)}
}

func conflictErr(code, format string, args ...any) *Error {
	return &Error{Code: code, Class: ClassConflict, Message: fmt.Sprintf(format, args...)}
}

func transientErr(cause error, format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Class: ClassTransient, Message: fmt.Sprintf(format, args...), cause: cause}
}

// ledgerErr translates ledger rejections into session errors so clients see
// the same codes regardless of which path hit the limit.
func ledgerErr(err error) *Error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBudget):
		return &Error{Code: CodeInsufficientBudget, Class: ClassValidation, Message: err.Error(), cause: err}
	case errors.Is(err, ledger.ErrRosterFull):
		return &Error{Code: CodeRosterFull, Class: ClassValidation, Message: err.Error(), cause: err}
	case errors.Is(err, ledger.ErrPositionLimit):
		return &Error{Code: CodePositionLimit, Class: ClassValidation, Message: err.Error(), cause: err}
	case errors.Is(err, ledger.ErrUnknownTeam):
		return &Error{Code: CodeNotParticipant, Class: ClassValidation, Message: err.Error(), cause: err}
	default:
		return transientErr(err, "ledger operation failed")
	}
}

// AsError extracts the session error from err, wrapping unknown errors as
// internal so the gateway always has a code to send.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return transientErr(err, "unexpected error")
}
