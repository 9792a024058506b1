package console

import (
	"errors"

	"grimm.is/iwaf/internal/iplist"
)

// Sentinel errors.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrUnconfirmed  = errors.New("confirmation required")
)

// Kind classifies an operation's result.
type Kind string

const (
	KindSuccess     Kind = "success"
	KindDuplicate   Kind = "duplicate"
	KindInvalid     Kind = "invalid"
	KindRemoved     Kind = "removed"
	KindInfo        Kind = "info"
	KindUnconfirmed Kind = "unconfirmed"
)

// Outcome is what every user operation reports back. The same message is
// pushed to the notification stack with the same severity.
type Outcome struct {
	Kind     Kind   `json:"kind"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Err returns the sentinel error matching the outcome, or nil.
func (o Outcome) Err() error {
	switch o.Kind {
	case KindInvalid:
		return ErrInvalidInput
	case KindDuplicate:
		return ErrDuplicate
	case KindUnconfirmed:
		return ErrUnconfirmed
	}
	return nil
}

func kindFor(r iplist.Result) Kind {
	switch r {
	case iplist.Added:
		return KindSuccess
	case iplist.Duplicate:
		return KindDuplicate
	case iplist.Invalid:
		return KindInvalid
	}
	return KindRemoved
}
