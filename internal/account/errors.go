package account

import (
	"errors"
	"fmt"
)

// Kind classifies account errors so callers can branch without string matching.
type Kind int

const (
	// KindPrecondition is invalid caller input. Never retried.
	KindPrecondition Kind = iota + 1
	// KindChainQuery is a failed read against the chain connection.
	KindChainQuery
	// KindUnsupported is an operation this account model does not implement.
	KindUnsupported
	// KindEncoding is call data that cannot be serialized.
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindChainQuery:
		return "chain query"
	case KindUnsupported:
		return "unsupported operation"
	case KindEncoding:
		return "encoding"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrPrecondition = &Error{Kind: KindPrecondition}
	ErrChainQuery   = &Error{Kind: KindChainQuery}
	ErrUnsupported  = &Error{Kind: KindUnsupported}
	ErrEncoding     = &Error{Kind: KindEncoding}
)

// Error is the structured error returned by every account operation.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "predict address"
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String() + " error"
	case e.Err == nil:
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var errValueOutOfRange = errors.New("call value must be within uint256 range")

func preconditionError(op, msg string) error {
	return &Error{Kind: KindPrecondition, Op: op, Err: errors.New(msg)}
}

func chainQueryError(op string, err error) error {
	return &Error{Kind: KindChainQuery, Op: op, Err: err}
}

func unsupportedError(op string) error {
	return &Error{Kind: KindUnsupported, Op: op}
}

func encodingError(op string, err error) error {
	return &Error{Kind: KindEncoding, Op: op, Err: err}
}
