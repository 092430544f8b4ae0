package admission

import (
	"net/http"

	"github.com/shopspring/decimal"
)

// Kind classifies admission failures. The HTTP layer maps kinds to statuses;
// nothing in the core retries automatically, recovery is always the caller's.
type Kind string

const (
	KindValidation            Kind = "validation"
	KindNotFound              Kind = "not_found"
	KindConflict              Kind = "conflict"
	KindInsufficientLiquidity Kind = "insufficient_liquidity"
	KindNeedsWebsite          Kind = "needs_website"
	KindRateLimited           Kind = "rate_limited"
	KindUpstream              Kind = "upstream"
	KindConfig                Kind = "config"
)

// Error is a terminal admission failure. The optional fields let the caller
// act on the rejection: link to the conflicting record, prompt for a website.
type Error struct {
	Kind         Kind
	Message      string
	NeedsWebsite bool
	Symbol       string
	Liquidity    *decimal.Decimal
	TokenID      *int64
}

func (e *Error) Error() string {
	return e.Message
}

// HTTPStatus maps the failure kind onto the boundary status taxonomy.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindInsufficientLiquidity, KindNeedsWebsite:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}
