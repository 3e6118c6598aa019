package funding

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	decisionApproved = "approved"
	decisionDeclined = "declined"
)

// Acquirer represents a connector to an external card processor.
type Acquirer interface {
	AuthorizeCardIn(ctx context.Context, input CardInAuthorization) (AuthorizationDecision, error)
	AuthorizeCardOut(ctx context.Context, input CardOutAuthorization) (AuthorizationDecision, error)
}

// AuthorizationDecision captures the response from the acquirer.
type AuthorizationDecision struct {
	Reference string
	Status    string
}

// CardInAuthorization encapsulates details needed for a card top-up authorization.
type CardInAuthorization struct {
	CardNumber string
	Expiry     string
	CVV        string
	Amount     decimal.Decimal
}

// CardOutAuthorization captures data for a push-to-card payout authorization.
type CardOutAuthorization struct {
	CardNumber string
	Amount     decimal.Decimal
}

// StaticAcquirer simulates an acquirer integration. Requests above Limit are
// declined; a zero Limit approves everything.
type StaticAcquirer struct {
	Limit decimal.Decimal
}

// AuthorizeCardIn approves the funding request with a synthetic reference.
func (a StaticAcquirer) AuthorizeCardIn(_ context.Context, in CardInAuthorization) (AuthorizationDecision, error) {
	return a.decide(in.Amount), nil
}

// AuthorizeCardOut approves the withdrawal request with a synthetic reference.
func (a StaticAcquirer) AuthorizeCardOut(_ context.Context, in CardOutAuthorization) (AuthorizationDecision, error) {
	return a.decide(in.Amount), nil
}

func (a StaticAcquirer) decide(amount decimal.Decimal) AuthorizationDecision {
	if !a.Limit.IsZero() && amount.GreaterThan(a.Limit) {
		return AuthorizationDecision{Reference: uuid.NewString(), Status: decisionDeclined}
	}
	return AuthorizationDecision{Reference: uuid.NewString(), Status: decisionApproved}
}
