package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/account"

	"tutorbook/internal/app/policies"
)

var ErrStripeKeyMissing = errors.New("payout: stripe secret key missing")

// AccountFetcher is the slice of the Stripe account API the port needs.
type AccountFetcher interface {
	GetByID(id string, params *stripe.AccountParams) (*stripe.Account, error)
}

// StripeConnect reports a provider ready when its connected account can both take charges and
// receive payouts. Providers without a mapped account are not ready.
type StripeConnect struct {
	Accounts map[string]string
	Client   AccountFetcher
	Logger   *slog.Logger
}

func NewStripeConnect(secretKey string, accounts map[string]string, logger *slog.Logger) (*StripeConnect, error) {
	if secretKey == "" {
		return nil, ErrStripeKeyMissing
	}
	client := &account.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
	return &StripeConnect{Accounts: accounts, Client: client, Logger: logger}, nil
}

func (s *StripeConnect) IsPayoutReady(ctx context.Context, providerID string) (bool, error) {
	accountID, ok := s.Accounts[providerID]
	if !ok || accountID == "" {
		return false, nil
	}
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct, err := s.Client.GetByID(accountID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			s.logger().Warn("stripe account missing", "provider_id", providerID, "account_id", accountID)
			return false, nil
		}
		return false, fmt.Errorf("payout: fetch stripe account: %w", err)
	}
	return acct.ChargesEnabled && acct.PayoutsEnabled, nil
}

func (s *StripeConnect) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

var _ policies.PayoutPort = (*StripeConnect)(nil)
