package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"reportify-backend-go/internal/models"
)

// StripeConfig holds the settings of the Stripe provider.
type StripeConfig struct {
	SecretKey         string
	WebhookSecret     string
	Currency          string
	PremiumPriceCents int64
	BoostPriceCents   int64
	ClientURL         string
}

// StripeProvider implements Provider with Stripe Checkout.
type StripeProvider struct {
	sessions *session.Client
	cfg      StripeConfig
	logger   *zap.Logger
}

// NewStripeProvider creates a StripeProvider with its own API key rather than
// the package-global stripe.Key.
func NewStripeProvider(cfg StripeConfig, logger *zap.Logger) *StripeProvider {
	return &StripeProvider{
		sessions: &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.SecretKey},
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateCheckoutSession starts a one-off payment for premium or a boost.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	var (
		amount int64
		name   string
	)
	switch req.Kind {
	case models.PaymentPremium:
		amount, name = p.cfg.PremiumPriceCents, "Reportify Premium"
	case models.PaymentBoost:
		amount, name = p.cfg.BoostPriceCents, "Boost issue: "+req.IssueTitle
	default:
		return nil, fmt.Errorf("unknown checkout kind %q", req.Kind)
	}

	base := strings.TrimRight(p.cfg.ClientURL, "/")
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(req.Email),
		SuccessURL:    stripe.String(fmt.Sprintf("%s/payment-success?kind=%s&session_id={CHECKOUT_SESSION_ID}", base, req.Kind)),
		CancelURL:     stripe.String(base + "/payment-cancelled"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(p.cfg.Currency),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataKind, string(req.Kind))
	params.AddMetadata(MetadataEmail, req.Email)
	if req.IssueID != "" {
		params.AddMetadata(MetadataIssueID, req.IssueID)
	}

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create checkout session: %v", ErrProvider, err)
	}
	p.logger.Info("checkout session created",
		zap.String("sessionId", s.ID),
		zap.String("kind", string(req.Kind)),
		zap.String("email", req.Email))
	return toSession(s), nil
}

// RetrieveSession fetches a checkout session; the returned status comes from
// Stripe, never from the client.
func (p *StripeProvider) RetrieveSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.sessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve checkout session %s: %v", ErrProvider, sessionID, err)
	}
	return toSession(s), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes
// checkout.session.completed events.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*Session, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		p.logger.Debug("ignoring webhook event", zap.String("type", string(event.Type)))
		return nil, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("%w: checkout session in event %s: %v", ErrPayload, event.ID, err)
	}
	return toSession(&s), nil
}

func toSession(s *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		Email:         s.CustomerEmail,
		Amount:        s.AmountTotal,
		Currency:      string(s.Currency),
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	if out.Email == "" && s.CustomerDetails != nil {
		out.Email = s.CustomerDetails.Email
	}
	if s.Metadata != nil {
		out.Kind = models.PaymentType(s.Metadata[MetadataKind])
		out.IssueID = s.Metadata[MetadataIssueID]
		if out.Email == "" {
			out.Email = s.Metadata[MetadataEmail]
		}
	}
	return out
}
