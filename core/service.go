package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cidali/bookstore/entitlements"
	"github.com/cidali/bookstore/mpesa"
	"github.com/sirupsen/logrus"
)

// PaymentGateway submits push-payment requests to the provider.
type PaymentGateway interface {
	STKPush(ctx context.Context, req mpesa.STKPushRequest) (json.RawMessage, error)
}

// Notifier delivers the store's transactional messages. Implementations
// should be best-effort; the Service treats a failed send like any other
// fault at the request boundary.
type Notifier interface {
	PaymentInitiated(phone string, amount float64, buyerEmail string) error
	DeliveryInitiated(phone string, amount float64, address string) error
	PurchaseReceived(phone string, amount float64, buyerEmail, link string) error
	BuyerAccessLink(to, link string) error
}

// Options fixes the document being sold and how access links are built.
type Options struct {
	EbookFile     string
	TokenTTL      time.Duration
	PublicBaseURL string
}

// Service orchestrates payments, entitlement minting, and notifications.
type Service struct {
	store    entitlements.Store
	gateway  PaymentGateway
	notifier Notifier
	opts     Options
	log      *logrus.Logger
}

// NewService wires the service. A nil logger gets the logrus default.
func NewService(store entitlements.Store, gateway PaymentGateway, notifier Notifier, opts Options, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * time.Minute
	}
	return &Service{store: store, gateway: gateway, notifier: notifier, opts: opts, log: log}
}

// InitiatePayment notifies the admin inbox and triggers an STK push for a
// book purchase. The provider's raw response is passed through.
func (s *Service) InitiatePayment(ctx context.Context, phone string, amount float64, email string) (json.RawMessage, error) {
	if err := s.notifier.PaymentInitiated(phone, amount, email); err != nil {
		return nil, fmt.Errorf("send initiation notice: %w", err)
	}
	s.log.WithFields(logrus.Fields{"phone": phone, "amount": amount}).Info("stk push initiated")

	resp, err := s.gateway.STKPush(ctx, mpesa.STKPushRequest{
		Phone:            phone,
		Amount:           amount,
		AccountReference: "CIDALI Books",
		TransactionDesc:  "Book Purchase",
	})
	if err != nil {
		return nil, fmt.Errorf("stk push: %w", err)
	}
	return resp, nil
}

// ProcessCallback handles a payment confirmation: it resolves the payer,
// mints an entitlement token for the ebook, and sends the notification
// emails carrying the access link. Returns the link on success.
//
// If the token is minted but a send fails, the token stays valid; there is
// no rollback.
func (s *Service) ProcessCallback(ctx context.Context, body []byte) (string, error) {
	event, err := ParsePaymentEvent(body)
	if err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"phone": event.Phone, "amount": event.Amount}).Info("payment callback received")

	tokenID, err := s.store.Issue(ctx, s.opts.EbookFile, s.opts.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	link := fmt.Sprintf("%s/api/view/%s?token=%s", s.opts.PublicBaseURL, s.opts.EbookFile, tokenID)

	if err := s.notifier.PurchaseReceived(event.Phone, event.Amount, event.Email, link); err != nil {
		return "", fmt.Errorf("send purchase notice: %w", err)
	}
	if event.Email != "" {
		if err := s.notifier.BuyerAccessLink(event.Email, link); err != nil {
			return "", fmt.Errorf("send buyer link: %w", err)
		}
		s.log.WithField("email", event.Email).Info("access link sent to buyer")
	}
	return link, nil
}

// InitiateDelivery notifies the admin inbox and triggers an STK push for a
// delivery fee.
func (s *Service) InitiateDelivery(ctx context.Context, phone, transactionCode, address string, amount float64) (json.RawMessage, error) {
	_ = transactionCode // recorded in the admin flow upstream, not sent to the provider
	if err := s.notifier.DeliveryInitiated(phone, amount, address); err != nil {
		return nil, fmt.Errorf("send delivery notice: %w", err)
	}
	s.log.WithFields(logrus.Fields{"phone": phone, "address": address}).Info("delivery stk push initiated")

	resp, err := s.gateway.STKPush(ctx, mpesa.STKPushRequest{
		Phone:            phone,
		Amount:           amount,
		AccountReference: "CIDALI Books Delivery",
		TransactionDesc:  "Delivery Fee for " + address,
	})
	if err != nil {
		return nil, fmt.Errorf("delivery stk push: %w", err)
	}
	return resp, nil
}
