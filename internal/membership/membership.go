// Package membership orchestrates the payment flows: a Lightning
// invoice via Strike or a card checkout via Stripe, followed by a
// member record in the pantry members API and a best-effort NIP-05
// claim.
package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zapcooking/backend/internal/kv"
	"github.com/zapcooking/backend/internal/models"
)

const (
	invoiceKeyPrefix = "invoice:"
	hashKeyPrefix    = "hash:"
	sessionKeyPrefix = "session:"

	invoiceTTL = 2 * time.Hour
)

var (
	ErrDisabled     = errors.New("payments are disabled")
	ErrInvalidInput = errors.New("unknown tier or period")
	ErrNotFound     = errors.New("unknown invoice or session")
	ErrNotPaid      = errors.New("payment not completed")
)

type price struct {
	sats  int64
	cents int64
}

// Fixed price table; month offsets below must stay in step with the
// period keys here.
var prices = map[string]map[string]price{
	"basic": {
		"monthly": {sats: 5000, cents: 500},
		"yearly":  {sats: 50000, cents: 5000},
	},
	"premium": {
		"monthly": {sats: 10000, cents: 1000},
		"yearly":  {sats: 100000, cents: 10000},
	},
}

func periodMonths(period string) int {
	if period == "yearly" {
		return 12
	}
	return 1
}

type LightningClient interface {
	CreateReceiveRequest(ctx context.Context, amountSats int64, description string) (*ReceiveRequest, error)
	IsPaid(ctx context.Context, receiveRequestID string) (bool, error)
}

type CheckoutClient interface {
	CreateCheckoutSession(ctx context.Context, amountCents int64, description string, successURL string, cancelURL string) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

type MembersClient interface {
	PutMember(ctx context.Context, member models.Member) error
	GetMember(ctx context.Context, pubkey string) (*models.MembershipState, error)
}

// Claimer registers a NIP-05 name for a pubkey. Claim failures never
// fail a payment.
type Claimer interface {
	Claim(ctx context.Context, name string, pubkey string) error
}

type Service struct {
	enabled   bool
	baseURL   string
	store     kv.Store
	lightning LightningClient
	checkout  CheckoutClient
	members   MembersClient
	claimer   Claimer
	logger    *zap.SugaredLogger
}

func NewService(
	enabled bool,
	baseURL string,
	store kv.Store,
	lightning LightningClient,
	checkout CheckoutClient,
	members MembersClient,
	claimer Claimer,
	logger *zap.SugaredLogger,
) *Service {
	return &Service{
		enabled:   enabled,
		baseURL:   baseURL,
		store:     store,
		lightning: lightning,
		checkout:  checkout,
		members:   members,
		claimer:   claimer,
		logger:    logger,
	}
}

func lookupPrice(tier string, period string) (price, error) {
	periods, ok := prices[tier]
	if !ok {
		return price{}, ErrInvalidInput
	}
	p, ok := periods[period]
	if !ok {
		return price{}, ErrInvalidInput
	}
	return p, nil
}

func (s *Service) storeMetadata(ctx context.Context, meta models.InvoiceMetadata, keys ...string) error {
	value, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("error encoding invoice metadata: %w", err)
	}
	for _, key := range keys {
		if err := s.store.Set(ctx, key, value, invoiceTTL); err != nil {
			return fmt.Errorf("error storing invoice metadata: %w", err)
		}
	}
	return nil
}

func (s *Service) loadMetadata(ctx context.Context, key string) (*models.InvoiceMetadata, error) {
	value, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error reading invoice metadata: %w", err)
	}

	var meta models.InvoiceMetadata
	if err := json.Unmarshal(value, &meta); err != nil {
		return nil, fmt.Errorf("error decoding invoice metadata: %w", err)
	}

	return &meta, nil
}

func (s *Service) CreateLightningInvoice(ctx context.Context, req models.CreateInvoiceReq) (*models.CreateInvoiceRes, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}

	p, err := lookupPrice(req.Tier, req.Period)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("zap.cooking %s membership (%s)", req.Tier, req.Period)
	rr, err := s.lightning.CreateReceiveRequest(ctx, p.sats, description)
	if err != nil {
		return nil, fmt.Errorf("error creating lightning invoice: %w", err)
	}

	meta := models.InvoiceMetadata{
		Pubkey:           req.Pubkey,
		Tier:             req.Tier,
		Period:           req.Period,
		ReceiveRequestID: rr.ReceiveRequestID,
		PaymentHash:      rr.PaymentHash,
		Nip05Name:        req.Nip05Name,
		CreatedAt:        time.Now().UnixMilli(),
	}
	keys := []string{invoiceKeyPrefix + rr.ReceiveRequestID}
	if rr.PaymentHash != "" {
		keys = append(keys, hashKeyPrefix+rr.PaymentHash)
	}
	if err := s.storeMetadata(ctx, meta, keys...); err != nil {
		return nil, err
	}

	return &models.CreateInvoiceRes{
		ReceiveRequestID: rr.ReceiveRequestID,
		Invoice:          rr.Invoice,
		AmountSats:       p.sats,
	}, nil
}

func (s *Service) VerifyLightningPayment(ctx context.Context, receiveRequestID string) (*models.MembershipState, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}

	meta, err := s.loadMetadata(ctx, invoiceKeyPrefix+receiveRequestID)
	if err != nil {
		return nil, err
	}

	paid, err := s.lightning.IsPaid(ctx, receiveRequestID)
	if err != nil {
		return nil, fmt.Errorf("error checking payment state: %w", err)
	}
	if !paid {
		return nil, ErrNotPaid
	}

	return s.activate(ctx, meta, "lightning")
}

// HandleLightningWebhook correlates a settled payment hash back to the
// pending invoice.
func (s *Service) HandleLightningWebhook(ctx context.Context, paymentHash string) error {
	if !s.enabled {
		return ErrDisabled
	}

	meta, err := s.loadMetadata(ctx, hashKeyPrefix+paymentHash)
	if err != nil {
		return err
	}

	_, err = s.activate(ctx, meta, "lightning")
	return err
}

func (s *Service) CreateCheckoutSession(ctx context.Context, req models.CheckoutSessionReq) (*models.CheckoutSessionRes, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}

	p, err := lookupPrice(req.Tier, req.Period)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("zap.cooking %s membership (%s)", req.Tier, req.Period)
	session, err := s.checkout.CreateCheckoutSession(ctx, p.cents, description,
		s.baseURL+"/settings?payment=success", s.baseURL+"/settings?payment=cancelled")
	if err != nil {
		return nil, fmt.Errorf("error creating checkout session: %w", err)
	}

	meta := models.InvoiceMetadata{
		Pubkey:    req.Pubkey,
		Tier:      req.Tier,
		Period:    req.Period,
		Nip05Name: req.Nip05Name,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.storeMetadata(ctx, meta, sessionKeyPrefix+session.ID); err != nil {
		return nil, err
	}

	return &models.CheckoutSessionRes{SessionID: session.ID, URL: session.URL}, nil
}

func (s *Service) CompletePayment(ctx context.Context, sessionID string) (*models.MembershipState, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}

	meta, err := s.loadMetadata(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		return nil, err
	}

	session, err := s.checkout.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error reading checkout session: %w", err)
	}
	if session.PaymentStatus != "paid" {
		return nil, ErrNotPaid
	}

	return s.activate(ctx, meta, "stripe")
}

func (s *Service) Membership(ctx context.Context, pubkey string) (*models.MembershipState, error) {
	state, err := s.members.GetMember(ctx, pubkey)
	if err != nil {
		return nil, fmt.Errorf("error reading membership: %w", err)
	}
	return state, nil
}

// activate computes the subscription end from fixed month offsets,
// posts the member record and then attempts the NIP-05 claim. The
// claim is non-fatal.
func (s *Service) activate(ctx context.Context, meta *models.InvoiceMetadata, paidVia string) (*models.MembershipState, error) {
	expiresAt := time.Now().AddDate(0, periodMonths(meta.Period), 0)

	member := models.Member{
		Pubkey:    meta.Pubkey,
		Tier:      meta.Tier,
		Period:    meta.Period,
		ExpiresAt: expiresAt.UnixMilli(),
		PaidVia:   paidVia,
	}
	if err := s.members.PutMember(ctx, member); err != nil {
		return nil, fmt.Errorf("error posting member record: %w", err)
	}

	if meta.Nip05Name != "" && s.claimer != nil {
		if err := s.claimer.Claim(ctx, meta.Nip05Name, meta.Pubkey); err != nil {
			s.logger.Warnw("NIP-05 auto-claim failed", "name", meta.Nip05Name, "err", err)
		}
	}

	return &models.MembershipState{
		Pubkey:    meta.Pubkey,
		Active:    true,
		Tier:      meta.Tier,
		ExpiresAt: expiresAt.UnixMilli(),
	}, nil
}
