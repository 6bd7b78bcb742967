package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/pkg/bus"
	"storefront/services/catalog"
	"storefront/services/credentials"
	"storefront/services/models"
	"storefront/services/notify"
	"storefront/services/payments"
)

// ErrInvalidCharge marks a well signed event that cannot be fulfilled.
var ErrInvalidCharge = errors.New("invalid charge")

// Outcome reports what happened to an event.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
)

// Fulfillment is the result of handling one event.
type Fulfillment struct {
	Outcome    Outcome
	Order      models.Order
	Credential credentials.Credential
	Notified   bool
}

// HandleEvent fulfils charge.succeeded events and ignores every other type.
func (s *Service) HandleEvent(ctx context.Context, event payments.Event) (Fulfillment, error) {
	if event.Type != payments.ChargeSucceeded {
		s.logger.Info().Str("event_id", event.ID).Str("type", event.Type).Msg("webhook ignored")
		return Fulfillment{Outcome: OutcomeIgnored}, nil
	}
	return s.FulfillCharge(ctx, event)
}

// FulfillCharge records the purchase and issues a download credential in one transaction,
// then sends the receipt. Each event id is fulfilled at most once; later deliveries
// report OutcomeDuplicate. Receipt delivery failures are logged, not returned.
func (s *Service) FulfillCharge(ctx context.Context, event payments.Event) (Fulfillment, error) {
	if event.ID == "" {
		return Fulfillment{}, fmt.Errorf("%w: event id is missing", ErrInvalidCharge)
	}

	charge, err := payments.DecodeCharge(event)
	if err != nil {
		return Fulfillment{}, fmt.Errorf("%w: %v", ErrInvalidCharge, err)
	}
	if charge.Email == "" {
		return Fulfillment{}, fmt.Errorf("%w: billing email is missing", ErrInvalidCharge)
	}
	if charge.AmountCents < 0 {
		return Fulfillment{}, fmt.Errorf("%w: negative amount %d", ErrInvalidCharge, charge.AmountCents)
	}
	productID, err := uuid.Parse(charge.ProductID)
	if err != nil {
		return Fulfillment{}, fmt.Errorf("%w: product id %q is malformed", ErrInvalidCharge, charge.ProductID)
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return Fulfillment{}, fmt.Errorf("%w: product %s does not exist", ErrInvalidCharge, productID)
		}
		return Fulfillment{}, fmt.Errorf("load product: %w", err)
	}

	now := s.now()
	result := Fulfillment{Outcome: OutcomeProcessed}

	err = s.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker := models.WebhookEvent{
			ID:          event.ID,
			Provider:    payments.Provider,
			Type:        event.Type,
			Payload:     datatypes.JSON(event.Raw),
			ProcessedAt: now,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&marker)
		if res.Error != nil {
			return fmt.Errorf("record event: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			result.Outcome = OutcomeDuplicate
			return nil
		}

		order, err := s.ledger.WithTx(tx).RecordPurchase(ctx, charge.Email, product.ID, charge.AmountCents)
		if err != nil {
			return err
		}
		cred, err := s.credentials.WithTx(tx).Issue(ctx, product.ID, now)
		if err != nil {
			return err
		}

		result.Order = order
		result.Credential = cred
		return nil
	})
	if err != nil {
		return Fulfillment{}, err
	}

	logger := s.logger.With().Str("event_id", event.ID).Logger()
	if result.Outcome == OutcomeDuplicate {
		logger.Info().Msg("webhook already processed")
		return result, nil
	}

	logger = logger.With().
		Str("order_id", result.Order.ID.String()).
		Str("product_id", product.ID.String()).
		Time("link_expires_at", result.Credential.ExpiresAt).
		Logger()

	receipt := notify.PurchaseReceipt{
		To:   charge.Email,
		Line: s.line(product, result.Order, result.Credential),
	}
	if err := s.notifier.SendPurchaseReceipt(ctx, receipt); err != nil {
		logger.Error().Err(err).Msg("send purchase receipt")
	} else {
		result.Notified = true
	}

	s.publish(ctx, bus.SubjectOrderFulfilled, bus.OrderFulfilled{
		EventID:       event.ID,
		OrderID:       result.Order.ID,
		UserID:        result.Order.UserID,
		ProductID:     product.ID,
		LinkExpiresAt: result.Credential.ExpiresAt,
		AmountCents:   result.Order.PricePaidInCents,
		Notified:      result.Notified,
		OccurredAt:    now,
	})

	logger.Info().Int64("amount_cents", result.Order.PricePaidInCents).Bool("notified", result.Notified).Msg("charge fulfilled")
	return result, nil
}

func (s *Service) line(product catalog.Product, order models.Order, cred credentials.Credential) notify.Line {
	return notify.Line{
		Product: notify.ProductSummary{
			Name:        product.Name,
			Description: product.Description,
			ImageURL:    s.absolute(product.ImagePath),
		},
		Order: notify.OrderSummary{
			ID:               order.ID,
			CreatedAt:        order.CreatedAt,
			PricePaidInCents: order.PricePaidInCents,
		},
		CredentialID: cred.ID,
		DownloadURL:  s.DownloadURL(cred.ID.String()),
	}
}
