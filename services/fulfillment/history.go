package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"storefront/pkg/bus"
	"storefront/services/catalog"
	"storefront/services/ledger"
	"storefront/services/notify"
)

const (
	MessageHistorySent  = "Verifique seu e-mail para ver seu histórico de pedidos e baixar seus produtos"
	MessageInvalidEmail = "Email invalido"
	MessageEmailFailed  = "Ocorreu um erro ao enviar o seu email, tente novamente"
)

// ErrEmailDeliveryFailed means the history digest could not be handed to the notifier.
var ErrEmailDeliveryFailed = errors.New("order history email delivery failed")

// ValidationErrors maps form fields to their problems.
type ValidationErrors map[string][]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(v[field], ", "))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// HistoryRequest is the order history form.
type HistoryRequest struct {
	Email string `validate:"required,email,max=320"`
}

// HistoryResult is what the customer is told after a successful request.
type HistoryResult struct {
	Message string
}

// EmailOrderHistory mails the customer behind req.Email a fresh link for every order.
// Known and unknown emails get the same result, so callers cannot learn which emails
// belong to customers. Errors are ValidationErrors, ErrEmailDeliveryFailed or
// unclassified persistence failures.
func (s *Service) EmailOrderHistory(ctx context.Context, req HistoryRequest) (HistoryResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.StructCtx(ctx, req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return HistoryResult{}, ValidationErrors{"email": {MessageInvalidEmail}}
		}
		return HistoryResult{}, err
	}

	sent := HistoryResult{Message: MessageHistorySent}

	user, err := s.ledger.FindCustomer(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ledger.ErrCustomerNotFound) {
			return sent, nil
		}
		return HistoryResult{}, fmt.Errorf("load customer: %w", err)
	}
	if len(user.Orders) == 0 {
		return sent, nil
	}

	now := s.now()
	lines := make([]notify.Line, 0, len(user.Orders))
	err = s.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.credentials.WithTx(tx)
		for _, order := range user.Orders {
			cred, err := store.Issue(ctx, order.ProductID, now)
			if err != nil {
				return err
			}
			product := catalog.Product{
				ID:          order.Product.ID,
				Name:        order.Product.Name,
				Description: order.Product.Description,
				ImagePath:   order.Product.ImagePath,
			}
			lines = append(lines, s.line(product, order, cred))
		}
		return nil
	})
	if err != nil {
		return HistoryResult{}, fmt.Errorf("issue credentials: %w", err)
	}

	logger := s.logger.With().Str("user_id", user.ID.String()).Int("orders", len(lines)).Logger()
	if err := s.notifier.SendOrderHistory(ctx, notify.OrderHistory{To: user.Email, Orders: lines}); err != nil {
		logger.Error().Err(err).Msg("send order history")
		return HistoryResult{}, fmt.Errorf("%w: %v", ErrEmailDeliveryFailed, err)
	}

	s.publish(ctx, bus.SubjectHistoryRequested, bus.HistoryRequested{
		UserID:      user.ID,
		Orders:      len(user.Orders),
		Credentials: len(lines),
		OccurredAt:  now,
	})

	logger.Info().Msg("order history sent")
	return sent, nil
}
