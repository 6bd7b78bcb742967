package notify

import (
	"context"
	"errors"
	"fmt"

	"storefront/pkg/mail"
	"storefront/pkg/render"
)

// MailNotifier renders the email templates and hands them to a mail sender.
type MailNotifier struct {
	renderer *render.Engine
	sender   mail.Sender
}

// NewMailNotifier wires renderer and sender.
func NewMailNotifier(renderer *render.Engine, sender mail.Sender) (*MailNotifier, error) {
	if renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	return &MailNotifier{renderer: renderer, sender: sender}, nil
}

func (n *MailNotifier) SendPurchaseReceipt(ctx context.Context, receipt PurchaseReceipt) error {
	body, err := n.renderer.Render(render.PurchaseReceipt, receipt)
	if err != nil {
		return fmt.Errorf("render purchase receipt: %w", err)
	}
	return n.sender.Send(ctx, mail.Message{To: receipt.To, Subject: PurchaseReceiptSubject, HTML: body})
}

func (n *MailNotifier) SendOrderHistory(ctx context.Context, history OrderHistory) error {
	body, err := n.renderer.Render(render.OrderHistory, history)
	if err != nil {
		return fmt.Errorf("render order history: %w", err)
	}
	return n.sender.Send(ctx, mail.Message{To: history.To, Subject: OrderHistorySubject, HTML: body})
}
