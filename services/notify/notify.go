// Package notify tells customers about purchases and order history.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	PurchaseReceiptSubject = "Comprovante de Pagamento"
	OrderHistorySubject    = "Histórico de Pedidos"
)

// ProductSummary is the part of a product shown in emails.
type ProductSummary struct {
	Name        string
	Description string
	ImageURL    string
}

// OrderSummary is the part of an order shown in emails.
type OrderSummary struct {
	ID               uuid.UUID
	CreatedAt        time.Time
	PricePaidInCents int64
}

// Line is one order with a freshly issued download link.
type Line struct {
	Product      ProductSummary
	Order        OrderSummary
	CredentialID uuid.UUID
	DownloadURL  string
}

// PurchaseReceipt is sent once a charge has been fulfilled.
type PurchaseReceipt struct {
	To string
	Line
}

// OrderHistory lists every order of a customer.
type OrderHistory struct {
	To     string
	Orders []Line
}

// Notifier delivers customer notifications.
type Notifier interface {
	SendPurchaseReceipt(ctx context.Context, receipt PurchaseReceipt) error
	SendOrderHistory(ctx context.Context, history OrderHistory) error
}
