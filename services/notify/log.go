package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the log instead of sending them. It backs local
// runs without an SMTP relay. Credential ids are bearer tokens, so download links only
// appear at debug level.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) SendPurchaseReceipt(_ context.Context, receipt PurchaseReceipt) error {
	n.logger.Info().
		Str("order_id", receipt.Order.ID.String()).
		Msg("purchase receipt")
	n.logger.Debug().
		Str("order_id", receipt.Order.ID.String()).
		Str("download_url", receipt.DownloadURL).
		Msg("purchase receipt link")
	return nil
}

func (n *LogNotifier) SendOrderHistory(_ context.Context, history OrderHistory) error {
	orders := zerolog.Arr()
	urls := zerolog.Arr()
	for _, line := range history.Orders {
		orders.Str(line.Order.ID.String())
		urls.Str(line.DownloadURL)
	}
	n.logger.Info().
		Array("order_ids", orders).
		Msg("order history")
	n.logger.Debug().
		Array("download_urls", urls).
		Msg("order history links")
	return nil
}
