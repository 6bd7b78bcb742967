package fulfillment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/bus"
	"storefront/services/models"
	"storefront/services/models/modelstest"
)

func TestEmailOrderHistoryInvalidEmail(t *testing.T) {
	f := newFixture(t)

	for _, input := range []string{"", "   ", "not-an-email", "a@", "@x.com"} {
		t.Run(input, func(t *testing.T) {
			_, err := f.svc.EmailOrderHistory(context.Background(), HistoryRequest{Email: input})
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("EmailOrderHistory() error = %v, want ValidationErrors", err)
			}
			if got := verrs["email"]; len(got) != 1 || got[0] != MessageInvalidEmail {
				t.Fatalf("email errors = %v", got)
			}
		})
	}
	if len(f.notifier.histories) != 0 {
		t.Fatalf("histories = %d, want 0", len(f.notifier.histories))
	}
}

func TestEmailOrderHistoryUniformMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.db.Create(&models.User{Email: "empty@x.com"}).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := f.svc.FulfillCharge(ctx, chargeEvent(t, "evt_1", f.product.ID.String(), "buyer@x.com", 5000)); err != nil {
		t.Fatalf("FulfillCharge() error = %v", err)
	}

	var messages []string
	for _, email := range []string{"ghost@x.com", "empty@x.com", "buyer@x.com"} {
		res, err := f.svc.EmailOrderHistory(ctx, HistoryRequest{Email: email})
		if err != nil {
			t.Fatalf("EmailOrderHistory(%q) error = %v", email, err)
		}
		messages = append(messages, res.Message)
	}
	for _, msg := range messages {
		if msg != MessageHistorySent {
			t.Fatalf("messages = %q, want all %q", messages, MessageHistorySent)
		}
	}

	if len(f.notifier.histories) != 1 || f.notifier.histories[0].To != "buyer@x.com" {
		t.Fatalf("histories = %+v, want one for buyer@x.com", f.notifier.histories)
	}
}

func TestEmailOrderHistoryMintsFreshCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	second := modelstest.CreateProduct(t, f.db, models.Product{Name: "Segundo", FilePath: "products/file_2-segundo.docx"})

	old := make(map[uuid.UUID]bool)
	for i, productID := range []uuid.UUID{f.product.ID, second.ID, f.product.ID} {
		got, err := f.svc.FulfillCharge(ctx, chargeEvent(t, "evt_"+string(rune('a'+i)), productID.String(), "a@x.com", 1000))
		if err != nil {
			t.Fatalf("FulfillCharge() error = %v", err)
		}
		old[got.Credential.ID] = true
	}

	f.clock = f.clock.Add(48 * time.Hour)
	res, err := f.svc.EmailOrderHistory(ctx, HistoryRequest{Email: " a@x.com "})
	if err != nil {
		t.Fatalf("EmailOrderHistory() error = %v", err)
	}
	if res.Message != MessageHistorySent {
		t.Fatalf("Message = %q", res.Message)
	}

	if len(f.notifier.histories) != 1 {
		t.Fatalf("histories = %d, want 1", len(f.notifier.histories))
	}
	lines := f.notifier.histories[0].Orders
	if len(lines) != 3 {
		t.Fatalf("history lines = %d, want 3", len(lines))
	}

	fresh := make(map[uuid.UUID]bool)
	for _, line := range lines {
		if old[line.CredentialID] {
			t.Fatalf("credential %s was reused", line.CredentialID)
		}
		if fresh[line.CredentialID] {
			t.Fatalf("credential %s issued twice", line.CredentialID)
		}
		fresh[line.CredentialID] = true
		if !strings.HasSuffix(line.DownloadURL, "/produtos/download/"+line.CredentialID.String()) {
			t.Fatalf("DownloadURL = %q", line.DownloadURL)
		}
	}
	if n := modelstest.Count(t, f.db, &models.DownloadVerification{}); n != 6 {
		t.Fatalf("credentials = %d, want 6", n)
	}

	// The re-sent links work even though the originals have expired.
	for _, line := range lines {
		dl, err := f.svc.OpenDownload(ctx, line.CredentialID.String())
		if line.Product.Name == "Segundo" {
			if !errors.Is(err, ErrFileUnavailable) {
				t.Fatalf("OpenDownload() error = %v, want %v", err, ErrFileUnavailable)
			}
			continue
		}
		if err != nil {
			t.Fatalf("OpenDownload() error = %v", err)
		}
		_ = dl.Body.Close()
	}

	if last := f.publisher.subjects[len(f.publisher.subjects)-1]; last != bus.SubjectHistoryRequested {
		t.Fatalf("last subject = %q, want %q", last, bus.SubjectHistoryRequested)
	}
}

func TestEmailOrderHistoryDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.FulfillCharge(ctx, chargeEvent(t, "evt_1", f.product.ID.String(), "a@x.com", 5000)); err != nil {
		t.Fatalf("FulfillCharge() error = %v", err)
	}
	f.notifier.err = errors.New("relay refused")

	res, err := f.svc.EmailOrderHistory(ctx, HistoryRequest{Email: "a@x.com"})
	if !errors.Is(err, ErrEmailDeliveryFailed) {
		t.Fatalf("EmailOrderHistory() error = %v, want %v", err, ErrEmailDeliveryFailed)
	}
	if res.Message != "" {
		t.Fatalf("Message = %q, want empty on failure", res.Message)
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	err := ValidationErrors{"name": {"too short"}, "email": {MessageInvalidEmail}}
	if got, want := err.Error(), "invalid input: email: Email invalido; name: too short"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
