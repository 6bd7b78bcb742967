package credentials

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"storefront/services/models"
	"storefront/services/models/modelstest"
)

func TestStoreIssueAndRedeem(t *testing.T) {
	db := modelstest.NewDB(t)
	product := modelstest.CreateProduct(t, db, models.Product{Name: "Manual", FilePath: "products/manual.pdf", PriceInCents: 5000})

	store, err := NewStore(db, 0)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.TTL() != DefaultTTL {
		t.Fatalf("TTL() = %v, want %v", store.TTL(), DefaultTTL)
	}

	issuedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cred, err := store.Issue(context.Background(), product.ID, issuedAt)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if want := issuedAt.Add(24 * time.Hour); !cred.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", cred.ExpiresAt, want)
	}

	tests := []struct {
		name    string
		id      uuid.UUID
		at      time.Time
		wantErr error
	}{
		{name: "just issued", id: cred.ID, at: issuedAt.Add(time.Second)},
		{name: "one second before expiry", id: cred.ID, at: issuedAt.Add(24*time.Hour - time.Second)},
		{name: "at expiry", id: cred.ID, at: issuedAt.Add(24 * time.Hour), wantErr: ErrNotFound},
		{name: "after expiry", id: cred.ID, at: issuedAt.Add(24*time.Hour + time.Second), wantErr: ErrNotFound},
		{name: "unknown id", id: uuid.New(), at: issuedAt, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Redeem(context.Background(), tt.id, tt.at)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Redeem() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got.FilePath != "products/manual.pdf" || got.ProductName != "Manual" || got.ProductID != product.ID {
				t.Fatalf("Redeem() = %+v", got)
			}
		})
	}
}

func TestStoreRedeemIsRepeatable(t *testing.T) {
	db := modelstest.NewDB(t)
	product := modelstest.CreateProduct(t, db, models.Product{})
	store, err := NewStore(db, time.Hour)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	now := time.Now().UTC()
	cred, err := store.Issue(context.Background(), product.ID, now)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := store.Redeem(context.Background(), cred.ID, now.Add(time.Minute)); err != nil {
			t.Fatalf("Redeem() attempt %d error = %v", i+1, err)
		}
	}
}

func TestStoreIssueMintsDistinctIDs(t *testing.T) {
	db := modelstest.NewDB(t)
	product := modelstest.CreateProduct(t, db, models.Product{})
	store, err := NewStore(db, 0)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	seen := make(map[uuid.UUID]struct{})
	for i := 0; i < 10; i++ {
		cred, err := store.Issue(context.Background(), product.ID, time.Now())
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if _, dup := seen[cred.ID]; dup {
			t.Fatalf("Issue() returned duplicate id %s", cred.ID)
		}
		seen[cred.ID] = struct{}{}
	}
	if got := modelstest.Count(t, db, &models.DownloadVerification{}); got != 10 {
		t.Fatalf("stored credentials = %d, want 10", got)
	}
}

func TestParseID(t *testing.T) {
	valid := uuid.New()
	tests := []struct {
		name    string
		input   string
		want    uuid.UUID
		wantErr bool
	}{
		{name: "valid", input: valid.String(), want: valid},
		{name: "padded", input: " " + valid.String() + " ", want: valid},
		{name: "garbage", input: "not-a-token", wantErr: true},
		{name: "nil uuid", input: uuid.Nil.String(), wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("ParseID() error = %v, want ErrNotFound", err)
				}
				return
			}
			if got != tt.want {
				t.Fatalf("ParseID() = %v, want %v", got, tt.want)
			}
		})
	}
}
