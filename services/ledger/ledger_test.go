package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"storefront/services/models"
	"storefront/services/models/modelstest"
)

func TestRecordPurchaseFirstTimeEmail(t *testing.T) {
	db := modelstest.NewDB(t)
	product := modelstest.CreateProduct(t, db, models.Product{PriceInCents: 9900})
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	order, err := store.RecordPurchase(context.Background(), "a@x.com", product.ID, 5000)
	if err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}

	if got := modelstest.Count(t, db, &models.User{}); got != 1 {
		t.Fatalf("users = %d, want 1", got)
	}
	if got := modelstest.Count(t, db, &models.Order{}); got != 1 {
		t.Fatalf("orders = %d, want 1", got)
	}

	var stored models.Order
	if err := db.First(&stored, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if stored.PricePaidInCents != 5000 {
		t.Fatalf("PricePaidInCents = %d, want 5000", stored.PricePaidInCents)
	}
	if stored.ProductID != product.ID {
		t.Fatalf("ProductID = %v, want %v", stored.ProductID, product.ID)
	}

	var user models.User
	if err := db.First(&user, "email = ?", "a@x.com").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.UserID != user.ID {
		t.Fatalf("UserID = %v, want %v", stored.UserID, user.ID)
	}
}

func TestRecordPurchaseRepeatEmailAttachesOrder(t *testing.T) {
	db := modelstest.NewDB(t)
	first := modelstest.CreateProduct(t, db, models.Product{Name: "Primeiro"})
	second := modelstest.CreateProduct(t, db, models.Product{Name: "Segundo"})
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	ctx := context.Background()
	a, err := store.RecordPurchase(ctx, "a@x.com", first.ID, 1000)
	if err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}
	b, err := store.RecordPurchase(ctx, "a@x.com", second.ID, 2000)
	if err != nil {
		t.Fatalf("RecordPurchase() error = %v", err)
	}

	if got := modelstest.Count(t, db, &models.User{}); got != 1 {
		t.Fatalf("users = %d, want 1", got)
	}
	if got := modelstest.Count(t, db, &models.Order{}); got != 2 {
		t.Fatalf("orders = %d, want 2", got)
	}
	if a.UserID != b.UserID {
		t.Fatalf("orders belong to different users: %v and %v", a.UserID, b.UserID)
	}
}

func TestRecordPurchaseEmailIsCaseSensitive(t *testing.T) {
	db := modelstest.NewDB(t)
	product := modelstest.CreateProduct(t, db, models.Product{})
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	for _, email := range []string{"a@x.com", "A@x.com"} {
		if _, err := store.RecordPurchase(context.Background(), email, product.ID, 100); err != nil {
			t.Fatalf("RecordPurchase(%q) error = %v", email, err)
		}
	}
	if got := modelstest.Count(t, db, &models.User{}); got != 2 {
		t.Fatalf("users = %d, want 2", got)
	}
}

func TestRecordPurchaseRejectsInvalidInput(t *testing.T) {
	db := modelstest.NewDB(t)
	product := modelstest.CreateProduct(t, db, models.Product{})
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	tests := []struct {
		name      string
		email     string
		productID uuid.UUID
		amount    int64
	}{
		{name: "empty email", email: " ", productID: product.ID, amount: 100},
		{name: "nil product", email: "a@x.com", productID: uuid.Nil, amount: 100},
		{name: "negative amount", email: "a@x.com", productID: product.ID, amount: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.RecordPurchase(context.Background(), tt.email, tt.productID, tt.amount); err == nil {
				t.Fatalf("RecordPurchase() error = nil, want error")
			}
		})
	}
	if got := modelstest.Count(t, db, &models.User{}); got != 0 {
		t.Fatalf("users = %d, want 0", got)
	}
}

func TestRecordPurchaseRollsBackWithTransaction(t *testing.T) {
	db := modelstest.NewDB(t)
	product := modelstest.CreateProduct(t, db, models.Product{})
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	errAbort := errors.New("abort")
	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := store.WithTx(tx).RecordPurchase(context.Background(), "a@x.com", product.ID, 100); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("Transaction() error = %v, want %v", err, errAbort)
	}
	if got := modelstest.Count(t, db, &models.User{}); got != 0 {
		t.Fatalf("users = %d, want 0", got)
	}
	if got := modelstest.Count(t, db, &models.Order{}); got != 0 {
		t.Fatalf("orders = %d, want 0", got)
	}
}

func TestFindCustomer(t *testing.T) {
	db := modelstest.NewDB(t)
	product := modelstest.CreateProduct(t, db, models.Product{Name: "Apostila"})
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	ctx := context.Background()
	if _, err := store.FindCustomer(ctx, "ghost@x.com"); !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("FindCustomer() error = %v, want %v", err, ErrCustomerNotFound)
	}

	for i := 0; i < 3; i++ {
		if _, err := store.RecordPurchase(ctx, "a@x.com", product.ID, int64(100*(i+1))); err != nil {
			t.Fatalf("RecordPurchase() error = %v", err)
		}
	}

	user, err := store.FindCustomer(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("FindCustomer() error = %v", err)
	}
	if len(user.Orders) != 3 {
		t.Fatalf("len(Orders) = %d, want 3", len(user.Orders))
	}
	for _, order := range user.Orders {
		if order.Product.Name != "Apostila" {
			t.Fatalf("order product name = %q, want %q", order.Product.Name, "Apostila")
		}
	}
}
