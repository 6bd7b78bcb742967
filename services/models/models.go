// Package models holds the GORM mappings shared by the storefront stores.
package models

// All lists every model in dependency order, for AutoMigrate in tests and tools.
func All() []any {
	return []any{
		&Product{},
		&User{},
		&Order{},
		&DownloadVerification{},
		&WebhookEvent{},
	}
}
