// Package models defines catalog record types shared by the cache, the
// sync layers, and the embedding application.
package models

import "time"

// SyncStatus tracks whether a locally stored record has been acknowledged
// by the remote store.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
)

// CatalogItem is a lot in a sale catalog. The identifier is either a
// permanent server-issued UUID or a temporary placeholder assigned while
// offline (see temp.go). Number is the per-sale display sequence number;
// while offline it holds a temporary value drawn from a reserved namespace.
type CatalogItem struct {
	ID           string     `json:"id"`
	SaleID       string     `json:"sale_id"`
	Number       int64      `json:"number"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	StartPrice   float64    `json:"start_price"`
	ReservePrice float64    `json:"reserve_price"`
	Dimensions   string     `json:"dimensions"`
	Provenance   string     `json:"provenance"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	SyncStatus   SyncStatus `json:"sync_status"`
}

// Sale is a sales event owning a set of catalog items. Active sales are
// synchronized before historical ones.
type Sale struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Title     string    `json:"title"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}
