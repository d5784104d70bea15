package models

import "time"

// Photo is the metadata record for an image attached to a catalog item.
// The identifier is generated locally on capture and is also the permanent
// remote identifier, so photos never need renumbering. The binary payload
// lives in the cache's blob table until uploaded; RemotePath is empty until
// the upload completes.
type Photo struct {
	ID         string     `json:"id"`
	ItemID     string     `json:"item_id"`
	RemotePath string     `json:"remote_path"`
	IsPrimary  bool       `json:"is_primary"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	SyncStatus SyncStatus `json:"sync_status"`
}
