package models

import "time"

// ShareRecord is one row of the shares table: a public, uniquely named
// pointer to a copy of a private item. ShareName is globally unique and
// the uniqueness is enforced by the database, not by application checks.
type ShareRecord struct {
	ShareName  string    `json:"shareName"`
	OwnerID    string    `json:"-"`
	ItemName   string    `json:"itemName"`
	ItemType   ItemType  `json:"itemType"`
	SourceTag  string    `json:"sourceTag"`
	IsFeatured bool      `json:"isFeatured"`
	Views      int64     `json:"views"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ShareStatus reports whether an item is shared and whether the shared copy
// still matches the private source.
type ShareStatus string

const (
	ShareStatusUnshared ShareStatus = "unshared"
	ShareStatusCurrent  ShareStatus = "current"
	ShareStatusStale    ShareStatus = "stale"
)
