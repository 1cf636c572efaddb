// Package models defines the server-side domain types: logical filesystem
// items and public share records.
package models

import "time"

// ItemType distinguishes files from emulated folders.
type ItemType string

const (
	ItemTypeFile   ItemType = "file"
	ItemTypeFolder ItemType = "folder"
)

// Item is a logical file or folder in a user's virtual tree. The full path
// is ownerID + Location + Name; no two items share a path under one owner.
//
// Size and ContentTag are only meaningful for files. ContentTag is the
// object store's ETag, used to detect whether a shared copy is stale.
type Item struct {
	Name         string    `json:"name"`
	Type         ItemType  `json:"type"`
	Location     []string  `json:"location"`
	Size         int64     `json:"size,omitempty"`
	LastModified time.Time `json:"lastModified,omitzero"`
	ContentTag   string    `json:"contentTag,omitempty"`
}

// FileDescriptor describes a file a client intends to upload.
type FileDescriptor struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}
