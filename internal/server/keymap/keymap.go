// Package keymap holds all object-key arithmetic in one place. The rest of
// the server never builds or parses raw key strings: a flat object store has
// no directories, so every "path" here is just a deterministic string layout.
//
// Private namespace:  private/<ownerID>/<segment>/.../<name>   (files)
//
//	private/<ownerID>/<segment>/.../<name>/  (folders, trailing separator)
//
// Public namespace:   shares/<shareName>.<ext>  (files, extension taken from
// the source item name) or shares/<shareName>/ (folders).
package keymap

import (
	"fmt"
	"path"
	"strings"

	"github.com/andrejsk/clouddrive/internal/common"
)

const (
	// Separator is the logical path separator inside object keys.
	Separator = "/"

	privatePrefix = "private"
	publicPrefix  = "shares"
)

// PrivateKey maps (ownerID, location, name) to the object key. The trailing
// separator is appended iff isFolder. Pure, never fails: inputs are assumed
// to have passed ValidateName/ValidateLocation.
func PrivateKey(ownerID string, location []string, name string, isFolder bool) string {
	parts := make([]string, 0, len(location)+3)
	parts = append(parts, privatePrefix, ownerID)
	for _, seg := range location {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	if name != "" {
		parts = append(parts, name)
	}
	key := strings.Join(parts, Separator)
	key = strings.TrimSuffix(key, Separator)
	if isFolder {
		key += Separator
	}
	return key
}

// OwnerPrefix is the key prefix covering everything one owner stores.
func OwnerPrefix(ownerID string) string {
	return privatePrefix + Separator + ownerID + Separator
}

// SplitKey is the inverse of PrivateKey: it recovers (location, name,
// isFolder) from a key under the given owner's prefix. Returns
// ErrInvalidArgument if the key does not belong to that owner.
func SplitKey(ownerID, key string) (location []string, name string, isFolder bool, err error) {
	prefix := OwnerPrefix(ownerID)
	if !strings.HasPrefix(key, prefix) {
		return nil, "", false, fmt.Errorf("key %q outside owner prefix: %w", key, common.ErrInvalidArgument)
	}
	rest := strings.TrimPrefix(key, prefix)
	isFolder = strings.HasSuffix(rest, Separator)
	rest = strings.TrimSuffix(rest, Separator)
	if rest == "" {
		return nil, "", false, fmt.Errorf("empty key remainder: %w", common.ErrInvalidArgument)
	}
	segments := strings.Split(rest, Separator)
	return segments[:len(segments)-1], segments[len(segments)-1], isFolder, nil
}

// PublicKey maps a share to its public object key. For files the source
// item's extension is carried onto the share name so downloads keep a
// usable filename; for folders the key is a prefix.
func PublicKey(itemName, shareName string, isFolder bool) string {
	if isFolder {
		return publicPrefix + Separator + shareName + Separator
	}
	return publicPrefix + Separator + shareName + path.Ext(itemName)
}

// PublicPrefix is the key prefix of the public namespace.
func PublicPrefix() string {
	return publicPrefix + Separator
}

// ValidateName rejects names that would corrupt key arithmetic: empty
// strings, separators, traversal sequences and control characters.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name: %w", common.ErrInvalidArgument)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("name %q: %w", name, common.ErrInvalidArgument)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("name %q contains forbidden characters: %w", name, common.ErrInvalidArgument)
	}
	return nil
}

// ValidateLocation applies ValidateName to every path segment.
func ValidateLocation(location []string) error {
	for _, seg := range location {
		if err := ValidateName(seg); err != nil {
			return err
		}
	}
	return nil
}

// shareNameAllowed covers the safe character set for public share names.
func shareNameAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}

// ValidateShareName enforces the restricted character set for share names.
// Share names are case-sensitive: "Readme" and "readme" are distinct.
func ValidateShareName(name string) error {
	if name == "" {
		return fmt.Errorf("empty share name: %w", common.ErrInvalidArgument)
	}
	for _, r := range name {
		if !shareNameAllowed(r) {
			return fmt.Errorf("share name %q contains forbidden characters: %w", name, common.ErrInvalidArgument)
		}
	}
	return nil
}
