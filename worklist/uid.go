package worklist

import (
	"fmt"
	"strings"
	"time"
)

// DefaultUIDRoot is the organisation root used when none is configured.
const DefaultUIDRoot = "1.2.840.113619"

// maxUIDLength is the UI value limit (PS3.5 9.1).
const maxUIDLength = 64

// UIDGenerator produces Study Instance UIDs of the form <root>.<year>.<millis>.<id>.1.
type UIDGenerator struct {
	Root string
	Now  func() time.Time
}

// NewUIDGenerator returns a generator under root, or DefaultUIDRoot when root is empty.
func NewUIDGenerator(root string) *UIDGenerator {
	root = strings.TrimSuffix(strings.TrimSpace(root), ".")
	if root == "" {
		root = DefaultUIDRoot
	}
	return &UIDGenerator{Root: root, Now: time.Now}
}

// StudyUID returns a new Study Instance UID for the record with the given id.
func (g *UIDGenerator) StudyUID(id int64) (string, error) {
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	now = now.UTC()

	uid := fmt.Sprintf("%s.%d.%d.%d.1", g.Root, now.Year(), now.UnixMilli(), id)
	if len(uid) > maxUIDLength {
		return "", fmt.Errorf("study UID %q exceeds %d characters", uid, maxUIDLength)
	}
	return uid, nil
}
