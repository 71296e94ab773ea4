package models

import "time"

// Document is a rendered compliance report for one tenant and period.
type Document struct {
	TenantID string
	Period   Period
	Content  []byte
	// Lines counts the observation lines rendered, excluding the title.
	Lines   int
	Skipped int
}

// ArchiveKey identifies one archived report.
type ArchiveKey struct {
	TenantID string
	Period   Period
}

// LockKey is the mutual exclusion key shared by every writer of this report.
func (k ArchiveKey) LockKey() string {
	return "report:" + k.TenantID + ":" + k.Period.String()
}

// ArchiveEntry is the metadata of an archived report.
type ArchiveEntry struct {
	Key       ArchiveKey
	CreatedAt time.Time
	Size      int64
}
