// Package archive persists rendered compliance reports as named blobs.
//
// Every backend stores a report for tenant T and period P under
// "<T>/<P>-Rapport_HACCP.txt". Names are parsed back into typed entries only
// inside this package.
package archive

import (
	"context"
	"fmt"
	"iter"
	"regexp"
	"strings"

	"github.com/mamadbah2/haccp/internal/domain/models"
)

// Suffix is appended to the period key of every archived report.
const Suffix = "-Rapport_HACCP.txt"

// Store is durable keyed storage for archived reports.
type Store interface {
	// Put publishes data atomically, replacing any previous content for key.
	Put(ctx context.Context, key models.ArchiveKey, data []byte) error
	// Get returns models.ErrNotFound when the entry does not exist.
	Get(ctx context.Context, key models.ArchiveKey) ([]byte, error)
	// Delete is a no-op for missing entries.
	Delete(ctx context.Context, key models.ArchiveKey) error
	// List enumerates archived entries. Each call starts a fresh enumeration.
	// Blobs whose names do not parse are skipped.
	List(ctx context.Context) iter.Seq2[models.ArchiveEntry, error]
}

var (
	nameRe   = regexp.MustCompile(`^(\d{4}-\d{2})` + regexp.QuoteMeta(Suffix) + `$`)
	tenantRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// ObjectName returns the blob name of key, relative to the store root.
func ObjectName(key models.ArchiveKey) (string, error) {
	if !ValidTenant(key.TenantID) {
		return "", fmt.Errorf("invalid tenant id %q", key.TenantID)
	}
	if !key.Period.Valid() {
		return "", fmt.Errorf("%w: %v", models.ErrInvalidPeriod, key.Period)
	}
	return key.TenantID + "/" + key.Period.String() + Suffix, nil
}

// ParseName is the inverse of ObjectName. ok is false for any name that was not
// produced by ObjectName.
func ParseName(name string) (models.ArchiveKey, bool) {
	tenant, base, found := strings.Cut(name, "/")
	if !found || !ValidTenant(tenant) {
		return models.ArchiveKey{}, false
	}
	m := nameRe.FindStringSubmatch(base)
	if m == nil {
		return models.ArchiveKey{}, false
	}
	period, err := models.ParsePeriod(m[1])
	if err != nil {
		return models.ArchiveKey{}, false
	}
	return models.ArchiveKey{TenantID: tenant, Period: period}, true
}

// ValidTenant reports whether id is safe to use as a path segment.
func ValidTenant(id string) bool {
	return tenantRe.MatchString(id) && id != "." && id != ".."
}
