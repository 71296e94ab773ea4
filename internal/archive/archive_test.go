package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/haccp/internal/domain/models"
)

func TestObjectName_RoundTrip(t *testing.T) {
	key := models.ArchiveKey{TenantID: "tenant-42", Period: models.Period{Year: 2024, Month: time.March}}

	name, err := ObjectName(key)
	require.NoError(t, err)
	assert.Equal(t, "tenant-42/2024-03-Rapport_HACCP.txt", name)

	parsed, ok := ParseName(name)
	require.True(t, ok)
	assert.Equal(t, key, parsed)
}

func TestObjectName_Rejects(t *testing.T) {
	_, err := ObjectName(models.ArchiveKey{TenantID: "../etc", Period: models.Period{Year: 2024, Month: time.March}})
	assert.Error(t, err)

	_, err = ObjectName(models.ArchiveKey{TenantID: "t1", Period: models.Period{Year: 2024, Month: 13}})
	assert.ErrorIs(t, err, models.ErrInvalidPeriod)
}

func TestParseName_SkipsForeignNames(t *testing.T) {
	for _, name := range []string{
		"2024-03-Rapport_HACCP.txt",
		"t1/notes.txt",
		"t1/2024-13-Rapport_HACCP.txt",
		"t1/0000-01-Rapport_HACCP.txt",
		"t1/2024-03-Rapport_HACCP.pdf",
		"t1/.tmp-2024-03-Rapport_HACCP.txt-123",
		"t1/sub/2024-03-Rapport_HACCP.txt",
		"../2024-03-Rapport_HACCP.txt",
	} {
		_, ok := ParseName(name)
		assert.Falsef(t, ok, "expected %q to be skipped", name)
	}
}
