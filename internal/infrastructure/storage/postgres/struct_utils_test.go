package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"brauer/internal/core/id"
	"brauer/internal/core/types"
)

type embeddedBase struct {
	ID        id.ID     `db:"id" json:"id"`
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type mockRecord struct {
	embeddedBase
	VolumeHl types.Decimal  `db:"volume_hl" json:"volumeHl"`
	Plato    *types.Decimal `db:"plato" json:"plato,omitempty"`
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockRecord]()

	assert.Equal(t, []string{"id", "version", "created_at", "volume_hl", "plato"}, cols)
}

func TestExtractDBColumns_SkipsUntaggedFields(t *testing.T) {
	type record struct {
		ID   id.ID `db:"id"`
		Temp string
	}
	cols := ExtractDBColumns[record]()

	assert.Equal(t, []string{"id"}, cols)
	assert.NotContains(t, cols, "Temp")
}
