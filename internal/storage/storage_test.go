package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhotoPath(t *testing.T) {
	assert.Equal(t, "items/i1/p1", PhotoPath("i1", "p1"))

	// temporary item ids produce valid keys too; the photo segment is
	// unique on its own
	assert.Equal(t, "items/tmp_1700000000000_1/p2", PhotoPath("tmp_1700000000000_1", "p2"))
}
