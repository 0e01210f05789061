package service

import (
	"math"
	"testing"

	"blogcms/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		wantPage    int
		wantLimit   int
	}{
		{"defaults", 0, 0, 1, DefaultPostLimit},
		{"negative", -3, -1, 1, DefaultPostLimit},
		{"limit capped", 2, 5000, 2, MaxLimit},
		{"page capped", math.MaxInt, 2, MaxPage, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := normalizePage(tt.page, tt.limit, DefaultPostLimit)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)

			offset := models.NewPagination(page, limit, 0).Offset()
			assert.GreaterOrEqual(t, offset, 0)
		})
	}
}
