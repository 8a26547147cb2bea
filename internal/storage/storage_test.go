package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestPageNormalize(t *testing.T) {
	tests := []struct {
		in   Page
		want Page
	}{
		{Page{}, Page{Page: 1, Limit: DefaultPageSize}},
		{Page{Page: -3, Limit: 10}, Page{Page: 1, Limit: 10}},
		{Page{Page: 2, Limit: 5000}, Page{Page: 2, Limit: MaxPageSize}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Normalize())
	}
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, Page{Page: 1, Limit: 20}.Offset())
	assert.Equal(t, 40, Page{Page: 3, Limit: 20}.Offset())
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "noop"))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound, "get"), ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey, "create"), ErrConflict)

	other := errors.New("connection reset")
	err := translate(other, "list")
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, ErrNotFound)
}
