package validation

import (
	"errors"
	"testing"

	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_SearchRequest(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		req       models.SearchRequest
		wantField string
	}{
		{name: "valid general", req: models.SearchRequest{Type: models.SearchGeneral, Query: "dune"}},
		{name: "valid author", req: models.SearchRequest{Type: models.SearchInAuthor, Query: "herbert"}},
		{name: "blank query", req: models.SearchRequest{Type: models.SearchGeneral, Query: "   "}, wantField: "search"},
		{name: "unknown type", req: models.SearchRequest{Type: "isbn", Query: "dune"}, wantField: "term"},
		{name: "missing type", req: models.SearchRequest{Query: "dune"}, wantField: "term"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrInvalidInput))

			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Fields[0].Field)
		})
	}
}

func TestValidate_ShelfMutation(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(models.ShelfMutation{BookID: "zyTCAlFPjgYC", ShelfID: "0"}))

	err := v.Validate(models.ShelfMutation{})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 2)
	assert.Equal(t, "shelfId", verr.Fields[0].Field)
	assert.Equal(t, "volumeId", verr.Fields[1].Field)
	assert.Contains(t, err.Error(), "volumeId is required")

	err = v.Validate(models.ShelfMutation{BookID: "x", ShelfID: "favorites"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shelfId must be numeric")
}
