package shopping

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"recipe-importer/internal/pkg/common"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapUpdateError(t *testing.T) {
	uniqueErr := &pq.Error{Code: "23505", Constraint: "shopping_items_merge_key_key"}
	otherPqErr := &pq.Error{Code: "23502"}
	plain := errors.New("connection reset")

	tests := []struct {
		name     string
		err      error
		want     error
		wantOrig error
	}{
		{"unique violation", uniqueErr, common.ErrConflict, uniqueErr},
		{"wrapped unique violation", fmt.Errorf("exec: %w", uniqueErr), common.ErrConflict, uniqueErr},
		{"no rows", sql.ErrNoRows, common.ErrNotFound, nil},
		{"other pq error", otherPqErr, nil, otherPqErr},
		{"plain error", plain, nil, plain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapUpdateError(tt.err)
			if tt.want != nil {
				assert.ErrorIs(t, got, tt.want)
			} else {
				assert.False(t, errors.Is(got, common.ErrConflict))
				assert.False(t, errors.Is(got, common.ErrNotFound))
			}
			if tt.wantOrig != nil {
				assert.ErrorIs(t, got, tt.wantOrig)
			}
		})
	}
}

func TestMapUpdateErrorConflictStatus(t *testing.T) {
	got := mapUpdateError(fmt.Errorf("exec: %w", &pq.Error{Code: "23505"}))

	var ce *common.CustomError
	if assert.True(t, errors.As(got, &ce)) {
		assert.Equal(t, common.ErrConflict.Code, ce.Code)
		assert.Equal(t, common.ErrConflict.Status, ce.Status)
	}
}
