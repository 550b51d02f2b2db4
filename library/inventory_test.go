package library

import (
	"testing"

	pkgerrors "library-lms/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCopies(t *testing.T) {
	tests := []struct {
		name         string
		oldTotal     int
		oldAvailable int
		newTotal     int
		requested    *int
		want         int
		wantErr      bool
	}{
		{name: "grow keeps loans", oldTotal: 3, oldAvailable: 1, newTotal: 5, want: 3},
		{name: "shrink to loans", oldTotal: 3, oldAvailable: 1, newTotal: 2, want: 0},
		{name: "below loans", oldTotal: 3, oldAvailable: 1, newTotal: 1, wantErr: true},
		{name: "nothing on loan", oldTotal: 2, oldAvailable: 2, newTotal: 1, want: 1},
		{name: "explicit lower", oldTotal: 4, oldAvailable: 4, newTotal: 4, requested: intPtr(2), want: 2},
		{name: "explicit equal", oldTotal: 4, oldAvailable: 3, newTotal: 4, requested: intPtr(3), want: 3},
		{name: "explicit above derived", oldTotal: 4, oldAvailable: 3, newTotal: 4, requested: intPtr(4), wantErr: true},
		{name: "explicit above total", oldTotal: 4, oldAvailable: 4, newTotal: 4, requested: intPtr(5), wantErr: true},
		{name: "explicit negative", oldTotal: 4, oldAvailable: 4, newTotal: 4, requested: intPtr(-1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCopies(tt.oldTotal, tt.oldAvailable, tt.newTotal, tt.requested)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeRuleViolation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, tt.newTotal)
		})
	}
}

func TestInitialAvailable(t *testing.T) {
	assert.Equal(t, 7, InitialAvailable(7))
}
