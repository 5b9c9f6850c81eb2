package decoding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "gridpulse/internal/errors"
	"gridpulse/internal/shared/testutil"
)

func TestCheckText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantType apperrors.ErrorType
	}{
		{"valid report", testutil.SampleReportCSV(1), ""},
		{"blank", "  \n ", apperrors.ErrTypeEncoding},
		{"mojibake", "年,月,日,时\n锟斤拷", apperrors.ErrTypeEncoding},
		{"missing year column", "月,日,时\n1,1,0", apperrors.ErrTypeFormat},
		{"header only", "年,月,日,时", apperrors.ErrTypeFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckText(tt.text)
			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
		})
	}
}
