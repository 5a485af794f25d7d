package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverters(t *testing.T) {
	tests := []struct {
		converter string
		raw       string
		want      any
		wantErr   bool
	}{
		{"trim", "  Denver Public Schools  ", "Denver Public Schools", false},
		{"trim", "   ", nil, false},
		{"upper", " co ", "CO", false},
		{"lower", " Adams 12 ", "adams 12", false},
		{"digits", "Cases: 1,204", "1204", false},
		{"digits", "none", nil, false},
		{"district_id", "8001", "0008001", false},
		{"district_id", "8001.0", "0008001", false},
		{"school_id", "80010205", "000080010205", false},
		{"school_id", "80010205.0,80010206.0", "000080010205,000080010206", false},
		{"numeric_id", " 42.0 ", "42", false},
		{"numeric_id", "", nil, false},
		{"numeric_id", "42.5", nil, true},
		{"numeric_id", "abc", nil, true},
		{"district_id", "-8001", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.converter+"/"+tt.raw, func(t *testing.T) {
			c, err := LookupConverter(tt.converter)
			require.NoError(t, err)
			got, err := c(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupConverterUnknown(t *testing.T) {
	_, err := LookupConverter("shout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available")
}

func TestKeyTransforms(t *testing.T) {
	tests := []struct {
		transform string
		key       string
		want      string
	}{
		{"", "  as-is  ", "  as-is  "}, // empty name resolves to identity
		{"identity", " x ", " x "},
		{"trim", "  x  ", "x"},
		{"upper", " co ", "CO"},
		{"lower", " Adams ", "adams"},
		{"digits", "ID-8001", "8001"},
		{"zfill7", " 8001 ", "0008001"},
		{"zfill12", "80010205", "000080010205"},
		{"strip_leading_zeros", "0008001", "8001"},
	}

	for _, tt := range tests {
		name := tt.transform
		if name == "" {
			name = "default"
		}
		t.Run(name, func(t *testing.T) {
			tr, err := LookupKeyTransform(tt.transform)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr(tt.key))
		})
	}
}

func TestLookupKeyTransformUnknown(t *testing.T) {
	_, err := LookupKeyTransform("rot13")
	assert.Error(t, err)
}
