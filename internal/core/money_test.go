package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{name: "dot separator", in: "12.34", want: 1234},
		{name: "comma separator", in: "12,34", want: 1234},
		{name: "integer", in: "1000", want: 100000},
		{name: "one decimal", in: "5.5", want: 550},
		{name: "rounds down third decimal", in: "12.344", want: 1234},
		{name: "rounds up third decimal", in: "12.346", want: 1235},
		{name: "zero allowed", in: "0", want: 0},
		{name: "leading dot", in: ".99", want: 99},
		{name: "whitespace trimmed", in: "  3.10 ", want: 310},
		{name: "empty", in: "", wantErr: true},
		{name: "negative rejected", in: "-1.00", wantErr: true},
		{name: "plus sign rejected", in: "+1.00", wantErr: true},
		{name: "letters rejected", in: "12a.00", wantErr: true},
		{name: "double dot rejected", in: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToCents(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "12.34", Money{Cents: 1234}.String())
	assert.Equal(t, "0.05", Money{Cents: 5}.String())
	assert.Equal(t, "-7.00", Money{Cents: -700}.String())
	assert.Equal(t, "0.00", Money{}.String())
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 1234})
	require.NoError(t, err)
	assert.Equal(t, "12.34", string(b))

	var m Money
	require.NoError(t, json.Unmarshal([]byte("1000"), &m))
	assert.Equal(t, int64(100000), m.Cents)

	require.NoError(t, json.Unmarshal([]byte(`"12,50"`), &m))
	assert.Equal(t, int64(1250), m.Cents)

	require.Error(t, json.Unmarshal([]byte(`"-3"`), &m))
}

func TestMoneyValidate(t *testing.T) {
	assert.NoError(t, Money{Cents: 0}.Validate())
	assert.NoError(t, Money{Cents: 100}.Validate())
	assert.ErrorIs(t, Money{Cents: -1}.Validate(), ErrInvalidAmount)
}
