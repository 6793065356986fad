package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseUint64orHex(t *testing.T) {
	tests := []struct {
		name    string
		input   *string
		want    uint64
		wantErr bool
	}{
		{name: "nil input", input: nil, want: 0},
		{name: "decimal", input: strPtr("1010"), want: 1010},
		{name: "hex", input: strPtr("0x3f2"), want: 0x3f2},
		{name: "hex uppercase", input: strPtr("0xCAFE"), want: 0xcafe},
		{name: "garbage", input: strPtr("10zz"), wantErr: true},
		{name: "bad hex", input: strPtr("0xzz"), wantErr: true},
		{name: "empty", input: strPtr(""), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUint64orHex(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseSecondsOrDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{input: "10", want: 10 * time.Second},
		{input: " 3 ", want: 3 * time.Second},
		{input: "0", want: 0},
		{input: "1m30s", want: 90 * time.Second},
		{input: "750ms", want: 750 * time.Millisecond},
		{input: "-5", wantErr: true},
		{input: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSecondsOrDuration(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseAddress(t *testing.T) {
	addr, ok := ParseAddress("0x52908400098527886E0F7030069857D2E4169EE7")
	require.True(t, ok)
	require.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", addr.Hex())

	addr, ok = ParseAddress("52908400098527886e0f7030069857d2e4169ee7")
	require.True(t, ok)
	require.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", addr.Hex())

	_, ok = ParseAddress("0x1234")
	require.False(t, ok)

	require.True(t, IsZeroAddress(ZeroAddress))
	require.False(t, IsZeroAddress(addr))
}

func strPtr(s string) *string {
	return &s
}
