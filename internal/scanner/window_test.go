package scanner

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSplitWindows(t *testing.T) {
	tests := []struct {
		name     string
		from, to uint64
		span     uint64
		want     []Window
	}{
		{name: "empty", from: 11, to: 10, span: 5, want: nil},
		{name: "single block", from: 4, to: 4, span: 5, want: []Window{{4, 4}}},
		{name: "fits", from: 1, to: 5, span: 5, want: []Window{{1, 5}}},
		{name: "exact multiple", from: 1, to: 10, span: 5, want: []Window{{1, 5}, {6, 10}}},
		{name: "short tail", from: 1, to: 12, span: 5, want: []Window{{1, 5}, {6, 10}, {11, 12}}},
		{name: "zero span", from: 1, to: 3, span: 0, want: []Window{{1, 1}, {2, 2}, {3, 3}}},
		{
			name: "three lots of a million",
			from: 1, to: 2_500_000, span: 1_000_000,
			want: []Window{{1, 1_000_000}, {1_000_001, 2_000_000}, {2_000_001, 2_500_000}},
		},
		{
			name: "top of range",
			from: ^uint64(0) - 3, to: ^uint64(0), span: 3,
			want: []Window{{^uint64(0) - 3, ^uint64(0) - 1}, {^uint64(0), ^uint64(0)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SplitWindows(tt.from, tt.to, tt.span))
		})
	}
}

func TestSplitWindows_CoversRangeExactly(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cursor := rapid.Uint64Range(0, 1<<40).Draw(t, "cursor")
		gap := rapid.Uint64Range(1, 5_000).Draw(t, "gap")
		span := rapid.Uint64Range(1, 700).Draw(t, "span")
		latest := cursor + gap

		windows := SplitWindows(cursor+1, latest, span)

		require.NotEmpty(t, windows)
		require.Equal(t, cursor+1, windows[0].From)
		require.Equal(t, latest, windows[len(windows)-1].To)

		for i, w := range windows {
			require.LessOrEqual(t, w.From, w.To)
			require.LessOrEqual(t, w.To-w.From+1, span)
			if i > 0 {
				require.Equal(t, windows[i-1].To+1, w.From, "no gap or overlap")
			}
		}

		require.Equal(t, (gap+span-1)/span, uint64(len(windows)))
	})
}
