package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSignedDelta(t *testing.T) {
	tests := []struct {
		name string
		side Side
		size string
		want string
	}{
		{
			name: "buy-is-positive",
			side: SideBuy,
			size: "1.5",
			want: "1.5",
		},
		{
			name: "sell-is-negative",
			side: SideSell,
			size: "2",
			want: "-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fill := &Fill{
				Side: tt.side,
				Size: decimal.RequireFromString(tt.size),
			}

			got := fill.SignedDelta()
			if got.String() != tt.want {
				t.Errorf("SignedDelta() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNotional(t *testing.T) {
	fill := &Fill{
		Price: decimal.RequireFromString("50000"),
		Size:  decimal.RequireFromString("0.5"),
	}

	if got := fill.Notional(); got.String() != "25000" {
		t.Errorf("Notional() = %s, want 25000", got)
	}
}

func TestDay(t *testing.T) {
	fill := &Fill{
		Timestamp: time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC),
	}

	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := fill.Day(); !got.Equal(want) {
		t.Errorf("Day() = %v, want %v", got, want)
	}
}

func TestBefore(t *testing.T) {
	t0 := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a    *Fill
		b    *Fill
		want bool
	}{
		{
			name: "earlier-timestamp-orders-first",
			a:    &Fill{Timestamp: t0, SequenceID: 99},
			b:    &Fill{Timestamp: t0.Add(time.Second), SequenceID: 1},
			want: true,
		},
		{
			name: "later-timestamp-orders-after",
			a:    &Fill{Timestamp: t0.Add(time.Second), SequenceID: 1},
			b:    &Fill{Timestamp: t0, SequenceID: 99},
			want: false,
		},
		{
			name: "equal-timestamp-sequence-breaks-tie",
			a:    &Fill{Timestamp: t0, SequenceID: 1},
			b:    &Fill{Timestamp: t0, SequenceID: 2},
			want: true,
		},
		{
			name: "identical-fills-not-before",
			a:    &Fill{Timestamp: t0, SequenceID: 5},
			b:    &Fill{Timestamp: t0, SequenceID: 5},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Before(tt.a, tt.b); got != tt.want {
				t.Errorf("Before() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDirectionIsOpen(t *testing.T) {
	tests := []struct {
		dir  Direction
		want bool
	}{
		{DirOpenLong, true},
		{DirOpenShort, true},
		{DirCloseLong, false},
		{DirCloseShort, false},
		{DirUnknown, false},
	}

	for _, tt := range tests {
		if got := tt.dir.IsOpen(); got != tt.want {
			t.Errorf("IsOpen(%q) = %v, want %v", tt.dir, got, tt.want)
		}
	}
}
