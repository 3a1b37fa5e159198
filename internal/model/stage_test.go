package model

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestStage_IsValid(t *testing.T) {
	for _, s := range []Stage{StagePrestige, StageQr, StageScanned, StageCollectible} {
		assert.True(t, s.IsValid(), string(s))
	}
	assert.False(t, Stage("").IsValid())
	assert.False(t, Stage("vip").IsValid())
}

func TestStage_CanTransitionTo(t *testing.T) {
	all := []Stage{StagePrestige, StageQr, StageScanned, StageCollectible}

	allowed := map[Stage]map[Stage]bool{
		StagePrestige:    {StageQr: true},
		StageQr:          {StageQr: true, StageScanned: true},
		StageScanned:     {StageCollectible: true},
		StageCollectible: {},
	}

	for _, from := range all {
		for _, to := range all {
			got := from.CanTransitionTo(to)
			want := allowed[from][to]
			assert.Equalf(t, want, got, "%s -> %s", from, to)
		}
	}

	assert.False(t, Stage("vip").CanTransitionTo(StageQr))
}

func TestStage_Resalable(t *testing.T) {
	assert.False(t, StagePrestige.Resalable())
	assert.True(t, StageQr.Resalable())
	assert.False(t, StageScanned.Resalable())
	assert.True(t, StageCollectible.Resalable())
}

func TestContentFor_StageTemplates(t *testing.T) {
	seat := "A-12"

	cases := []struct {
		stage      Stage
		namePart   string
		uriSegment string
	}{
		{StagePrestige, "Prestige", "/prestige/"},
		{StageQr, "Ticket QR", "/qr/"},
		{StageScanned, "Attended", "/scanned/"},
		{StageCollectible, "Collectible", "/collectible/"},
	}

	for _, tc := range cases {
		t.Run(string(tc.stage), func(t *testing.T) {
			c := ContentFor(tc.stage, 42, "Gala", "deadbeef", &seat)
			assert.Contains(t, c.Name, tc.namePart)
			assert.Contains(t, c.Name, "(A-12)")
			assert.Contains(t, c.Description, "A-12")
			assert.Contains(t, c.URI, tc.uriSegment)
			assert.Contains(t, c.URI, "/42/deadbeef")
			assert.LessOrEqual(t, len(c.Name), MaxAssetNameBytes)
			assert.LessOrEqual(t, len(c.URI), MaxAssetURIBytes)
		})
	}
}

func TestContentFor_NoSeat(t *testing.T) {
	c := ContentFor(StageQr, 1, "Gala", "deadbeef", nil)
	assert.NotContains(t, c.Name, "(")
	assert.NotContains(t, c.Description, "Seat")
}

func TestContentFor_LongEventNameClamped(t *testing.T) {
	long := strings.Repeat("x", 100)
	c := ContentFor(StagePrestige, 1, long, "deadbeef", nil)
	assert.Len(t, c.Name, MaxAssetNameBytes)
}

func TestClampBytes(t *testing.T) {
	t.Run("ShortUnchanged", func(t *testing.T) {
		assert.Equal(t, "abc", ClampBytes("abc", 10))
		assert.Equal(t, "abc", ClampBytes("abc", 3))
	})

	t.Run("TruncatesToBudget", func(t *testing.T) {
		assert.Equal(t, "abcde", ClampBytes("abcdefgh", 5))
	})

	t.Run("NeverSplitsARune", func(t *testing.T) {
		// "é" is two bytes; a three-byte budget must not cut through the
		// second "é".
		s := "aéé"
		out := ClampBytes(s, 4)
		assert.Equal(t, "aé", out)
		assert.True(t, utf8.ValidString(out))
	})

	t.Run("MultiByteOnlyInput", func(t *testing.T) {
		s := strings.Repeat("日", 5) // 3 bytes each
		out := ClampBytes(s, 7)
		assert.Equal(t, strings.Repeat("日", 2), out)
		assert.True(t, utf8.ValidString(out))
	})

	t.Run("ZeroBudget", func(t *testing.T) {
		assert.Equal(t, "", ClampBytes("abc", 0))
	})
}
