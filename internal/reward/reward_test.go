package reward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestForRitual_BasePlusCompletion(t *testing.T) {
	// Обычный день, без подношения: база плюс бонус за все канонические шаги.
	date := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

	got := ForRitual(CanonicalSteps, 0, "ganesha", date, 1)

	assert.Equal(t, int64(BasePunya+CompletionBonus), got)
}

func TestForRitual_PartialStepsNoCompletionBonus(t *testing.T) {
	date := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

	got := ForRitual(5, 0, "ganesha", date, 1)

	assert.Equal(t, int64(BasePunya), got)
}

func TestForRitual_TierExactMatch(t *testing.T) {
	date := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

	withTier := ForRitual(5, 51, "ganesha", date, 1)
	withoutTier := ForRitual(5, 50, "ganesha", date, 1)

	assert.Equal(t, int64(BasePunya+75), withTier, "amount 51 matches a configured tier")
	assert.Equal(t, int64(BasePunya), withoutTier, "amount 50 has no exact tier match")
}

func TestForRitual_FestivalBonus(t *testing.T) {
	festival := time.Date(2025, time.August, 27, 9, 0, 0, 0, time.UTC)
	ordinary := time.Date(2025, time.August, 28, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(BasePunya+FestivalBonus), ForRitual(5, 0, "ganesha", festival, 1))
	assert.Equal(t, int64(BasePunya), ForRitual(5, 0, "ganesha", ordinary, 1))
	// Праздник другого божества бонуса не даёт.
	assert.Equal(t, int64(BasePunya), ForRitual(5, 0, "shiva", festival, 1))
}

func TestForRitual_UnknownDeity(t *testing.T) {
	date := time.Date(2025, time.August, 27, 9, 0, 0, 0, time.UTC)

	got := ForRitual(5, 0, "unknown", date, 1)

	assert.Equal(t, int64(BasePunya), got)
}

func TestForRitual_StreakMultiplierAppliesToBaseOnly(t *testing.T) {
	date := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

	// Множитель 1.25 применяется к базе, бонус завершения прибавляется без изменения.
	got := ForRitual(CanonicalSteps, 0, "ganesha", date, 1.25)

	assert.Equal(t, int64(62+CompletionBonus), got)
}

func TestForGame_Buckets(t *testing.T) {
	tests := []struct {
		name     string
		score    int64
		maxScore int64
		want     int64
	}{
		{name: "90 percent", score: 90, maxScore: 100, want: 100},
		{name: "75 percent", score: 75, maxScore: 100, want: 75},
		{name: "50 percent", score: 50, maxScore: 100, want: 50},
		{name: "just below 50", score: 49, maxScore: 100, want: 25},
		{name: "zero score", score: 0, maxScore: 100, want: 10},
		{name: "zero max score", score: 100, maxScore: 0, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForGame(tt.score, tt.maxScore))
		})
	}
}

func TestOfferingBonus(t *testing.T) {
	assert.Equal(t, int64(500), OfferingBonus(100))
	assert.Equal(t, int64(0), OfferingBonus(0))
	assert.Equal(t, int64(0), OfferingBonus(-10))
}

func TestTierBonus(t *testing.T) {
	assert.Equal(t, int64(75), TierBonus(51))
	assert.Equal(t, int64(0), TierBonus(52))
}
