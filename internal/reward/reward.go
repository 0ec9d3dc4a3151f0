// Package reward содержит чистые функции расчёта пуньи.
package reward

import "time"

const (
	// BasePunya — базовое начисление за ежедневную пуджу.
	BasePunya = 50
	// CompletionBonus начисляется за выполнение всех канонических шагов.
	CompletionBonus = 25
	// CanonicalSteps — число канонических шагов полной пуджи.
	CanonicalSteps = 7
	// FestivalBonus начисляется за пуджу в день праздника соответствующего божества.
	FestivalBonus = 100
	// OfferingMultiplier — множитель бонуса за подтверждённое подношение.
	OfferingMultiplier = 5
	// ParticipationFloor — минимальное начисление за игровую сессию.
	ParticipationFloor = 10
	// GameScoreDivisor — делитель очков при начислении за отправленный счёт.
	GameScoreDivisor = 100
	// HighScoreBonus — множитель начисления при побитии рекорда.
	HighScoreBonus = 1.5
	// AchievementBonus — фиксированный бонус за каждое достижение.
	AchievementBonus = 10
)

// tierBonuses сопоставляет точную сумму подношения с фиксированным бонусом.
// Суммы, не совпадающие ни с одним уровнем, бонуса не дают.
var tierBonuses = map[int64]int64{
	11:   15,
	21:   30,
	51:   75,
	101:  150,
	501:  750,
	1001: 1500,
}

// festivalDay описывает календарный день праздника.
type festivalDay struct {
	month time.Month
	day   int
}

// festivalCalendar сопоставляет божество с днями его праздников.
var festivalCalendar = map[string][]festivalDay{
	"ganesha": {{time.August, 27}},
	"shiva":   {{time.February, 26}, {time.July, 29}},
	"krishna": {{time.August, 16}},
	"hanuman": {{time.April, 12}},
	"durga":   {{time.September, 22}},
	"lakshmi": {{time.October, 20}},
}

// ForRitual вычисляет пунью за завершённую пуджу. Неизвестное божество и
// несовпавшая сумма подношения дают нулевой вклад, ошибок не возникает.
// Множитель серии применяется только к базовому слагаемому.
func ForRitual(stepsCompleted int, offeringAmount int64, deityID string, date time.Time, streakMultiplier float64) int64 {
	if streakMultiplier < 1 {
		streakMultiplier = 1
	}

	total := int64(float64(BasePunya) * streakMultiplier)

	if stepsCompleted >= CanonicalSteps {
		total += CompletionBonus
	}

	if bonus, ok := tierBonuses[offeringAmount]; ok {
		total += bonus
	}

	if isFestivalDay(deityID, date) {
		total += FestivalBonus
	}

	return total
}

func isFestivalDay(deityID string, date time.Time) bool {
	for _, fd := range festivalCalendar[deityID] {
		if date.Month() == fd.month && date.Day() == fd.day {
			return true
		}
	}
	return false
}

// ForGame вычисляет пунью за игровую сессию по процентным порогам от максимума.
func ForGame(score, maxScore int64) int64 {
	if maxScore <= 0 {
		return ParticipationFloor
	}

	pct := float64(score) / float64(maxScore) * 100

	switch {
	case pct >= 90:
		return 100
	case pct >= 75:
		return 75
	case pct >= 50:
		return 50
	case pct >= 25:
		return 25
	default:
		return ParticipationFloor
	}
}

// OfferingBonus вычисляет бонус пуньи за подтверждённое подношение.
func OfferingBonus(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return amount * OfferingMultiplier
}

// TierBonus возвращает бонус уровня для точной суммы подношения.
func TierBonus(amount int64) int64 {
	return tierBonuses[amount]
}
