// Package streak реализует расчёт серии ежедневных пудж.
package streak

import "time"

// streakThreshold описывает порог серии и бонусные пункты за него.
type streakThreshold struct {
	days  int
	bonus int
}

// thresholds перечислены по убыванию: применяется первый достигнутый порог.
var thresholds = []streakThreshold{
	{days: 30, bonus: 100},
	{days: 14, bonus: 50},
	{days: 7, bonus: 25},
	{days: 3, bonus: 10},
}

// Result содержит новое значение серии и множитель к базовому начислению.
type Result struct {
	NewStreak  int
	Multiplier float64
}

// Update вычисляет новое значение серии по дате последней пуджи.
// Сравнение ведётся по календарным дням, а не по прошедшим часам:
// повторная пуджа в тот же день серию не меняет, пропуск в один день
// продолжает серию, пропуск в два и более дней сбрасывает её.
func Update(lastRitualAt *time.Time, currentStreak int, now time.Time) Result {
	if lastRitualAt == nil {
		return Result{NewStreak: 1, Multiplier: multiplierFor(1)}
	}

	diff := dayDiff(*lastRitualAt, now)

	var newStreak int
	switch {
	case diff <= 0:
		// Уже выполнена сегодня: множитель пересчитывается от неизменной серии.
		newStreak = currentStreak
		if newStreak < 1 {
			newStreak = 1
		}
	case diff == 1:
		newStreak = currentStreak + 1
	default:
		newStreak = 1
	}

	return Result{NewStreak: newStreak, Multiplier: multiplierFor(newStreak)}
}

// dayDiff возвращает разницу календарных дней между двумя моментами
// в локальном времени сервиса.
func dayDiff(earlier, later time.Time) int {
	ey, em, ed := earlier.Date()
	ly, lm, ld := later.Date()

	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	l := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)

	return int(l.Sub(e).Hours() / 24)
}

func multiplierFor(streak int) float64 {
	for _, t := range thresholds {
		if streak >= t.days {
			return 1 + float64(t.bonus)/100
		}
	}
	return 1
}
