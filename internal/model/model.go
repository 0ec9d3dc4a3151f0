// Package model содержит доменные сущности пунья-сервиса.
package model

import "time"

// User представляет профиль пользователя, привязанный к внешнему провайдеру идентификации.
type User struct {
	ID            int64
	ExternalID    string
	Name          string
	Email         string
	PunyaBalance  int64
	CurrentStreak int
	LongestStreak int
	LastRitualAt  *time.Time
	CreatedAt     time.Time
}

// Ritual описывает одну завершённую пуджу. Запись неизменяема после создания.
type Ritual struct {
	ID             int64
	UserID         int64
	DeityID        string
	Steps          []string
	Gestures       []string
	PunyaEarned    int64
	OfferingAmount int64
	DurationSec    *int64
	CompletedAt    time.Time
}

// OfferingStatus описывает статус обработки подношения.
type OfferingStatus string

const (
	OfferingStatusPending   OfferingStatus = "PENDING"
	OfferingStatusCompleted OfferingStatus = "COMPLETED"
	OfferingStatusFailed    OfferingStatus = "FAILED"
)

// Offering описывает денежное подношение, проводимое через внешний платёжный шлюз.
// Amount хранится в наименьших единицах валюты.
type Offering struct {
	ID             string
	UserID         int64
	RitualID       *int64
	DeityID        string
	Amount         int64
	Status         OfferingStatus
	GatewayOrderID *string
	GatewayPayload *string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// Game описывает мини-игру из каталога и стоимость её открытия.
type Game struct {
	ID            int64
	Slug          string
	Title         string
	RequiredPunya int64
	MaxScore      int64
}

// UserGame связывает пользователя с открытой им игрой.
type UserGame struct {
	UserID      int64
	GameID      int64
	HighScore   int64
	TimesPlayed int
	LastPlayed  *time.Time
	UnlockedAt  time.Time
}

// Blessing представляет сгенерированное благословение. Записи только добавляются.
type Blessing struct {
	ID        int64
	UserID    int64
	RitualID  *int64
	DeityID   string
	Message   string
	IsSpecial bool
	CreatedAt time.Time
}
