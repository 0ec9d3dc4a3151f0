// Package ritual реализует машину состояний интерактивной сессии пуджи.
package ritual

import (
	"sync"
	"time"
)

// State описывает состояние сессии пуджи.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StateInProgress State = "IN_PROGRESS"
	StateCompleted  State = "COMPLETED"
)

const (
	// StepPunya — поощрение за первое выполнение шага, возвращаемое клиенту.
	// В баланс не зачисляется: начисление происходит только при завершении пуджи.
	StepPunya = 5
	// RepeatPunya — поощрение за повтор уже выполненного шага.
	RepeatPunya = 1
)

// Session хранит состояние одной незавершённой пуджи пользователя.
type Session struct {
	DeityID   string
	State     State
	StartedAt time.Time

	steps    map[string]struct{}
	gestures map[string]struct{}
}

// StepResult описывает исход регистрации шага.
type StepResult struct {
	State          State
	FirstTime      bool
	StepsCompleted int
	Punya          int
	Completed      bool
}

func newSession(deityID string, now time.Time) *Session {
	return &Session{
		DeityID:   deityID,
		State:     StateNotStarted,
		StartedAt: now,
		steps:     make(map[string]struct{}),
		gestures:  make(map[string]struct{}),
	}
}

// recordStep регистрирует шаг и сообщает, пересёкся ли порог завершения.
// Повтор выполненного шага множество не меняет и даёт уменьшенное поощрение.
func (s *Session) recordStep(stepID string, threshold int) StepResult {
	if s.State == StateNotStarted {
		s.State = StateInProgress
	}

	_, repeated := s.steps[stepID]
	if !repeated {
		s.steps[stepID] = struct{}{}
	}

	res := StepResult{
		FirstTime:      !repeated,
		StepsCompleted: len(s.steps),
		Punya:          StepPunya,
	}
	if repeated {
		res.Punya = RepeatPunya
	}

	if s.State != StateCompleted && len(s.steps) >= threshold {
		s.State = StateCompleted
		res.Completed = true
	}

	res.State = s.State
	return res
}

func (s *Session) recordGesture(gestureID string) {
	s.gestures[gestureID] = struct{}{}
}

func (s *Session) stepList() []string {
	out := make([]string, 0, len(s.steps))
	for step := range s.steps {
		out = append(out, step)
	}
	return out
}

func (s *Session) gestureList() []string {
	out := make([]string, 0, len(s.gestures))
	for g := range s.gestures {
		out = append(out, g)
	}
	return out
}

// SessionSnapshot — копия состояния сессии на момент чтения.
type SessionSnapshot struct {
	DeityID   string
	State     State
	StartedAt time.Time
	Steps     []string
	Gestures  []string
}

type sessionKey struct {
	userID  int64
	deityID string
}

// Store хранит активные сессии пудж в памяти процесса.
// Сессии эфемерны: завершённая пуджа фиксируется в хранилище данных,
// незавершённая при перезапуске сервиса теряется.
type Store struct {
	mu        sync.Mutex
	threshold int
	sessions  map[sessionKey]*Session
}

// NewStore создаёт хранилище сессий с указанным порогом завершения.
func NewStore(threshold int) *Store {
	if threshold < 1 {
		threshold = 1
	}
	return &Store{
		threshold: threshold,
		sessions:  make(map[sessionKey]*Session),
	}
}

// RecordStep регистрирует шаг пуджи пользователя, создавая сессию при первом шаге.
func (st *Store) RecordStep(userID int64, deityID, stepID string, now time.Time) StepResult {
	st.mu.Lock()
	defer st.mu.Unlock()

	key := sessionKey{userID: userID, deityID: deityID}
	s, ok := st.sessions[key]
	if !ok || s.State == StateCompleted {
		s = newSession(deityID, now)
		st.sessions[key] = s
	}

	return s.recordStep(stepID, st.threshold)
}

// RecordGesture регистрирует жест в активной сессии, если она существует.
func (st *Store) RecordGesture(userID int64, deityID, gestureID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[sessionKey{userID: userID, deityID: deityID}]; ok {
		s.recordGesture(gestureID)
	}
}

// Snapshot возвращает копию текущей сессии пользователя или nil, если её нет.
// Срезы шагов и жестов копируются под блокировкой: живое состояние сессии
// наружу не выдаётся.
func (st *Store) Snapshot(userID int64, deityID string) *SessionSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[sessionKey{userID: userID, deityID: deityID}]
	if !ok {
		return nil
	}

	return &SessionSnapshot{
		DeityID:   s.DeityID,
		State:     s.State,
		StartedAt: s.StartedAt,
		Steps:     s.stepList(),
		Gestures:  s.gestureList(),
	}
}

// Restart сбрасывает сессию пользователя в исходное состояние.
// Новая запись о пудже не создаётся до следующего завершения.
func (st *Store) Restart(userID int64, deityID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.sessions, sessionKey{userID: userID, deityID: deityID})
}

// Drop удаляет сессию после фиксации завершённой пуджи.
func (st *Store) Drop(userID int64, deityID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.sessions, sessionKey{userID: userID, deityID: deityID})
}

// Threshold возвращает настроенный порог завершения.
func (st *Store) Threshold() int {
	return st.threshold
}
