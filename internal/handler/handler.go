// Package handler содержит HTTP-обработчики API пунья-сервиса.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/middleware"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/model"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/repository"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/ritual"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/service"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	ResolvePrincipal(ctx context.Context, externalID, name, email string) (*model.User, error)
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	RecordStep(userID int64, deityID, stepID string) ritual.StepResult
	RecordGesture(userID int64, deityID, gestureID string)
	RestartRitual(userID int64, deityID string)
	CompleteRitual(ctx context.Context, userID int64, deityID string, steps, gestures []string, offeringAmount int64, durationSec *int64) (*service.RitualResult, error)
	GetRitualsByUser(ctx context.Context, userID int64, deityID string, page, limit int) ([]model.Ritual, error)
	GetBlessingsByUser(ctx context.Context, userID int64, limit int) ([]model.Blessing, error)
	CreateOffering(ctx context.Context, userID, amount int64, deityID string, ritualID *int64) (*service.OfferingSession, error)
	HandleWebhook(ctx context.Context, rawBody []byte, signature, timestamp string) error
	VerifyPayment(ctx context.Context, userID int64, offeringID string) (*service.VerifyResult, error)
	UnlockGame(ctx context.Context, userID, gameID int64) (*service.UnlockResult, error)
	SubmitScore(ctx context.Context, userID, gameID, score int64, achievements []string) (*service.ScoreResult, error)
	ListGames(ctx context.Context, userID int64) ([]repository.GameListItem, error)
}

// Handler реализует HTTP-обработчики API пунья-сервиса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type sessionRequest struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Assertion  string `json:"assertion"`
}

// CreateSession обменивает утверждение провайдера идентификации на cookie сессии.
// Профиль пользователя создаётся при первом обращении.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.ExternalID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !h.authMiddleware.VerifyAssertion(req.ExternalID, req.Assertion) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	user, err := h.service.ResolvePrincipal(r.Context(), req.ExternalID, req.Name, req.Email)
	if err != nil {
		h.logger.Error("resolve principal error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetSessionCookie(w, user.ID)
	w.WriteHeader(http.StatusOK)
}

type userResponse struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	PunyaBalance  int64  `json:"punya_balance"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	LastRitualAt  string `json:"last_ritual_at,omitempty"`
}

// GetUser возвращает профиль текущего пользователя.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get user error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := userResponse{
		Name:          user.Name,
		Email:         user.Email,
		PunyaBalance:  user.PunyaBalance,
		CurrentStreak: user.CurrentStreak,
		LongestStreak: user.LongestStreak,
	}
	if user.LastRitualAt != nil {
		resp.LastRitualAt = user.LastRitualAt.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, resp)
}

type stepRequest struct {
	DeityID   string `json:"deity_id"`
	StepID    string `json:"step_id"`
	GestureID string `json:"gesture_id,omitempty"`
}

type stepResponse struct {
	State          string `json:"state"`
	FirstTime      bool   `json:"first_time"`
	StepsCompleted int    `json:"steps_completed"`
	Punya          int    `json:"punya"`
	Completed      bool   `json:"completed"`
}

// RecordStep регистрирует шаг пуджи в сессии текущего пользователя.
func (h *Handler) RecordStep(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidDeityID(req.DeityID) || !validation.IsValidStepID(req.StepID) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	res := h.service.RecordStep(userID, req.DeityID, req.StepID)
	if req.GestureID != "" {
		h.service.RecordGesture(userID, req.DeityID, req.GestureID)
	}

	writeJSON(w, http.StatusOK, stepResponse{
		State:          string(res.State),
		FirstTime:      res.FirstTime,
		StepsCompleted: res.StepsCompleted,
		Punya:          res.Punya,
		Completed:      res.Completed,
	})
}

type restartRequest struct {
	DeityID string `json:"deity_id"`
}

// RestartRitual сбрасывает сессию пуджи текущего пользователя.
func (h *Handler) RestartRitual(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req restartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidDeityID(req.DeityID) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	h.service.RestartRitual(userID, req.DeityID)
	w.WriteHeader(http.StatusOK)
}

type completeRitualRequest struct {
	DeityID        string   `json:"deity_id"`
	Steps          []string `json:"steps"`
	Gestures       []string `json:"gestures,omitempty"`
	OfferingAmount int64    `json:"offering_amount,omitempty"`
	DurationSec    *int64   `json:"duration_sec,omitempty"`
}

type completeRitualResponse struct {
	RitualID      int64  `json:"ritual_id"`
	PunyaEarned   int64  `json:"punya_earned"`
	NewStreak     int    `json:"new_streak"`
	LongestStreak int    `json:"longest_streak"`
	TotalBalance  int64  `json:"total_balance"`
	Blessing      string `json:"blessing"`
}

// CompleteRitual завершает пуджу текущего пользователя.
func (h *Handler) CompleteRitual(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req completeRitualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidDeityID(req.DeityID) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	res, err := h.service.CompleteRitual(r.Context(), userID, req.DeityID, req.Steps, req.Gestures, req.OfferingAmount, req.DurationSec)
	if err != nil {
		if errors.Is(err, service.ErrRitualIncomplete) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("complete ritual error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, completeRitualResponse{
		RitualID:      res.RitualID,
		PunyaEarned:   res.PunyaEarned,
		NewStreak:     res.NewStreak,
		LongestStreak: res.LongestStreak,
		TotalBalance:  res.TotalBalance,
		Blessing:      res.Blessing,
	})
}

type ritualResponse struct {
	ID             int64    `json:"id"`
	DeityID        string   `json:"deity_id"`
	Steps          []string `json:"steps"`
	Gestures       []string `json:"gestures,omitempty"`
	PunyaEarned    int64    `json:"punya_earned"`
	OfferingAmount int64    `json:"offering_amount,omitempty"`
	DurationSec    *int64   `json:"duration_sec,omitempty"`
	CompletedAt    string   `json:"completed_at"`
}

// GetRituals возвращает страницу истории пудж текущего пользователя.
func (h *Handler) GetRituals(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	deity := r.URL.Query().Get("deity")
	if deity != "" && !validation.IsValidDeityID(deity) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, limit = validation.NormalizePage(page, limit)

	rituals, err := h.service.GetRitualsByUser(r.Context(), userID, deity, page, limit)
	if err != nil {
		h.logger.Error("get rituals error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(rituals) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]ritualResponse, 0, len(rituals))
	for _, rit := range rituals {
		resp = append(resp, ritualResponse{
			ID:             rit.ID,
			DeityID:        rit.DeityID,
			Steps:          rit.Steps,
			Gestures:       rit.Gestures,
			PunyaEarned:    rit.PunyaEarned,
			OfferingAmount: rit.OfferingAmount,
			DurationSec:    rit.DurationSec,
			CompletedAt:    rit.CompletedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type blessingResponse struct {
	ID        int64  `json:"id"`
	DeityID   string `json:"deity_id"`
	Message   string `json:"message"`
	IsSpecial bool   `json:"is_special"`
	CreatedAt string `json:"created_at"`
}

// GetBlessings возвращает благословения текущего пользователя.
func (h *Handler) GetBlessings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	blessings, err := h.service.GetBlessingsByUser(r.Context(), userID, 50)
	if err != nil {
		h.logger.Error("get blessings error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(blessings) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]blessingResponse, 0, len(blessings))
	for _, b := range blessings {
		resp = append(resp, blessingResponse{
			ID:        b.ID,
			DeityID:   b.DeityID,
			Message:   b.Message,
			IsSpecial: b.IsSpecial,
			CreatedAt: b.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type createOfferingRequest struct {
	Amount   int64  `json:"amount"`
	DeityID  string `json:"deity_id"`
	RitualID *int64 `json:"ritual_id,omitempty"`
}

type createOfferingResponse struct {
	OfferingID       string `json:"offering_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	PaymentSessionID string `json:"payment_session_id"`
}

// CreateOffering создаёт подношение и платёжную сессию шлюза.
func (h *Handler) CreateOffering(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createOfferingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidDeityID(req.DeityID) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}
	if !validation.IsValidOfferingAmount(req.Amount) {
		http.Error(w, "offering amount must be at least 1", http.StatusBadRequest)
		return
	}

	session, err := h.service.CreateOffering(r.Context(), userID, req.Amount, req.DeityID, req.RitualID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAmount):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, service.ErrGateway):
			// Сырой ответ шлюза клиенту не передаётся.
			h.logger.Error("create offering gateway error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, "payment could not be initiated, please try again", http.StatusBadGateway)
		default:
			h.logger.Error("create offering error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, createOfferingResponse{
		OfferingID:       session.OfferingID,
		GatewayOrderID:   session.GatewayOrderID,
		PaymentSessionID: session.PaymentSessionID,
	})
}

type webhookResponse struct {
	Success bool `json:"success"`
}

// OfferingWebhook принимает подписанный вебхук платёжного шлюза.
// Подпись проверяется до какой-либо обработки; повторные доставки безопасны.
func (h *Handler) OfferingWebhook(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("x-webhook-signature")
	timestamp := r.Header.Get("x-webhook-timestamp")

	err = h.service.HandleWebhook(r.Context(), rawBody, signature, timestamp)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if errors.Is(err, repository.ErrOfferingNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("webhook error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{Success: true})
}

type verifyResponse struct {
	Paid   bool   `json:"paid"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
}

// VerifyOffering — синхронная проверка оплаты для клиентского опроса.
func (h *Handler) VerifyOffering(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	offeringID := chi.URLParam(r, "id")

	res, err := h.service.VerifyPayment(r.Context(), userID, offeringID)
	if err != nil {
		if errors.Is(err, repository.ErrOfferingNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		if errors.Is(err, service.ErrGateway) {
			h.logger.Error("verify offering gateway error", zap.Error(err), zap.String("offering", offeringID))
			http.Error(w, "payment status unavailable, please retry", http.StatusBadGateway)
			return
		}
		h.logger.Error("verify offering error", zap.Error(err), zap.String("offering", offeringID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Paid:   res.Paid,
		Amount: res.Amount,
		Status: string(res.Status),
	})
}

type gameResponse struct {
	ID            int64  `json:"id"`
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	RequiredPunya int64  `json:"required_punya"`
	MaxScore      int64  `json:"max_score"`
	Unlocked      bool   `json:"unlocked"`
}

// ListGames возвращает каталог игр с признаком открытия.
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	games, err := h.service.ListGames(r.Context(), userID)
	if err != nil {
		h.logger.Error("list games error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]gameResponse, 0, len(games))
	for _, item := range games {
		resp = append(resp, gameResponse{
			ID:            item.Game.ID,
			Slug:          item.Game.Slug,
			Title:         item.Game.Title,
			RequiredPunya: item.Game.RequiredPunya,
			MaxScore:      item.Game.MaxScore,
			Unlocked:      item.Unlocked,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type insufficientPunyaResponse struct {
	Error    string `json:"error"`
	Required int64  `json:"required"`
	Current  int64  `json:"current"`
}

type unlockResponse struct {
	GameID     int64  `json:"game_id"`
	UnlockedAt string `json:"unlocked_at"`
	NewBalance int64  `json:"new_balance"`
}

// UnlockGame списывает пунью и открывает игру текущему пользователю.
func (h *Handler) UnlockGame(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	gameID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res, err := h.service.UnlockGame(r.Context(), userID, gameID)
	if err != nil {
		var insufficientErr *repository.InsufficientPunyaError
		switch {
		case errors.As(err, &insufficientErr):
			writeJSON(w, http.StatusPaymentRequired, insufficientPunyaResponse{
				Error:    "insufficient punya",
				Required: insufficientErr.Required,
				Current:  insufficientErr.Current,
			})
		case errors.Is(err, repository.ErrAlreadyUnlocked):
			http.Error(w, "game already unlocked", http.StatusConflict)
		case errors.Is(err, repository.ErrGameNotFound), errors.Is(err, repository.ErrUserNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("unlock game error", zap.Error(err), zap.Int64("userID", userID), zap.Int64("gameID", gameID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, unlockResponse{
		GameID:     res.UserGame.GameID,
		UnlockedAt: res.UserGame.UnlockedAt.Format(time.RFC3339),
		NewBalance: res.NewBalance,
	})
}

type scoreRequest struct {
	Score        int64    `json:"score"`
	DurationSec  *int64   `json:"duration_sec,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

type scoreResponse struct {
	PunyaEarned    int64 `json:"punya_earned"`
	IsNewHighScore bool  `json:"is_new_high_score"`
	HighScore      int64 `json:"high_score"`
	TotalPunya     int64 `json:"total_punya"`
	Performance    int64 `json:"performance"`
}

// SubmitScore фиксирует игровой счёт текущего пользователя.
func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	gameID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	res, err := h.service.SubmitScore(r.Context(), userID, gameID, req.Score, req.Achievements)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidScore):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, repository.ErrGameNotUnlocked):
			http.Error(w, "game not unlocked", http.StatusConflict)
		case errors.Is(err, repository.ErrGameNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("submit score error", zap.Error(err), zap.Int64("userID", userID), zap.Int64("gameID", gameID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, scoreResponse{
		PunyaEarned:    res.PunyaEarned,
		IsNewHighScore: res.IsNewHighScore,
		HighScore:      res.HighScore,
		TotalPunya:     res.TotalPunya,
		Performance:    res.Performance,
	})
}
