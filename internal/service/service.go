// Package service реализует бизнес-логику пунья-сервиса.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/gateway"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/model"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/repository"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/reward"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/ritual"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/streak"
)

// ErrInvalidAmount возвращается при сумме подношения меньше минимальной.
var (
	ErrInvalidAmount = errors.New("offering amount must be at least 1")
	// ErrInvalidScore возвращается при отрицательном или превышающем максимум счёте.
	ErrInvalidScore = errors.New("invalid score")
	// ErrInvalidSignature возвращается при неверной подписи вебхука.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrRitualIncomplete возвращается при попытке завершить пуджу до порога.
	ErrRitualIncomplete = errors.New("ritual step threshold not reached")
	// ErrGateway возвращается при ошибке платёжного шлюза.
	ErrGateway = errors.New("payment gateway error")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	GetOrCreateUser(ctx context.Context, externalID, name, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	SaveRitual(ctx context.Context, rit *model.Ritual, newStreak int, blessing string) (int64, int64, error)
	GetRitualsByUser(ctx context.Context, userID int64, deityID string, page, limit int) ([]model.Ritual, error)
	GetBlessingsByUser(ctx context.Context, userID int64, limit int) ([]model.Blessing, error)
	CreateOffering(ctx context.Context, o *model.Offering) error
	SetOfferingGatewayOrder(ctx context.Context, offeringID, gatewayOrderID string) error
	GetOfferingByID(ctx context.Context, id string) (*model.Offering, error)
	GetOfferingByGatewayOrder(ctx context.Context, gatewayOrderID string) (*model.Offering, error)
	CompleteOffering(ctx context.Context, gatewayOrderID, payload string, bonus int64, blessing string) (bool, error)
	FailOffering(ctx context.Context, offeringID string, payload *string) error
	FailOfferingByGatewayOrder(ctx context.Context, gatewayOrderID string, payload *string) error
	GetPendingOfferings(ctx context.Context, olderThan time.Duration, limit int) ([]model.Offering, error)
	GetGameByID(ctx context.Context, id int64) (*model.Game, error)
	ListGames(ctx context.Context, userID int64) ([]repository.GameListItem, error)
	UnlockGame(ctx context.Context, userID, gameID int64) (*model.UserGame, error)
	SubmitScore(ctx context.Context, userID, gameID, score, baseEarned, achievementBonus int64, highScoreBonus float64, now time.Time) (*repository.ScoreUpdate, error)
}

// Gateway описывает контракт платёжного шлюза.
type Gateway interface {
	CreateOrder(ctx context.Context, orderID string, amount int64, currency string, customer gateway.CustomerDetails, returnURL, notifyURL string) (*gateway.OrderSession, error)
	GetOrderStatus(ctx context.Context, gatewayOrderID string) (*gateway.OrderStatus, error)
	VerifyWebhookSignature(timestamp string, rawBody []byte, signature string) bool
}

// Mailer описывает контракт сервиса транзакционных писем.
type Mailer interface {
	Send(ctx context.Context, to, subject, templateID string, data map[string]any) bool
}

// Service содержит бизнес-логику пунья-сервиса.
type Service struct {
	repo     Repository
	gw       Gateway
	mail     Mailer
	sessions *ritual.Store
	logger   *zap.Logger
}

// NewService создаёт новый сервис с указанными зависимостями.
func NewService(repo Repository, gw Gateway, mail Mailer, sessions *ritual.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		gw:       gw,
		mail:     mail,
		sessions: sessions,
		logger:   logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// ResolvePrincipal возвращает пользователя по данным провайдера идентификации,
// создавая профиль при первом обращении.
func (s *Service) ResolvePrincipal(ctx context.Context, externalID, name, email string) (*model.User, error) {
	return s.repo.GetOrCreateUser(ctx, externalID, name, email)
}

// GetUser возвращает профиль пользователя.
func (s *Service) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// RecordStep регистрирует шаг пуджи в сессии пользователя.
func (s *Service) RecordStep(userID int64, deityID, stepID string) ritual.StepResult {
	return s.sessions.RecordStep(userID, deityID, stepID, time.Now())
}

// RecordGesture регистрирует жест в сессии пользователя.
func (s *Service) RecordGesture(userID int64, deityID, gestureID string) {
	s.sessions.RecordGesture(userID, deityID, gestureID)
}

// RestartRitual сбрасывает сессию пуджи; запись о пудже не создаётся.
func (s *Service) RestartRitual(userID int64, deityID string) {
	s.sessions.Restart(userID, deityID)
}

// RitualResult описывает итог завершённой пуджи.
type RitualResult struct {
	RitualID      int64
	PunyaEarned   int64
	NewStreak     int
	LongestStreak int
	TotalBalance  int64
	Blessing      string
}

// CompleteRitual завершает пуджу: вычисляет начисление и серию,
// затем фиксирует результат единой транзакцией.
func (s *Service) CompleteRitual(ctx context.Context, userID int64, deityID string, steps, gestures []string, offeringAmount int64, durationSec *int64) (*RitualResult, error) {
	// Шаги из тела запроса объединяются с накопленными в сессии.
	if sess := s.sessions.Snapshot(userID, deityID); sess != nil {
		steps = union(steps, sess.Steps)
		gestures = union(gestures, sess.Gestures)
	}

	if len(steps) < s.sessions.Threshold() {
		return nil, ErrRitualIncomplete
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	st := streak.Update(user.LastRitualAt, user.CurrentStreak, now)
	punya := reward.ForRitual(len(steps), offeringAmount, deityID, now, st.Multiplier)

	rit := &model.Ritual{
		UserID:         userID,
		DeityID:        deityID,
		Steps:          steps,
		Gestures:       gestures,
		PunyaEarned:    punya,
		OfferingAmount: offeringAmount,
		DurationSec:    durationSec,
		CompletedAt:    now,
	}

	blessing := blessingFor(deityID)

	ritualID, newBalance, err := s.repo.SaveRitual(ctx, rit, st.NewStreak, blessing)
	if err != nil {
		return nil, err
	}

	s.sessions.Drop(userID, deityID)

	longest := user.LongestStreak
	if st.NewStreak > longest {
		longest = st.NewStreak
	}

	return &RitualResult{
		RitualID:      ritualID,
		PunyaEarned:   punya,
		NewStreak:     st.NewStreak,
		LongestStreak: longest,
		TotalBalance:  newBalance,
		Blessing:      blessing,
	}, nil
}

// GetRitualsByUser возвращает страницу истории пудж пользователя.
func (s *Service) GetRitualsByUser(ctx context.Context, userID int64, deityID string, page, limit int) ([]model.Ritual, error) {
	return s.repo.GetRitualsByUser(ctx, userID, deityID, page, limit)
}

// GetBlessingsByUser возвращает благословения пользователя.
func (s *Service) GetBlessingsByUser(ctx context.Context, userID int64, limit int) ([]model.Blessing, error) {
	return s.repo.GetBlessingsByUser(ctx, userID, limit)
}

// OfferingSession описывает созданное подношение и платёжную сессию шлюза.
type OfferingSession struct {
	OfferingID       string
	GatewayOrderID   string
	PaymentSessionID string
}

// CreateOffering создаёт подношение в статусе PENDING и заказ в платёжном шлюзе.
// При ошибке шлюза подношение сразу переводится в FAILED, повторов на этом слое нет.
func (s *Service) CreateOffering(ctx context.Context, userID, amount int64, deityID string, ritualID *int64) (*OfferingSession, error) {
	if amount < 1 {
		return nil, ErrInvalidAmount
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	offering := &model.Offering{
		ID:       uuid.NewString(),
		UserID:   userID,
		RitualID: ritualID,
		DeityID:  deityID,
		Amount:   amount,
		Status:   model.OfferingStatusPending,
	}

	if err := s.repo.CreateOffering(ctx, offering); err != nil {
		return nil, err
	}

	customer := gateway.CustomerDetails{
		CustomerID:    user.ExternalID,
		CustomerName:  user.Name,
		CustomerEmail: user.Email,
	}

	session, err := s.gw.CreateOrder(ctx, offering.ID, amount, "INR", customer, "", "")
	if err != nil {
		if failErr := s.repo.FailOffering(ctx, offering.ID, nil); failErr != nil {
			s.logger.Error("fail offering after gateway error", zap.Error(failErr), zap.String("offering", offering.ID))
		}
		return nil, fmt.Errorf("%w: %s", ErrGateway, err)
	}

	if err := s.repo.SetOfferingGatewayOrder(ctx, offering.ID, session.GatewayOrderID); err != nil {
		return nil, err
	}

	return &OfferingSession{
		OfferingID:       offering.ID,
		GatewayOrderID:   session.GatewayOrderID,
		PaymentSessionID: session.PaymentSessionID,
	}, nil
}

// webhookPayload описывает полезную нагрузку вебхука платёжного шлюза.
type webhookPayload struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID     string `json:"order_id"`
			OrderAmount int64  `json:"order_amount"`
		} `json:"order"`
		Payment struct {
			PaymentStatus string `json:"payment_status"`
		} `json:"payment"`
	} `json:"data"`
}

// successStatuses — семейство статусов шлюза, означающих успешную оплату.
var successStatuses = map[string]struct{}{
	"SUCCESS": {},
	"PAID":    {},
}

// failureStatuses — семейство терминальных неуспешных статусов шлюза.
var failureStatuses = map[string]struct{}{
	"FAILED":       {},
	"CANCELLED":    {},
	"VOID":         {},
	"USER_DROPPED": {},
	"EXPIRED":      {},
}

// HandleWebhook сверяет подношение по вебхуку шлюза. Подпись проверяется
// до разбора полезной нагрузки; неоднозначные статусы оставляют PENDING.
// Повторная доставка того же вебхука безопасна: переход в COMPLETED —
// условное обновление, срабатывающее не более одного раза.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signature, timestamp string) error {
	if !s.gw.VerifyWebhookSignature(timestamp, rawBody, signature) {
		return ErrInvalidSignature
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return fmt.Errorf("decode webhook: %w", err)
	}

	orderID := payload.Data.Order.OrderID
	if orderID == "" {
		return fmt.Errorf("webhook without order id")
	}

	status := payload.Data.Payment.PaymentStatus

	if _, ok := successStatuses[status]; ok {
		return s.completeOffering(ctx, orderID, string(rawBody))
	}

	if _, ok := failureStatuses[status]; ok {
		body := string(rawBody)
		return s.repo.FailOfferingByGatewayOrder(ctx, orderID, &body)
	}

	// Неоднозначный статус: терминальный переход не выполняется,
	// сверку завершит вебхук повторной доставки либо фоновый опрос.
	return nil
}

// completeOffering — единственный путь перевода подношения в COMPLETED,
// общий для вебхука, синхронной проверки и фонового опроса.
func (s *Service) completeOffering(ctx context.Context, gatewayOrderID, payload string) error {
	offering, err := s.repo.GetOfferingByGatewayOrder(ctx, gatewayOrderID)
	if err != nil {
		return err
	}

	bonus := reward.OfferingBonus(offering.Amount)
	blessing := specialBlessingFor(offering.DeityID)

	credited, err := s.repo.CompleteOffering(ctx, gatewayOrderID, payload, bonus, blessing)
	if err != nil {
		return err
	}

	if credited {
		s.notifyOfferingCompleted(offering, bonus)
	}

	return nil
}

// notifyOfferingCompleted отправляет письмо-подтверждение после фиксации
// перехода. Отправка идёт вне транзакции и не влияет на результат сверки.
func (s *Service) notifyOfferingCompleted(offering *model.Offering, bonus int64) {
	if s.mail == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		user, err := s.repo.GetUserByID(ctx, offering.UserID)
		if err != nil {
			s.logger.Warn("offering email: get user", zap.Error(err), zap.String("offering", offering.ID))
			return
		}

		ok := s.mail.Send(ctx, user.Email, "Your offering has been received", "offering-confirmation", map[string]any{
			"name":   user.Name,
			"deity":  offering.DeityID,
			"amount": offering.Amount,
			"punya":  bonus,
		})
		if !ok {
			s.logger.Warn("offering email not sent", zap.String("offering", offering.ID))
		}
	}()
}

// VerifyResult описывает итог синхронной проверки оплаты.
type VerifyResult struct {
	Paid   bool
	Amount int64
	Status model.OfferingStatus
}

// VerifyPayment — синхронная альтернатива вебхуку: опрашивает статус заказа
// в шлюзе и проводит подношение тем же идемпотентным путём.
func (s *Service) VerifyPayment(ctx context.Context, userID int64, offeringID string) (*VerifyResult, error) {
	offering, err := s.repo.GetOfferingByID(ctx, offeringID)
	if err != nil {
		return nil, err
	}
	if offering.UserID != userID {
		return nil, repository.ErrOfferingNotFound
	}

	if offering.Status != model.OfferingStatusPending {
		return &VerifyResult{
			Paid:   offering.Status == model.OfferingStatusCompleted,
			Amount: offering.Amount,
			Status: offering.Status,
		}, nil
	}

	if offering.GatewayOrderID == nil {
		return &VerifyResult{Paid: false, Amount: offering.Amount, Status: offering.Status}, nil
	}

	orderStatus, err := s.gw.GetOrderStatus(ctx, *offering.GatewayOrderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrGateway, err)
	}

	if _, ok := successStatuses[orderStatus.Status]; ok {
		if err := s.completeOffering(ctx, *offering.GatewayOrderID, ""); err != nil {
			return nil, err
		}
		return &VerifyResult{Paid: true, Amount: offering.Amount, Status: model.OfferingStatusCompleted}, nil
	}

	if _, ok := failureStatuses[orderStatus.Status]; ok {
		if err := s.repo.FailOfferingByGatewayOrder(ctx, *offering.GatewayOrderID, nil); err != nil {
			return nil, err
		}
		return &VerifyResult{Paid: false, Amount: offering.Amount, Status: model.OfferingStatusFailed}, nil
	}

	return &VerifyResult{Paid: false, Amount: offering.Amount, Status: model.OfferingStatusPending}, nil
}

// UnlockResult описывает итог открытия игры.
type UnlockResult struct {
	UserGame   *model.UserGame
	NewBalance int64
}

// UnlockGame списывает стоимость игры и открывает её пользователю.
func (s *Service) UnlockGame(ctx context.Context, userID, gameID int64) (*UnlockResult, error) {
	ug, err := s.repo.UnlockGame(ctx, userID, gameID)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UnlockResult{UserGame: ug, NewBalance: user.PunyaBalance}, nil
}

// ScoreResult описывает итог отправки игрового счёта.
type ScoreResult struct {
	PunyaEarned    int64
	IsNewHighScore bool
	HighScore      int64
	TotalPunya     int64
	Performance    int64
}

// SubmitScore начисляет пунью за игровую сессию и обновляет рекорд.
func (s *Service) SubmitScore(ctx context.Context, userID, gameID, score int64, achievements []string) (*ScoreResult, error) {
	if score < 0 {
		return nil, ErrInvalidScore
	}

	game, err := s.repo.GetGameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.MaxScore > 0 && score > game.MaxScore {
		return nil, ErrInvalidScore
	}

	baseEarned := score / reward.GameScoreDivisor
	achievementBonus := int64(len(achievements)) * reward.AchievementBonus

	upd, err := s.repo.SubmitScore(ctx, userID, gameID, score, baseEarned, achievementBonus, reward.HighScoreBonus, time.Now())
	if err != nil {
		return nil, err
	}

	return &ScoreResult{
		PunyaEarned:    upd.PunyaEarned,
		IsNewHighScore: upd.IsNewHighScore,
		HighScore:      upd.HighScore,
		TotalPunya:     upd.NewBalance,
		Performance:    reward.ForGame(score, game.MaxScore),
	}, nil
}

// ListGames возвращает каталог игр с признаком открытия.
func (s *Service) ListGames(ctx context.Context, userID int64) ([]repository.GameListItem, error) {
	return s.repo.ListGames(ctx, userID)
}

// StartReconciliation запускает фоновый процесс сверки зависших подношений со шлюзом.
func (s *Service) StartReconciliation(ctx context.Context) {
	if s.gw == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.reconcilePendingBatch(ctx)
			}
		}
	}()
}

func (s *Service) reconcilePendingBatch(ctx context.Context) {
	offerings, err := s.repo.GetPendingOfferings(ctx, time.Minute, 100)
	if err != nil {
		s.logger.Warn("reconcile: select pending", zap.Error(err))
		return
	}

	for _, o := range offerings {
		orderStatus, err := s.gw.GetOrderStatus(ctx, *o.GatewayOrderID)
		if err != nil {
			continue
		}

		if _, ok := successStatuses[orderStatus.Status]; ok {
			if err := s.completeOffering(ctx, *o.GatewayOrderID, ""); err != nil {
				s.logger.Warn("reconcile: complete offering", zap.Error(err), zap.String("offering", o.ID))
			}
			continue
		}

		if _, ok := failureStatuses[orderStatus.Status]; ok {
			if err := s.repo.FailOfferingByGatewayOrder(ctx, *o.GatewayOrderID, nil); err != nil {
				s.logger.Warn("reconcile: fail offering", zap.Error(err), zap.String("offering", o.ID))
			}
		}
	}
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range a {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
