package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/gateway"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/model"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/repository"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/reward"
	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/ritual"
)

type stubRepo struct {
	mu sync.Mutex

	user     *model.User
	offering *model.Offering
	game     *model.Game

	saveRitualErr error
	savedRitual   *model.Ritual
	savedStreak   int
	savedBalance  int64

	creditedOnce     bool
	completeCalls    int
	completePayloads []string
	failCalls        int
	failByOrderCalls int

	createdOffering *model.Offering
	gatewayOrderSet string

	scoreArgs struct {
		score            int64
		baseEarned       int64
		achievementBonus int64
		highScoreBonus   float64
	}
	scoreUpdate *repository.ScoreUpdate
}

func (r *stubRepo) Close() error { return nil }

func (r *stubRepo) GetOrCreateUser(_ context.Context, _, _, _ string) (*model.User, error) {
	return r.user, nil
}

func (r *stubRepo) GetUserByID(_ context.Context, _ int64) (*model.User, error) {
	if r.user == nil {
		return nil, repository.ErrUserNotFound
	}
	return r.user, nil
}

func (r *stubRepo) SaveRitual(_ context.Context, rit *model.Ritual, newStreak int, _ string) (int64, int64, error) {
	if r.saveRitualErr != nil {
		return 0, 0, r.saveRitualErr
	}
	r.savedRitual = rit
	r.savedStreak = newStreak
	r.savedBalance = r.user.PunyaBalance + rit.PunyaEarned
	return 1, r.savedBalance, nil
}

func (r *stubRepo) GetRitualsByUser(_ context.Context, _ int64, _ string, _, _ int) ([]model.Ritual, error) {
	return nil, nil
}

func (r *stubRepo) GetBlessingsByUser(_ context.Context, _ int64, _ int) ([]model.Blessing, error) {
	return nil, nil
}

func (r *stubRepo) CreateOffering(_ context.Context, o *model.Offering) error {
	r.createdOffering = o
	return nil
}

func (r *stubRepo) SetOfferingGatewayOrder(_ context.Context, _, gatewayOrderID string) error {
	r.gatewayOrderSet = gatewayOrderID
	return nil
}

func (r *stubRepo) GetOfferingByID(_ context.Context, id string) (*model.Offering, error) {
	if r.offering == nil || r.offering.ID != id {
		return nil, repository.ErrOfferingNotFound
	}
	return r.offering, nil
}

func (r *stubRepo) GetOfferingByGatewayOrder(_ context.Context, gatewayOrderID string) (*model.Offering, error) {
	if r.offering == nil || r.offering.GatewayOrderID == nil || *r.offering.GatewayOrderID != gatewayOrderID {
		return nil, repository.ErrOfferingNotFound
	}
	return r.offering, nil
}

func (r *stubRepo) CompleteOffering(_ context.Context, _, payload string, _ int64, _ string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completeCalls++
	r.completePayloads = append(r.completePayloads, payload)
	if !r.creditedOnce {
		r.creditedOnce = true
		return true, nil
	}
	return false, nil
}

func (r *stubRepo) FailOffering(_ context.Context, _ string, _ *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCalls++
	return nil
}

func (r *stubRepo) FailOfferingByGatewayOrder(_ context.Context, _ string, _ *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failByOrderCalls++
	return nil
}

func (r *stubRepo) GetPendingOfferings(_ context.Context, _ time.Duration, _ int) ([]model.Offering, error) {
	return nil, nil
}

func (r *stubRepo) GetGameByID(_ context.Context, id int64) (*model.Game, error) {
	if r.game == nil || r.game.ID != id {
		return nil, repository.ErrGameNotFound
	}
	return r.game, nil
}

func (r *stubRepo) ListGames(_ context.Context, _ int64) ([]repository.GameListItem, error) {
	return nil, nil
}

func (r *stubRepo) UnlockGame(_ context.Context, userID, gameID int64) (*model.UserGame, error) {
	return &model.UserGame{UserID: userID, GameID: gameID, UnlockedAt: time.Now()}, nil
}

func (r *stubRepo) SubmitScore(_ context.Context, _, _, score, baseEarned, achievementBonus int64, highScoreBonus float64, _ time.Time) (*repository.ScoreUpdate, error) {
	r.scoreArgs.score = score
	r.scoreArgs.baseEarned = baseEarned
	r.scoreArgs.achievementBonus = achievementBonus
	r.scoreArgs.highScoreBonus = highScoreBonus
	return r.scoreUpdate, nil
}

type stubGateway struct {
	mu sync.Mutex

	validSig  bool
	createErr error
	session   *gateway.OrderSession
	status    *gateway.OrderStatus

	statusCalls int
}

func (g *stubGateway) CreateOrder(_ context.Context, _ string, _ int64, _ string, _ gateway.CustomerDetails, _, _ string) (*gateway.OrderSession, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	return g.session, nil
}

func (g *stubGateway) GetOrderStatus(_ context.Context, _ string) (*gateway.OrderStatus, error) {
	g.mu.Lock()
	g.statusCalls++
	g.mu.Unlock()
	if g.status == nil {
		return nil, errors.New("gateway unavailable")
	}
	return g.status, nil
}

func (g *stubGateway) VerifyWebhookSignature(_ string, _ []byte, _ string) bool {
	return g.validSig
}

type stubMailer struct {
	mu    sync.Mutex
	calls int
	sent  chan struct{}
}

func newStubMailer() *stubMailer {
	return &stubMailer{sent: make(chan struct{}, 10)}
}

func (m *stubMailer) Send(_ context.Context, _, _, _ string, _ map[string]any) bool {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	m.sent <- struct{}{}
	return true
}

func (m *stubMailer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestService(repo *stubRepo, gw *stubGateway, mail Mailer) *Service {
	return NewService(repo, gw, mail, ritual.NewStore(5), nil)
}

func TestCompleteRitualFirstRitual(t *testing.T) {
	repo := &stubRepo{
		user: &model.User{ID: 1, ExternalID: "ext-1", Name: "Asha", Email: "asha@example.com"},
	}
	svc := newTestService(repo, &stubGateway{}, nil)

	steps := []string{"dhyana", "avahana", "asana", "snana", "pushpa", "dhupa", "aarti"}

	res, err := svc.CompleteRitual(context.Background(), 1, "ganesha", steps, nil, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Первая пуджа: множитель 1.0. Точная формула закреплена в тестах
	// калькулятора; здесь проверяется проводка через сервис.
	want := reward.ForRitual(len(steps), 0, "ganesha", time.Now(), 1.0)
	if res.PunyaEarned != want {
		t.Fatalf("punya earned: got %d want %d", res.PunyaEarned, want)
	}
	if res.NewStreak != 1 {
		t.Fatalf("new streak: got %d want 1", res.NewStreak)
	}
	if res.LongestStreak != 1 {
		t.Fatalf("longest streak: got %d want 1", res.LongestStreak)
	}
	if res.TotalBalance != want {
		t.Fatalf("total balance: got %d want %d", res.TotalBalance, want)
	}
	if res.Blessing == "" {
		t.Fatal("expected non-empty blessing")
	}
	if repo.savedStreak != 1 {
		t.Fatalf("saved streak: got %d want 1", repo.savedStreak)
	}
}

func TestCompleteRitualStreakMultiplier(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1)
	repo := &stubRepo{
		user: &model.User{ID: 1, CurrentStreak: 2, LongestStreak: 5, LastRitualAt: &yesterday, PunyaBalance: 100},
	}
	svc := newTestService(repo, &stubGateway{}, nil)

	steps := []string{"dhyana", "avahana", "asana", "snana", "pushpa", "dhupa", "aarti"}

	res, err := svc.CompleteRitual(context.Background(), 1, "shiva", steps, nil, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Серия 3 даёт множитель 1.10.
	want := reward.ForRitual(len(steps), 0, "shiva", time.Now(), 1.10)
	if res.PunyaEarned != want {
		t.Fatalf("punya earned: got %d want %d", res.PunyaEarned, want)
	}
	if res.NewStreak != 3 {
		t.Fatalf("new streak: got %d want 3", res.NewStreak)
	}
	if res.LongestStreak != 5 {
		t.Fatalf("longest streak: got %d want 5", res.LongestStreak)
	}
}

func TestCompleteRitualBelowThreshold(t *testing.T) {
	repo := &stubRepo{user: &model.User{ID: 1}}
	svc := newTestService(repo, &stubGateway{}, nil)

	_, err := svc.CompleteRitual(context.Background(), 1, "ganesha", []string{"dhyana", "avahana"}, nil, 0, nil)
	if !errors.Is(err, ErrRitualIncomplete) {
		t.Fatalf("expected ErrRitualIncomplete, got %v", err)
	}
	if repo.savedRitual != nil {
		t.Fatal("ritual must not be saved below threshold")
	}
}

func TestCompleteRitualMergesSessionSteps(t *testing.T) {
	repo := &stubRepo{user: &model.User{ID: 1}}
	svc := newTestService(repo, &stubGateway{}, nil)

	for _, step := range []string{"dhyana", "avahana", "asana", "snana"} {
		svc.RecordStep(1, "ganesha", step)
	}

	// Тело запроса добавляет недостающие шаги, дубликаты не считаются дважды.
	res, err := svc.CompleteRitual(context.Background(), 1, "ganesha", []string{"snana", "pushpa"}, nil, 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.savedRitual.Steps) != 5 {
		t.Fatalf("saved steps: got %d want 5", len(repo.savedRitual.Steps))
	}
	if res.PunyaEarned == 0 {
		t.Fatal("expected non-zero punya")
	}
	if sess := svc.sessions.Snapshot(1, "ganesha"); sess != nil {
		t.Fatal("session must be dropped after completion")
	}
}

func TestCreateOfferingInvalidAmount(t *testing.T) {
	svc := newTestService(&stubRepo{user: &model.User{ID: 1}}, &stubGateway{}, nil)

	_, err := svc.CreateOffering(context.Background(), 1, 0, "ganesha", nil)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCreateOfferingGatewayFailure(t *testing.T) {
	repo := &stubRepo{user: &model.User{ID: 1, ExternalID: "ext-1"}}
	gw := &stubGateway{createErr: errors.New("connection refused")}
	svc := newTestService(repo, gw, nil)

	_, err := svc.CreateOffering(context.Background(), 1, 100, "ganesha", nil)
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected ErrGateway, got %v", err)
	}
	if repo.failCalls != 1 {
		t.Fatalf("fail calls: got %d want 1", repo.failCalls)
	}
}

func TestCreateOfferingOK(t *testing.T) {
	repo := &stubRepo{user: &model.User{ID: 1, ExternalID: "ext-1", Name: "Asha", Email: "asha@example.com"}}
	gw := &stubGateway{session: &gateway.OrderSession{GatewayOrderID: "order-42", PaymentSessionID: "sess-42"}}
	svc := newTestService(repo, gw, nil)

	res, err := svc.CreateOffering(context.Background(), 1, 100, "lakshmi", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.GatewayOrderID != "order-42" || res.PaymentSessionID != "sess-42" {
		t.Fatalf("unexpected session: %+v", res)
	}
	if repo.createdOffering == nil || repo.createdOffering.Status != model.OfferingStatusPending {
		t.Fatalf("offering must be created as PENDING, got %+v", repo.createdOffering)
	}
	if repo.gatewayOrderSet != "order-42" {
		t.Fatalf("gateway order not recorded: %q", repo.gatewayOrderSet)
	}
}

func webhookBody(orderID, status string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"PAYMENT_WEBHOOK","data":{"order":{"order_id":%q,"order_amount":100},"payment":{"payment_status":%q}}}`,
		orderID, status,
	))
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(repo, &stubGateway{validSig: false}, nil)

	err := svc.HandleWebhook(context.Background(), webhookBody("order-1", "SUCCESS"), "bad", "123")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if repo.completeCalls != 0 {
		t.Fatal("offering must not be completed on bad signature")
	}
}

func TestHandleWebhookSuccessDeliveredTwice(t *testing.T) {
	orderID := "order-1"
	repo := &stubRepo{
		user: &model.User{ID: 1, Email: "asha@example.com"},
		offering: &model.Offering{
			ID:             "off-1",
			UserID:         1,
			DeityID:        "ganesha",
			Amount:         100,
			Status:         model.OfferingStatusPending,
			GatewayOrderID: &orderID,
		},
	}
	mail := newStubMailer()
	svc := newTestService(repo, &stubGateway{validSig: true}, mail)

	body := webhookBody(orderID, "SUCCESS")

	if err := svc.HandleWebhook(context.Background(), body, "sig", "123"); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	select {
	case <-mail.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation email was not sent")
	}

	// Повторная доставка: условное обновление не срабатывает, письмо не дублируется.
	if err := svc.HandleWebhook(context.Background(), body, "sig", "456"); err != nil {
		t.Fatalf("second delivery: %v", err)
	}

	if repo.completeCalls != 2 {
		t.Fatalf("complete calls: got %d want 2", repo.completeCalls)
	}
	// Вебхук сохраняет сырое тело как снимок шлюза.
	if repo.completePayloads[0] != string(body) {
		t.Fatalf("payload: got %q want raw webhook body", repo.completePayloads[0])
	}

	time.Sleep(100 * time.Millisecond)
	if got := mail.callCount(); got != 1 {
		t.Fatalf("email count: got %d want 1", got)
	}
}

func TestHandleWebhookFailureStatus(t *testing.T) {
	orderID := "order-1"
	repo := &stubRepo{
		offering: &model.Offering{ID: "off-1", UserID: 1, Status: model.OfferingStatusPending, GatewayOrderID: &orderID},
	}
	svc := newTestService(repo, &stubGateway{validSig: true}, nil)

	if err := svc.HandleWebhook(context.Background(), webhookBody(orderID, "USER_DROPPED"), "sig", "123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.failByOrderCalls != 1 {
		t.Fatalf("fail-by-order calls: got %d want 1", repo.failByOrderCalls)
	}
	if repo.completeCalls != 0 {
		t.Fatal("offering must not be completed on failure status")
	}
}

func TestHandleWebhookAmbiguousStatus(t *testing.T) {
	orderID := "order-1"
	repo := &stubRepo{
		offering: &model.Offering{ID: "off-1", UserID: 1, Status: model.OfferingStatusPending, GatewayOrderID: &orderID},
	}
	svc := newTestService(repo, &stubGateway{validSig: true}, nil)

	if err := svc.HandleWebhook(context.Background(), webhookBody(orderID, "PENDING"), "sig", "123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.completeCalls != 0 || repo.failByOrderCalls != 0 {
		t.Fatal("ambiguous status must leave the offering untouched")
	}
}

func TestVerifyPaymentTerminalShortCircuit(t *testing.T) {
	orderID := "order-1"
	repo := &stubRepo{
		offering: &model.Offering{ID: "off-1", UserID: 1, Amount: 100, Status: model.OfferingStatusCompleted, GatewayOrderID: &orderID},
	}
	gw := &stubGateway{}
	svc := newTestService(repo, gw, nil)

	res, err := svc.VerifyPayment(context.Background(), 1, "off-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Paid || res.Status != model.OfferingStatusCompleted {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gw.statusCalls != 0 {
		t.Fatal("gateway must not be polled for a terminal offering")
	}
}

func TestVerifyPaymentWrongOwner(t *testing.T) {
	repo := &stubRepo{
		offering: &model.Offering{ID: "off-1", UserID: 2, Status: model.OfferingStatusPending},
	}
	svc := newTestService(repo, &stubGateway{}, nil)

	_, err := svc.VerifyPayment(context.Background(), 1, "off-1")
	if !errors.Is(err, repository.ErrOfferingNotFound) {
		t.Fatalf("expected ErrOfferingNotFound, got %v", err)
	}
}

func TestVerifyPaymentPendingSuccess(t *testing.T) {
	orderID := "order-1"
	repo := &stubRepo{
		user:     &model.User{ID: 1, Email: "asha@example.com"},
		offering: &model.Offering{ID: "off-1", UserID: 1, Amount: 100, Status: model.OfferingStatusPending, GatewayOrderID: &orderID},
	}
	gw := &stubGateway{status: &gateway.OrderStatus{GatewayOrderID: orderID, Status: "PAID", Amount: 100}}
	svc := newTestService(repo, gw, nil)

	res, err := svc.VerifyPayment(context.Background(), 1, "off-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Paid || res.Status != model.OfferingStatusCompleted {
		t.Fatalf("unexpected result: %+v", res)
	}
	if repo.completeCalls != 1 {
		t.Fatalf("complete calls: got %d want 1", repo.completeCalls)
	}
	// Синхронная проверка не несёт тела вебхука: пустая нагрузка означает
	// «сохранить уже записанный снимок», хранилище её не затирает.
	if repo.completePayloads[0] != "" {
		t.Fatalf("payload: got %q want empty", repo.completePayloads[0])
	}
}

func TestSubmitScoreValidation(t *testing.T) {
	repo := &stubRepo{game: &model.Game{ID: 7, MaxScore: 1000}}
	svc := newTestService(repo, &stubGateway{}, nil)

	if _, err := svc.SubmitScore(context.Background(), 1, 7, -1, nil); !errors.Is(err, ErrInvalidScore) {
		t.Fatalf("negative score: expected ErrInvalidScore, got %v", err)
	}
	if _, err := svc.SubmitScore(context.Background(), 1, 7, 1001, nil); !errors.Is(err, ErrInvalidScore) {
		t.Fatalf("score above max: expected ErrInvalidScore, got %v", err)
	}
}

func TestSubmitScoreOK(t *testing.T) {
	repo := &stubRepo{
		game:        &model.Game{ID: 7, MaxScore: 1000},
		scoreUpdate: &repository.ScoreUpdate{PunyaEarned: 26, IsNewHighScore: true, HighScore: 430, NewBalance: 126},
	}
	svc := newTestService(repo, &stubGateway{}, nil)

	res, err := svc.SubmitScore(context.Background(), 1, 7, 430, []string{"perfect-round", "no-miss"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.scoreArgs.baseEarned != 4 {
		t.Fatalf("base earned: got %d want 4", repo.scoreArgs.baseEarned)
	}
	if repo.scoreArgs.achievementBonus != 20 {
		t.Fatalf("achievement bonus: got %d want 20", repo.scoreArgs.achievementBonus)
	}
	if !res.IsNewHighScore || res.HighScore != 430 || res.TotalPunya != 126 {
		t.Fatalf("unexpected result: %+v", res)
	}
	// 430 из 1000 соответствует корзине 25.
	if res.Performance != 25 {
		t.Fatalf("performance: got %d want 25", res.Performance)
	}
}
