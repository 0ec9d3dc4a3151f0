// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/SenTheOpsGuy/holy-company-platform-sub000/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserNotFound возвращается, если пользователь не найден.
var (
	ErrUserNotFound = errors.New("user not found")
	// ErrGameNotFound возвращается, если игра не найдена в каталоге.
	ErrGameNotFound = errors.New("game not found")
	// ErrOfferingNotFound возвращается, если подношение не найдено.
	ErrOfferingNotFound = errors.New("offering not found")
	// ErrAlreadyUnlocked возвращается при повторной попытке открыть игру.
	ErrAlreadyUnlocked = errors.New("game already unlocked")
	// ErrGameNotUnlocked возвращается при отправке счёта в неоткрытую игру.
	ErrGameNotUnlocked = errors.New("game not unlocked")
)

// InsufficientPunyaError возвращается при попытке списания, превышающего баланс.
type InsufficientPunyaError struct {
	Required int64
	Current  int64
}

func (e *InsufficientPunyaError) Error() string {
	return fmt.Sprintf("insufficient punya: required %d, current %d", e.Required, e.Current)
}

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи полезны для Serialization Failure или Deadlocks.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// GetOrCreateUser возвращает пользователя по внешнему идентификатору,
// создавая профиль при первом аутентифицированном обращении.
func (r *PostgresRepository) GetOrCreateUser(ctx context.Context, externalID, name, email string) (*model.User, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (external_id, name, email) VALUES ($1, $2, $3)
		 ON CONFLICT (external_id) DO NOTHING`,
		externalID, name, email,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`SELECT id, external_id, name, email, punya_balance, current_streak, longest_streak, last_ritual_at, created_at
		 FROM users WHERE external_id = $1`,
		externalID,
	)

	return scanUser(row)
}

// GetUserByID возвращает пользователя по внутреннему идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, external_id, name, email, punya_balance, current_streak, longest_streak, last_ritual_at, created_at
		 FROM users WHERE id = $1`,
		id,
	)

	return scanUser(row)
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.PunyaBalance,
		&u.CurrentStreak, &u.LongestStreak, &u.LastRitualAt, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// SaveRitual фиксирует завершённую пуджу единой транзакцией: запись о пудже,
// начисление пуньи, обновление серии и благословение либо сохраняются вместе,
// либо не сохраняются вовсе.
func (r *PostgresRepository) SaveRitual(ctx context.Context, rit *model.Ritual, newStreak int, blessing string) (int64, int64, error) {
	var ritualID int64
	var newBalance int64

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		err = tx.QueryRow(ctx,
			`INSERT INTO rituals (user_id, deity_id, steps, gestures, punya_earned, offering_amount, duration_sec, completed_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			rit.UserID, rit.DeityID, rit.Steps, rit.Gestures, rit.PunyaEarned,
			rit.OfferingAmount, rit.DurationSec, rit.CompletedAt,
		).Scan(&ritualID)
		if err != nil {
			return fmt.Errorf("insert ritual: %w", err)
		}

		// longest_streak — монотонный максимум, current_streak никогда его не превышает.
		err = tx.QueryRow(ctx,
			`UPDATE users
			 SET punya_balance = punya_balance + $2,
			     current_streak = $3,
			     longest_streak = GREATEST(longest_streak, $3),
			     last_ritual_at = $4
			 WHERE id = $1
			 RETURNING punya_balance`,
			rit.UserID, rit.PunyaEarned, newStreak, rit.CompletedAt,
		).Scan(&newBalance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("update user: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO blessings (user_id, ritual_id, deity_id, message, is_special)
			 VALUES ($1, $2, $3, $4, false)`,
			rit.UserID, ritualID, rit.DeityID, blessing,
		)
		if err != nil {
			return fmt.Errorf("insert blessing: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return ritualID, newBalance, nil
}

// GetRitualsByUser возвращает страницу истории пудж пользователя,
// при непустом deityID — только по указанному божеству.
func (r *PostgresRepository) GetRitualsByUser(ctx context.Context, userID int64, deityID string, page, limit int) ([]model.Ritual, error) {
	offset := (page - 1) * limit

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, deity_id, steps, gestures, punya_earned, offering_amount, duration_sec, completed_at
		 FROM rituals
		 WHERE user_id = $1 AND ($2 = '' OR deity_id = $2)
		 ORDER BY completed_at DESC
		 LIMIT $3 OFFSET $4`,
		userID, deityID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("select rituals: %w", err)
	}
	defer rows.Close()

	var res []model.Ritual
	for rows.Next() {
		var rit model.Ritual
		if err := rows.Scan(&rit.ID, &rit.UserID, &rit.DeityID, &rit.Steps, &rit.Gestures,
			&rit.PunyaEarned, &rit.OfferingAmount, &rit.DurationSec, &rit.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan ritual: %w", err)
		}
		res = append(res, rit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetBlessingsByUser возвращает благословения пользователя, новые первыми.
func (r *PostgresRepository) GetBlessingsByUser(ctx context.Context, userID int64, limit int) ([]model.Blessing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, ritual_id, deity_id, message, is_special, created_at
		 FROM blessings
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select blessings: %w", err)
	}
	defer rows.Close()

	var res []model.Blessing
	for rows.Next() {
		var b model.Blessing
		if err := rows.Scan(&b.ID, &b.UserID, &b.RitualID, &b.DeityID, &b.Message, &b.IsSpecial, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blessing: %w", err)
		}
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateOffering сохраняет подношение в статусе PENDING.
func (r *PostgresRepository) CreateOffering(ctx context.Context, o *model.Offering) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO offerings (id, user_id, ritual_id, deity_id, amount, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.UserID, o.RitualID, o.DeityID, o.Amount, string(model.OfferingStatusPending),
	)
	if err != nil {
		return fmt.Errorf("insert offering: %w", err)
	}
	return nil
}

// SetOfferingGatewayOrder привязывает подношение к заказу платёжного шлюза.
func (r *PostgresRepository) SetOfferingGatewayOrder(ctx context.Context, offeringID, gatewayOrderID string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE offerings SET gateway_order_id = $2 WHERE id = $1`,
		offeringID, gatewayOrderID,
	)
	if err != nil {
		return fmt.Errorf("set gateway order: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOfferingNotFound
	}
	return nil
}

// GetOfferingByID возвращает подношение по идентификатору.
func (r *PostgresRepository) GetOfferingByID(ctx context.Context, id string) (*model.Offering, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, ritual_id, deity_id, amount, status, gateway_order_id, gateway_payload, created_at, completed_at
		 FROM offerings WHERE id = $1`,
		id,
	)
	return scanOffering(row)
}

// GetOfferingByGatewayOrder возвращает подношение по идентификатору заказа шлюза.
func (r *PostgresRepository) GetOfferingByGatewayOrder(ctx context.Context, gatewayOrderID string) (*model.Offering, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, ritual_id, deity_id, amount, status, gateway_order_id, gateway_payload, created_at, completed_at
		 FROM offerings WHERE gateway_order_id = $1`,
		gatewayOrderID,
	)
	return scanOffering(row)
}

func scanOffering(row pgx.Row) (*model.Offering, error) {
	var o model.Offering
	var status string
	err := row.Scan(&o.ID, &o.UserID, &o.RitualID, &o.DeityID, &o.Amount, &status,
		&o.GatewayOrderID, &o.GatewayPayload, &o.CreatedAt, &o.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferingNotFound
		}
		return nil, fmt.Errorf("get offering: %w", err)
	}
	o.Status = model.OfferingStatus(status)
	return &o, nil
}

// CompleteOffering переводит подношение в COMPLETED по условному обновлению,
// начисляя бонус и создавая особое благословение только при первом переходе.
// Повторный вызов с тем же заказом шлюза — безопасный no-op.
func (r *PostgresRepository) CompleteOffering(ctx context.Context, gatewayOrderID, payload string, bonus int64, blessing string) (bool, error) {
	credited := false

	err := r.withRetry(ctx, func() error {
		credited = false

		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		// Условное обновление гарантирует единственный терминальный переход:
		// проигравший гонку вызов не увидит строки в статусе PENDING.
		var userID int64
		var ritualID *int64
		var deityID string
		// Пустая полезная нагрузка (синхронная проверка, фоновый опрос)
		// не затирает снимок вебхука.
		err = tx.QueryRow(ctx,
			`UPDATE offerings
			 SET status = $2, gateway_payload = COALESCE(NULLIF($3, ''), gateway_payload), completed_at = now()
			 WHERE gateway_order_id = $1 AND status = $4
			 RETURNING user_id, ritual_id, deity_id`,
			gatewayOrderID, string(model.OfferingStatusCompleted), payload, string(model.OfferingStatusPending),
		).Scan(&userID, &ritualID, &deityID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Уже в терминальном статусе либо заказ неизвестен.
				return tx.Commit(ctx)
			}
			return fmt.Errorf("complete offering: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE users SET punya_balance = punya_balance + $2 WHERE id = $1`,
			userID, bonus,
		)
		if err != nil {
			return fmt.Errorf("credit bonus: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO blessings (user_id, ritual_id, deity_id, message, is_special)
			 VALUES ($1, $2, $3, $4, true)`,
			userID, ritualID, deityID, blessing,
		)
		if err != nil {
			return fmt.Errorf("insert blessing: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		credited = true
		return nil
	})

	return credited, err
}

// FailOffering переводит подношение из PENDING в FAILED. Терминальные статусы
// не изменяются; побочных начислений у неуспеха нет.
func (r *PostgresRepository) FailOffering(ctx context.Context, offeringID string, payload *string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE offerings
		 SET status = $2, gateway_payload = COALESCE($3, gateway_payload), completed_at = now()
		 WHERE id = $1 AND status = $4`,
		offeringID, string(model.OfferingStatusFailed), payload, string(model.OfferingStatusPending),
	)
	if err != nil {
		return fmt.Errorf("fail offering: %w", err)
	}
	return nil
}

// FailOfferingByGatewayOrder переводит подношение в FAILED по заказу шлюза.
func (r *PostgresRepository) FailOfferingByGatewayOrder(ctx context.Context, gatewayOrderID string, payload *string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE offerings
		 SET status = $2, gateway_payload = COALESCE($3, gateway_payload), completed_at = now()
		 WHERE gateway_order_id = $1 AND status = $4`,
		gatewayOrderID, string(model.OfferingStatusFailed), payload, string(model.OfferingStatusPending),
	)
	if err != nil {
		return fmt.Errorf("fail offering: %w", err)
	}
	return nil
}

// GetPendingOfferings возвращает подношения, ожидающие сверки со шлюзом
// дольше указанного срока.
func (r *PostgresRepository) GetPendingOfferings(ctx context.Context, olderThan time.Duration, limit int) ([]model.Offering, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, ritual_id, deity_id, amount, status, gateway_order_id, gateway_payload, created_at, completed_at
		 FROM offerings
		 WHERE status = $1 AND gateway_order_id IS NOT NULL AND created_at < now() - $2::interval
		 ORDER BY created_at
		 LIMIT $3`,
		string(model.OfferingStatusPending), olderThan.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select pending offerings: %w", err)
	}
	defer rows.Close()

	var res []model.Offering
	for rows.Next() {
		var o model.Offering
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &o.RitualID, &o.DeityID, &o.Amount, &status,
			&o.GatewayOrderID, &o.GatewayPayload, &o.CreatedAt, &o.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan offering: %w", err)
		}
		o.Status = model.OfferingStatus(status)
		res = append(res, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetGameByID возвращает игру из каталога.
func (r *PostgresRepository) GetGameByID(ctx context.Context, id int64) (*model.Game, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, slug, title, required_punya, max_score FROM games WHERE id = $1`,
		id,
	)

	var g model.Game
	if err := row.Scan(&g.ID, &g.Slug, &g.Title, &g.RequiredPunya, &g.MaxScore); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("get game: %w", err)
	}

	return &g, nil
}

// GameListItem описывает игру каталога вместе с состоянием открытия для пользователя.
type GameListItem struct {
	Game     model.Game
	Unlocked bool
}

// ListGames возвращает каталог игр с признаком открытия для пользователя.
func (r *PostgresRepository) ListGames(ctx context.Context, userID int64) ([]GameListItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT g.id, g.slug, g.title, g.required_punya, g.max_score, ug.user_id IS NOT NULL
		 FROM games g
		 LEFT JOIN user_games ug ON ug.game_id = g.id AND ug.user_id = $1
		 ORDER BY g.required_punya, g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select games: %w", err)
	}
	defer rows.Close()

	var res []GameListItem
	for rows.Next() {
		var item GameListItem
		if err := rows.Scan(&item.Game.ID, &item.Game.Slug, &item.Game.Title,
			&item.Game.RequiredPunya, &item.Game.MaxScore, &item.Unlocked); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		res = append(res, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UnlockGame атомарно списывает стоимость игры и создаёт запись об открытии.
// Строка пользователя блокируется для сериализации параллельных списаний.
func (r *PostgresRepository) UnlockGame(ctx context.Context, userID, gameID int64) (*model.UserGame, error) {
	var ug model.UserGame

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var balance int64
		err = tx.QueryRow(ctx,
			`SELECT punya_balance FROM users WHERE id = $1 FOR UPDATE`,
			userID,
		).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("lock user for update: %w", err)
		}

		var required int64
		err = tx.QueryRow(ctx,
			`SELECT required_punya FROM games WHERE id = $1`,
			gameID,
		).Scan(&required)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrGameNotFound
			}
			return fmt.Errorf("get game: %w", err)
		}

		if balance < required {
			return &InsufficientPunyaError{Required: required, Current: balance}
		}

		err = tx.QueryRow(ctx,
			`INSERT INTO user_games (user_id, game_id) VALUES ($1, $2)
			 RETURNING user_id, game_id, high_score, times_played, last_played, unlocked_at`,
			userID, gameID,
		).Scan(&ug.UserID, &ug.GameID, &ug.HighScore, &ug.TimesPlayed, &ug.LastPlayed, &ug.UnlockedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return ErrAlreadyUnlocked
			}
			return fmt.Errorf("insert user game: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE users SET punya_balance = punya_balance - $2 WHERE id = $1`,
			userID, required,
		)
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ug, nil
}

// ScoreUpdate описывает результат фиксации игрового счёта.
type ScoreUpdate struct {
	PunyaEarned    int64
	IsNewHighScore bool
	HighScore      int64
	NewBalance     int64
}

// SubmitScore атомарно обновляет рекорд, счётчик игр и баланс пользователя.
// Бонус за новый рекорд применяется к базовому начислению до прибавления
// точного бонуса за достижения.
func (r *PostgresRepository) SubmitScore(ctx context.Context, userID, gameID, score, baseEarned, achievementBonus int64, highScoreBonus float64, now time.Time) (*ScoreUpdate, error) {
	var upd ScoreUpdate

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var prevHigh int64
		err = tx.QueryRow(ctx,
			`SELECT high_score FROM user_games WHERE user_id = $1 AND game_id = $2 FOR UPDATE`,
			userID, gameID,
		).Scan(&prevHigh)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrGameNotUnlocked
			}
			return fmt.Errorf("lock user game: %w", err)
		}

		earned := baseEarned
		isNewHigh := score > prevHigh
		if isNewHigh {
			earned = int64(float64(earned) * highScoreBonus)
		}
		earned += achievementBonus

		newHigh := prevHigh
		if isNewHigh {
			newHigh = score
		}

		_, err = tx.Exec(ctx,
			`UPDATE user_games
			 SET high_score = $3, times_played = times_played + 1, last_played = $4
			 WHERE user_id = $1 AND game_id = $2`,
			userID, gameID, newHigh, now,
		)
		if err != nil {
			return fmt.Errorf("update user game: %w", err)
		}

		var newBalance int64
		err = tx.QueryRow(ctx,
			`UPDATE users SET punya_balance = punya_balance + $2 WHERE id = $1 RETURNING punya_balance`,
			userID, earned,
		).Scan(&newBalance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("credit balance: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		upd = ScoreUpdate{
			PunyaEarned:    earned,
			IsNewHighScore: isNewHigh,
			HighScore:      newHigh,
			NewBalance:     newBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &upd, nil
}
