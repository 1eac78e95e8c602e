// Package ledger — repository.go выполняет все операции с таблицами
// balances и transactions.
//
// Ключевой инвариант: обновление баланса выполняется одним серверным
// выражением GREATEST(0, points + delta), а не чтением-изменением-записью
// в памяти приложения. Несколько источников (чат, войс-тик, свип,
// админ-команды) пишут в один баланс одновременно, и гонка потерянного
// обновления должна быть невозможна. Пара «баланс + строка журнала»
// всегда применяется в одной транзакции БД.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository предоставляет методы для работы с балансами и журналом.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий леджера.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Apply атомарно изменяет баланс на delta и пишет строку журнала.
// Баланс зажимается снизу нулём: points = GREATEST(0, points + delta).
// Возвращает новый баланс.
func (r *Repository) Apply(ctx context.Context, guildID, userID, delta int64, txType, source, reason string, actorID *int64) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Ленивое создание нулевого баланса при первом касании
	_, err = tx.Exec(ctx, `
		INSERT INTO balances (guild_id, user_id, points)
		VALUES ($1, $2, 0)
		ON CONFLICT (guild_id, user_id) DO NOTHING
	`, guildID, userID)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания баланса: %w", err)
	}

	// Атомарное серверное обновление — никакого read-modify-write
	var newPoints int64
	err = tx.QueryRow(ctx, `
		UPDATE balances
		SET points = GREATEST(0, points + $3), updated_at = NOW()
		WHERE guild_id = $1 AND user_id = $2
		RETURNING points
	`, guildID, userID, delta).Scan(&newPoints)
	if err != nil {
		return 0, fmt.Errorf("ошибка обновления баланса: %w", err)
	}

	// Строка журнала в той же транзакции: баланс и журнал не расходятся
	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (guild_id, user_id, amount, tx_type, source, reason, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, guildID, userID, delta, txType, source, reason, actorID)
	if err != nil {
		return 0, fmt.Errorf("ошибка записи транзакции: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("ошибка фиксации: %w", err)
	}
	return newPoints, nil
}

// Get возвращает баланс, лениво создавая нулевую запись при отсутствии.
func (r *Repository) Get(ctx context.Context, guildID, userID int64) (*Balance, error) {
	b, err := r.get(ctx, guildID, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		_, err = r.db.Exec(ctx, `
			INSERT INTO balances (guild_id, user_id, points)
			VALUES ($1, $2, 0)
			ON CONFLICT (guild_id, user_id) DO NOTHING
		`, guildID, userID)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания баланса: %w", err)
		}
		b, err = r.get(ctx, guildID, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return b, nil
}

func (r *Repository) get(ctx context.Context, guildID, userID int64) (*Balance, error) {
	var b Balance
	err := r.db.QueryRow(ctx, `
		SELECT id, guild_id, user_id, points, frozen_until, created_at, updated_at
		FROM balances WHERE guild_id = $1 AND user_id = $2
	`, guildID, userID).Scan(
		&b.ID, &b.GuildID, &b.UserID, &b.Points, &b.FrozenUntil, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// TopN возвращает балансы гильдии по убыванию очков.
// Равные очки упорядочиваются по времени создания записи (раньше — выше).
func (r *Repository) TopN(ctx context.Context, guildID int64, n int) ([]*Balance, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, guild_id, user_id, points, frozen_until, created_at, updated_at
		FROM balances
		WHERE guild_id = $1
		ORDER BY points DESC, created_at ASC
		LIMIT $2
	`, guildID, n)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения топа: %w", err)
	}
	defer rows.Close()

	var balances []*Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ID, &b.GuildID, &b.UserID, &b.Points, &b.FrozenUntil, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования баланса: %w", err)
		}
		balances = append(balances, &b)
	}
	return balances, rows.Err()
}

// Reset обнуляет все ненулевые балансы гильдии, записывая по одной
// RESET-строке журнала на каждое обнуление — аудит остаётся полным,
// никакого «тихого» массового UPDATE.
// Возвращает число обнулённых балансов.
func (r *Repository) Reset(ctx context.Context, guildID int64, actorID int64) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// CTE: обнуляем и тут же превращаем каждую затронутую строку
	// в запись журнала с отрицательной суммой списанного
	tag, err := tx.Exec(ctx, `
		WITH zeroed AS (
			UPDATE balances
			SET points = 0, updated_at = NOW()
			WHERE guild_id = $1 AND points > 0
			RETURNING user_id, points
		)
		INSERT INTO transactions (guild_id, user_id, amount, tx_type, source, reason, actor_id)
		SELECT $1, user_id, -points, $2, $3, $4, $5 FROM zeroed
	`, guildID, TxTypeReset, SourceAdmin, "обнуление всех балансов гильдии", actorID)
	if err != nil {
		return 0, fmt.Errorf("ошибка сброса балансов: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("ошибка фиксации: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// History возвращает страницу журнала транзакций пользователя,
// новые записи первыми.
func (r *Repository) History(ctx context.Context, guildID, userID int64, limit, offset int) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, guild_id, user_id, amount, tx_type, source, reason, actor_id, created_at
		FROM transactions
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, guildID, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.GuildID, &t.UserID, &t.Amount, &t.Type, &t.Source, &t.Reason, &t.ActorID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}

// SetFrozenUntil выставляет отметку заморозки на балансе
// (лениво создавая запись). Используется реестром наказаний.
func (r *Repository) SetFrozenUntil(ctx context.Context, guildID, userID int64, until *time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO balances (guild_id, user_id, points, frozen_until)
		VALUES ($1, $2, 0, $3)
		ON CONFLICT (guild_id, user_id)
		DO UPDATE SET frozen_until = EXCLUDED.frozen_until, updated_at = NOW()
	`, guildID, userID, until)
	if err != nil {
		return fmt.Errorf("ошибка установки заморозки: %w", err)
	}
	return nil
}
