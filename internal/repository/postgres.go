// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
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

	"github.com/mmeshcher/coffee-order-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductNotFound возвращается, если позиция меню не найдена.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition возвращается при недопустимом переходе статуса заказа.
	ErrInvalidTransition = errors.New("invalid order status transition")
)

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
	delays := []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

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

// CreateUser создаёт нового пользователя с указанной ролью.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte, role model.Role) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (login, password_hash, role) VALUES ($1, $2, $3) RETURNING id`,
		login, passwordHash, string(role),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, role, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)

	return &u, nil
}

// GetProducts возвращает все позиции меню в алфавитном порядке.
func (r *PostgresRepository) GetProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, price FROM products ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceKurus); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetProduct возвращает позицию меню по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, price FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.PriceKurus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// NextDailyCounter атомарно увеличивает суточный счётчик и возвращает новое
// значение. Счётчик дня создаётся при первом обращении. Один оператор
// INSERT .. ON CONFLICT выполняется в хранилище атомарно, поэтому два
// конкурентных вызова никогда не получают одно значение.
func (r *PostgresRepository) NextDailyCounter(ctx context.Context, dayKey string) (int64, error) {
	var value int64
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO daily_counters (day_key, value) VALUES ($1, 1)
			 ON CONFLICT (day_key) DO UPDATE SET value = daily_counters.value + 1
			 RETURNING value`,
			dayKey,
		).Scan(&value)
	})
	if err != nil {
		return 0, fmt.Errorf("next daily counter: %w", err)
	}
	return value, nil
}

// CreateOrder сохраняет новый заказ со снимком строк корзины.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	lines, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshal order lines: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO orders (id, user_id, full_code, display_code, lines, total, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.UserID, o.FullCode, o.DisplayCode, lines, o.TotalKurus, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

const orderColumns = `id, user_id, full_code, display_code, lines, total, status,
	 auto_completed, auto_complete_pending, created_at, ready_at, completed_at, cancelled_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		status string
		lines  []byte
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.FullCode, &o.DisplayCode, &lines, &o.TotalKurus, &status,
		&o.AutoCompleted, &o.AutoCompletePending, &o.CreatedAt, &o.ReadyAt, &o.CompletedAt, &o.CancelledAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = model.OrderStatus(status)
	if err := json.Unmarshal(lines, &o.Lines); err != nil {
		return nil, fmt.Errorf("unmarshal order lines: %w", err)
	}

	return &o, nil
}

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetOrderByID возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		id,
	)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return o, nil
}

// GetOrdersByUser возвращает заказы пользователя, новые первыми.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

// GetOrdersByStatus возвращает заказы с указанными статусами, новые первыми.
func (r *PostgresRepository) GetOrdersByStatus(ctx context.Context, statuses []model.OrderStatus) ([]model.Order, error) {
	ss := make([]string, 0, len(statuses))
	for _, s := range statuses {
		ss = append(ss, string(s))
	}

	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = ANY($1) ORDER BY created_at DESC`,
		ss,
	)
}

// transitionOrder выполняет охраняемый переход статуса. Условие на текущий
// статус входит в сам UPDATE, поэтому конкурентные переходы сериализуются
// хранилищем: выигрывает ровно один.
func (r *PostgresRepository) transitionOrder(ctx context.Context, id, query string) error {
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return ErrOrderNotFound
	}

	return ErrInvalidTransition
}

// MarkOrderReady переводит заказ pending -> ready.
func (r *PostgresRepository) MarkOrderReady(ctx context.Context, id string) error {
	return r.transitionOrder(ctx, id,
		`UPDATE orders SET status = 'ready', ready_at = now()
		 WHERE id = $1 AND status = 'pending'`,
	)
}

// MarkOrderCompleted переводит заказ ready -> completed.
func (r *PostgresRepository) MarkOrderCompleted(ctx context.Context, id string) error {
	return r.transitionOrder(ctx, id,
		`UPDATE orders SET status = 'completed', completed_at = now()
		 WHERE id = $1 AND status = 'ready'`,
	)
}

// MarkOrderCancelled переводит заказ pending/ready -> cancelled.
func (r *PostgresRepository) MarkOrderCancelled(ctx context.Context, id string) error {
	return r.transitionOrder(ctx, id,
		`UPDATE orders SET status = 'cancelled', cancelled_at = now()
		 WHERE id = $1 AND status IN ('pending', 'ready')`,
	)
}

// AutoCompleteOrder выполняет автоматический перевод ready -> completed.
// Флаг auto_complete_pending входит в условие UPDATE, поэтому перевод
// выполняется не более одного раза даже при повторных наблюдениях заказа.
func (r *PostgresRepository) AutoCompleteOrder(ctx context.Context, id string) error {
	return r.transitionOrder(ctx, id,
		`UPDATE orders SET status = 'completed', auto_completed = TRUE,
		        auto_complete_pending = TRUE, completed_at = now()
		 WHERE id = $1 AND status = 'ready' AND NOT auto_complete_pending`,
	)
}

// GetOrdersDueAutoComplete возвращает готовые заказы, ожидающие
// автоматического завершения: ready_at раньше указанного момента и
// перевод ещё не выполнялся.
func (r *PostgresRepository) GetOrdersDueAutoComplete(ctx context.Context, readyBefore time.Time, limit int) ([]model.Order, error) {
	return r.queryOrders(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE status = 'ready' AND NOT auto_complete_pending AND ready_at < $1
		 ORDER BY ready_at
		 LIMIT $2`,
		readyBefore, limit,
	)
}
