// Package repository содержит хранилище документа с агрегатом ERP в PostgreSQL.
//
// Агрегат хранится одной строкой JSONB. Запись выполняется слиянием верхнего уровня,
// об изменениях сообщается через LISTEN/NOTIFY.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/textile-erp/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	// DefaultDocumentID содержит идентификатор основного документа с агрегатом.
	DefaultDocumentID = "main_state"
	notifyChannel     = "erp_state"
)

// ErrEmptyDocument возвращается, если строка документа существует, но не содержит данных.
var ErrEmptyDocument = errors.New("document is empty")

// PostgresRepository хранит агрегат ERP в PostgreSQL.
type PostgresRepository struct {
	pool       *pgxpool.Pool
	documentID string
	writerID   string
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

	r := &PostgresRepository{
		pool:       pool,
		documentID: DefaultDocumentID,
		writerID:   uuid.NewString(),
	}

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

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
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

// Load возвращает сохранённый агрегат. found=false, если документ ещё не создан.
func (r *PostgresRepository) Load(ctx context.Context) (model.AppState, bool, error) {
	var data []byte
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT data FROM erp_documents WHERE id = $1`,
			r.documentID,
		).Scan(&data)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AppState{}, false, nil
		}
		return model.AppState{}, false, fmt.Errorf("select document: %w", err)
	}

	state, err := decodeState(data)
	if err != nil {
		return model.AppState{}, false, err
	}
	return state, true, nil
}

// Persist сохраняет агрегат целиком. Поля верхнего уровня, отсутствующие в записи,
// остаются в документе без изменений. Уведомление отправляется в той же транзакции.
func (r *PostgresRepository) Persist(ctx context.Context, state model.AppState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`INSERT INTO erp_documents (id, data, writer, updated_at)
			 VALUES ($1, $2::jsonb, $3, NOW())
			 ON CONFLICT (id) DO UPDATE
			 SET data = erp_documents.data || EXCLUDED.data,
			     writer = EXCLUDED.writer,
			     updated_at = EXCLUDED.updated_at`,
			r.documentID, string(data), r.writerID,
		)
		if err != nil {
			return fmt.Errorf("upsert document: %w", err)
		}

		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, r.writerID); err != nil {
			return fmt.Errorf("notify: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// Subscribe слушает уведомления об изменении документа и передаёт в onChange
// снимки, записанные другими экземплярами сервиса. Блокируется до отмены контекста.
func (r *PostgresRepository) Subscribe(ctx context.Context, onChange func(model.AppState)) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait notification: %w", err)
		}

		if n.Payload == r.writerID {
			continue
		}

		state, found, err := r.Load(ctx)
		if err != nil {
			return err
		}
		if found {
			onChange(state)
		}
	}
}

func encodeState(state model.AppState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (model.AppState, error) {
	if len(data) == 0 {
		return model.AppState{}, ErrEmptyDocument
	}

	var state model.AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.AppState{}, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}
