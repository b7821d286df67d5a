// Package store содержит хранилище состояния приложения: агрегат в памяти,
// оптимистичное применение изменений и фоновое сохранение снимка целиком.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/textile-erp/internal/ledger"
	"github.com/mmeshcher/textile-erp/internal/model"
)

// Persister описывает внешнее хранилище документа с агрегатом.
type Persister interface {
	// Load возвращает сохранённый снимок; found=false, если документа ещё нет.
	Load(ctx context.Context) (state model.AppState, found bool, err error)
	// Persist сохраняет снимок целиком с семантикой слияния.
	Persist(ctx context.Context, state model.AppState) error
	// Subscribe передаёт в onChange каждый снимок, записанный другим участником,
	// и блокируется до отмены контекста.
	Subscribe(ctx context.Context, onChange func(model.AppState)) error
}

// Updater описывает чистое преобразование агрегата.
type Updater func(model.AppState) (model.AppState, error)

// SyncState описывает состояние синхронизации с внешним хранилищем.
type SyncState string

const (
	SyncConnecting SyncState = "connecting"
	SyncOnline     SyncState = "online"
	SyncSaving     SyncState = "saving"
	SyncSaveError  SyncState = "save_error"
	SyncOffline    SyncState = "offline"
)

// Status описывает состояние синхронизации, отображаемое пользователю.
type Status struct {
	State     SyncState `json:"state"`
	LastError string    `json:"lastError,omitempty"`
	SavedAt   time.Time `json:"savedAt,omitempty"`
}

const (
	flushTimeout        = 5 * time.Second
	subscribeRetryDelay = 5 * time.Second
)

var errSubscriptionClosed = errors.New("subscription closed")

// Store владеет агрегатом приложения. Все изменения проходят через ApplyAndPersist.
type Store struct {
	persister Persister
	logger    *zap.Logger

	mu      sync.RWMutex
	state   model.AppState
	pending *model.AppState
	status  Status

	dirty chan struct{}

	retryDelay time.Duration
}

// New создаёт хранилище с пустым агрегатом.
func New(persister Persister, logger *zap.Logger) *Store {
	return &Store{
		persister: persister,
		logger:    logger,
		state:     EmptyState(),
		status:    Status{State: SyncConnecting},
		dirty:     make(chan struct{}, 1),

		retryDelay: subscribeRetryDelay,
	}
}

// EmptyState возвращает агрегат по умолчанию для пустого хранилища.
func EmptyState() model.AppState {
	return model.AppState{
		Products:     []model.Product{},
		Customers:    []model.Customer{},
		Suppliers:    []model.Supplier{},
		Orders:       []model.Order{},
		Transactions: []model.Transaction{},
	}
}

// Load загружает начальный снимок. Если документа нет, устанавливается пустой агрегат
// и ставится в очередь на первую запись.
func (s *Store) Load(ctx context.Context) error {
	state, found, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if !found {
		s.logger.Info("no stored snapshot, initializing empty state")
		s.mu.Lock()
		s.state = EmptyState()
		s.enqueueLocked(s.state)
		s.mu.Unlock()
		return nil
	}

	s.replace(state)
	s.setStatus(SyncOnline, nil)
	return nil
}

// Snapshot возвращает текущий агрегат. Срезы агрегата не должны изменяться вызывающим кодом.
func (s *Store) Snapshot() model.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status возвращает состояние синхронизации.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetSession заменяет локальные данные сеанса. Они не сохраняются во внешнее хранилище.
func (s *Store) SetSession(session model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Session = session
}

// ApplyAndPersist применяет updater к агрегату, пересчитывает балансы и ставит новый снимок
// в очередь на сохранение. Ошибка updater означает отказ: агрегат не меняется.
func (s *Store) ApplyAndPersist(updater Updater) (model.AppState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := updater(s.state)
	if err != nil {
		return s.state, err
	}

	next, _ = ledger.Recompute(next)
	next.Session = s.state.Session
	s.state = next
	s.enqueueLocked(next)

	return next, nil
}

func (s *Store) enqueueLocked(state model.AppState) {
	s.pending = &state
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Store) takePending() (model.AppState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return model.AppState{}, false
	}
	state := *s.pending
	s.pending = nil
	s.status.State = SyncSaving
	return state, true
}

// replace устанавливает снимок, полученный извне, сохраняя локальные данные сеанса.
func (s *Store) replace(remote model.AppState) {
	s.warnUnclassified(remote)
	remote, _ = ledger.Recompute(remote)

	s.mu.Lock()
	defer s.mu.Unlock()
	remote.Session = s.state.Session
	s.state = remote
}

func (s *Store) warnUnclassified(state model.AppState) {
	for _, tx := range ledger.Unclassified(state.Transactions) {
		s.logger.Warn("transaction type has no balance effect",
			zap.String("transaction_id", tx.ID),
			zap.String("type", string(tx.Type)),
		)
	}
}

func (s *Store) setStatus(state SyncState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = state
	if err != nil {
		s.status.LastError = err.Error()
		return
	}
	s.status.LastError = ""
	if state == SyncOnline {
		s.status.SavedAt = time.Now()
	}
}

// Run сохраняет поставленные в очередь снимки до отмены контекста. Если за время записи
// было применено несколько изменений, сохраняется только последний снимок.
// Ошибка записи не откатывает локальное состояние.
func (s *Store) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.flush()
			return nil
		case <-s.dirty:
			s.persistPending(ctx)
		}
	}
}

func (s *Store) persistPending(ctx context.Context) {
	state, ok := s.takePending()
	if !ok {
		return
	}

	if err := s.persister.Persist(ctx, state); err != nil {
		s.logger.Warn("persist snapshot failed", zap.Error(err))
		s.requeue(state)
		s.setStatus(SyncSaveError, err)
		return
	}
	s.setStatus(SyncOnline, nil)
}

// requeue возвращает несохранённый снимок в очередь, если за время записи не появился более новый.
// Повторная запись выполняется при следующем изменении или при завершении работы.
func (s *Store) requeue(state model.AppState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = &state
	}
}

func (s *Store) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	s.persistPending(ctx)
}

// Subscribe применяет снимки, приходящие из внешнего хранилища, до отмены контекста.
// Пришедший снимок полностью заменяет локальный. Обрыв подписки не останавливает сервис:
// он отражается в статусе, после паузы документ перечитывается и подписка возобновляется.
func (s *Store) Subscribe(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			s.resync(ctx)
		}

		err := s.persister.Subscribe(ctx, func(remote model.AppState) {
			s.logger.Info("remote snapshot received")
			s.replace(remote)
			s.clearOffline()
		})
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errSubscriptionClosed
		}

		s.logger.Error("remote subscription stopped, retrying",
			zap.Error(err),
			zap.Duration("delay", s.retryDelay),
			zap.Int("attempt", attempt+1),
		)
		s.setStatus(SyncOffline, err)

		timer := time.NewTimer(s.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// resync перечитывает документ после обрыва подписки, чтобы не потерять изменения,
// сделанные другими экземплярами за это время. Снимок не применяется, если есть
// несохранённые локальные изменения.
func (s *Store) resync(ctx context.Context) {
	remote, found, err := s.persister.Load(ctx)
	if err != nil {
		s.logger.Warn("resync snapshot failed", zap.Error(err))
		return
	}
	if !found {
		return
	}

	s.warnUnclassified(remote)
	remote, _ = ledger.Recompute(remote)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return
	}
	remote.Session = s.state.Session
	s.state = remote
}

func (s *Store) clearOffline() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State == SyncOffline {
		s.status.State = SyncOnline
		s.status.LastError = ""
	}
}
