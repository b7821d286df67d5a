// Package service реализует бизнес-операции ERP поверх хранилища состояния.
//
// Каждая изменяющая операция выражена как чистое преобразование агрегата,
// которое применяется через Store.ApplyAndPersist.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/textile-erp/internal/model"
	"github.com/mmeshcher/textile-erp/internal/store"
	"github.com/mmeshcher/textile-erp/internal/validation"
)

var (
	// ErrCustomerNotFound возвращается, если клиент не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrSupplierNotFound возвращается, если поставщик не найден.
	ErrSupplierNotFound = errors.New("supplier not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrTransactionNotFound возвращается, если транзакция не найдена.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrAccountInUse возвращается при попытке удалить счёт, на который ссылаются заказы или транзакции.
	ErrAccountInUse = errors.New("account is referenced by orders or transactions")
	// ErrDuplicateID возвращается при создании сущности с уже существующим идентификатором.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrInvalidEAN возвращается для некорректного штрихкода EAN-13.
	ErrInvalidEAN = errors.New("invalid EAN-13 code")
	// ErrMissingName возвращается, если у счёта не указано имя.
	ErrMissingName = errors.New("name is required")
	// ErrNegativeAmount возвращается для отрицательной суммы.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// Store описывает контракт хранилища состояния, используемый сервисом.
type Store interface {
	Snapshot() model.AppState
	ApplyAndPersist(updater store.Updater) (model.AppState, error)
	Status() store.Status
	SetSession(session model.Session)
}

// Assistant описывает внешнего ассистента, отвечающего на вопросы по данным ERP.
type Assistant interface {
	Ask(ctx context.Context, state model.AppState, question, language string) (string, error)
}

// Service содержит бизнес-логику ERP.
type Service struct {
	store     Store
	assistant Assistant
	now       func() time.Time
	newID     func() string
}

// NewService создаёт новый сервис с указанным хранилищем и ассистентом.
func NewService(st Store, assistant Assistant) *Service {
	return &Service{
		store:     st,
		assistant: assistant,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// State возвращает текущий агрегат.
func (s *Service) State() model.AppState {
	return s.store.Snapshot()
}

// Status возвращает состояние синхронизации с внешним хранилищем.
func (s *Service) Status() store.Status {
	return s.store.Status()
}

// SetSession сохраняет локальные параметры сеанса.
func (s *Service) SetSession(session model.Session) {
	s.store.SetSession(session)
}

// AddProduct добавляет товар в каталог.
func (s *Service) AddProduct(p model.Product) (model.Product, error) {
	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.EAN != "" && !validation.IsValidEAN13(p.EAN) {
		return model.Product{}, fmt.Errorf("%w: %s", ErrInvalidEAN, p.EAN)
	}

	_, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		if st.FindProduct(p.ID) != -1 {
			return st, fmt.Errorf("%w: product %s", ErrDuplicateID, p.ID)
		}
		st.Products = appendCopy(st.Products, p)
		return st, nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// UpdateProduct заменяет карточку товара.
func (s *Service) UpdateProduct(p model.Product) (model.Product, error) {
	if p.EAN != "" && !validation.IsValidEAN13(p.EAN) {
		return model.Product{}, fmt.Errorf("%w: %s", ErrInvalidEAN, p.EAN)
	}

	_, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		i := st.FindProduct(p.ID)
		if i == -1 {
			return st, fmt.Errorf("%w: %s", ErrProductNotFound, p.ID)
		}
		st.Products = replaceAt(st.Products, i, p)
		return st, nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// AddCustomer добавляет клиента. Баланс нового клиента вычисляется из транзакций.
func (s *Service) AddCustomer(c model.Customer) (model.Customer, error) {
	if strings.TrimSpace(c.Name) == "" && strings.TrimSpace(c.Company) == "" {
		return model.Customer{}, ErrMissingName
	}
	if c.ID == "" {
		c.ID = s.newID()
	}

	st, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		if st.FindCustomer(c.ID) != -1 {
			return st, fmt.Errorf("%w: customer %s", ErrDuplicateID, c.ID)
		}
		st.Customers = appendCopy(st.Customers, c)
		return st, nil
	})
	if err != nil {
		return model.Customer{}, err
	}
	return st.Customers[st.FindCustomer(c.ID)], nil
}

// UpdateCustomer обновляет контактные данные клиента. Баланс не редактируется.
func (s *Service) UpdateCustomer(c model.Customer) (model.Customer, error) {
	st, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		i := st.FindCustomer(c.ID)
		if i == -1 {
			return st, fmt.Errorf("%w: %s", ErrCustomerNotFound, c.ID)
		}
		c.BalanceUSD = st.Customers[i].BalanceUSD
		st.Customers = replaceAt(st.Customers, i, c)
		return st, nil
	})
	if err != nil {
		return model.Customer{}, err
	}
	return st.Customers[st.FindCustomer(c.ID)], nil
}

// DeleteCustomer удаляет клиента. Удаление отклоняется, если на клиента ссылаются заказы или транзакции.
func (s *Service) DeleteCustomer(id string) error {
	_, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		i := st.FindCustomer(id)
		if i == -1 {
			return st, fmt.Errorf("%w: %s", ErrCustomerNotFound, id)
		}
		for _, o := range st.Orders {
			if o.CustomerID == id {
				return st, fmt.Errorf("%w: customer %s has orders", ErrAccountInUse, id)
			}
		}
		for _, tx := range st.Transactions {
			if tx.CustomerID == id {
				return st, fmt.Errorf("%w: customer %s has transactions", ErrAccountInUse, id)
			}
		}
		st.Customers = removeAt(st.Customers, i)
		return st, nil
	})
	return err
}

// AddSupplier добавляет поставщика.
func (s *Service) AddSupplier(sp model.Supplier) (model.Supplier, error) {
	if strings.TrimSpace(sp.Name) == "" {
		return model.Supplier{}, ErrMissingName
	}
	if sp.ID == "" {
		sp.ID = s.newID()
	}

	st, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		if st.FindSupplier(sp.ID) != -1 {
			return st, fmt.Errorf("%w: supplier %s", ErrDuplicateID, sp.ID)
		}
		st.Suppliers = appendCopy(st.Suppliers, sp)
		return st, nil
	})
	if err != nil {
		return model.Supplier{}, err
	}
	return st.Suppliers[st.FindSupplier(sp.ID)], nil
}

// UpdateSupplier обновляет данные поставщика. Баланс не редактируется.
func (s *Service) UpdateSupplier(sp model.Supplier) (model.Supplier, error) {
	st, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		i := st.FindSupplier(sp.ID)
		if i == -1 {
			return st, fmt.Errorf("%w: %s", ErrSupplierNotFound, sp.ID)
		}
		sp.BalanceUSD = st.Suppliers[i].BalanceUSD
		st.Suppliers = replaceAt(st.Suppliers, i, sp)
		return st, nil
	})
	if err != nil {
		return model.Supplier{}, err
	}
	return st.Suppliers[st.FindSupplier(sp.ID)], nil
}

// DeleteSupplier удаляет поставщика, если на него не ссылаются транзакции.
func (s *Service) DeleteSupplier(id string) error {
	_, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		i := st.FindSupplier(id)
		if i == -1 {
			return st, fmt.Errorf("%w: %s", ErrSupplierNotFound, id)
		}
		for _, tx := range st.Transactions {
			if tx.SupplierID == id {
				return st, fmt.Errorf("%w: supplier %s has transactions", ErrAccountInUse, id)
			}
		}
		st.Suppliers = removeAt(st.Suppliers, i)
		return st, nil
	})
	return err
}

// nextOrderNumber возвращает следующий номер заказа: максимум числовых номеров плюс один.
func nextOrderNumber(orders []model.Order) string {
	next := int64(1001)
	for _, o := range orders {
		n, err := strconv.ParseInt(o.ID, 10, 64)
		if err == nil && n >= next {
			next = n + 1
		}
	}
	return strconv.FormatInt(next, 10)
}

func appendCopy[T any](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item)
}

func replaceAt[T any](items []T, i int, item T) []T {
	out := make([]T, len(items))
	copy(out, items)
	out[i] = item
	return out
}

func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}
