package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/textile-erp/internal/assistant"
	"github.com/mmeshcher/textile-erp/internal/fulfillment"
	"github.com/mmeshcher/textile-erp/internal/ledger"
	"github.com/mmeshcher/textile-erp/internal/model"
	"github.com/mmeshcher/textile-erp/internal/report"
)

// CreateOrder создаёт заказ клиента в статусе Pending.
func (s *Service) CreateOrder(customerID string, cart []fulfillment.CartLine, note string) (model.Order, error) {
	var created model.Order
	_, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		if st.FindCustomer(customerID) == -1 {
			return st, fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)
		}

		order, err := fulfillment.NewOrder(st, nextOrderNumber(st.Orders), customerID, cart, note, s.now())
		if err != nil {
			return st, err
		}
		st.Orders = appendCopy(st.Orders, order)
		created = order
		return st, nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return created, nil
}

// EditOrderQuantities меняет заказанные количества по строкам заказа.
func (s *Service) EditOrderQuantities(orderID string, lines []fulfillment.CartLine) (model.Order, error) {
	st, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		return fulfillment.EditQuantities(st, orderID, lines)
	})
	if err != nil {
		return model.Order{}, err
	}
	return st.Orders[st.FindOrder(orderID)], nil
}

// ShipOrder отгружает часть заказа и возвращает созданную транзакцию продажи.
func (s *Service) ShipOrder(orderID string, lines []fulfillment.ShipmentLine, totalAmount decimal.Decimal) (model.Order, model.Transaction, error) {
	if totalAmount.IsNegative() {
		return model.Order{}, model.Transaction{}, ErrNegativeAmount
	}

	var tx model.Transaction
	st, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		next, created, err := fulfillment.ApplyShipment(st, orderID, lines, totalAmount, s.now(), s.newID)
		if err != nil {
			return st, err
		}
		tx = created
		return next, nil
	})
	if err != nil {
		return model.Order{}, model.Transaction{}, err
	}
	return st.Orders[st.FindOrder(orderID)], tx, nil
}

// Orders возвращает заказы, при непустом customerID только заказы этого клиента.
func (s *Service) Orders(customerID string) []model.Order {
	st := s.store.Snapshot()
	if customerID == "" {
		return st.Orders
	}

	var out []model.Order
	for _, o := range st.Orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out
}

// Order возвращает заказ по идентификатору.
func (s *Service) Order(id string) (model.Order, error) {
	st := s.store.Snapshot()
	i := st.FindOrder(id)
	if i == -1 {
		return model.Order{}, fmt.Errorf("%w: %s", fulfillment.ErrOrderNotFound, id)
	}
	return st.Orders[i], nil
}

// RecordTransaction регистрирует кассовую операцию. Пустая дата заменяется текущей.
func (s *Service) RecordTransaction(tx model.Transaction) (model.Transaction, error) {
	tx, err := ledger.Prepare(tx)
	if err != nil {
		return model.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = s.newID()
	}
	if tx.Date == "" {
		tx.Date = s.now().Format(model.DateLayout)
	}

	_, err = s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		if st.FindTransaction(tx.ID) != -1 {
			return st, fmt.Errorf("%w: transaction %s", ErrDuplicateID, tx.ID)
		}
		st.Transactions = appendCopy(st.Transactions, tx)
		return st, nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return tx, nil
}

// UpdateTransaction правит описание, сумму, валюту и курс транзакции.
func (s *Service) UpdateTransaction(id string, c ledger.Correction) (model.Transaction, error) {
	var updated model.Transaction
	_, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		i := st.FindTransaction(id)
		if i == -1 {
			return st, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
		}
		tx, err := ledger.Edit(st.Transactions[i], c)
		if err != nil {
			return st, err
		}
		st.Transactions = replaceAt(st.Transactions, i, tx)
		updated = tx
		return st, nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return updated, nil
}

// DeleteTransaction удаляет транзакцию. Баланс счёта пересчитывается хранилищем.
func (s *Service) DeleteTransaction(id string) error {
	_, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		i := st.FindTransaction(id)
		if i == -1 {
			return st, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
		}
		st.Transactions = removeAt(st.Transactions, i)
		return st, nil
	})
	return err
}

// ProcessReturn принимает возврат товара от клиента.
// Нулевая цена за единицу заменяется текущей ценой продажи товара.
func (s *Service) ProcessReturn(customerID, productID string, qty int64, unitPrice decimal.Decimal) (model.Transaction, error) {
	if unitPrice.IsNegative() {
		return model.Transaction{}, ErrNegativeAmount
	}

	var tx model.Transaction
	_, err := s.store.ApplyAndPersist(func(st model.AppState) (model.AppState, error) {
		if st.FindCustomer(customerID) == -1 {
			return st, fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)
		}

		price := unitPrice
		if price.IsZero() {
			if i := st.FindProduct(productID); i != -1 {
				price = st.Products[i].SalePrice
			}
		}

		next, created, err := fulfillment.ApplyReturn(st, customerID, productID, qty, price, s.now(), s.newID)
		if err != nil {
			return st, err
		}
		tx = created
		return next, nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return tx, nil
}

// CustomerStatement возвращает выписку по счёту клиента.
func (s *Service) CustomerStatement(id string) (model.Customer, []ledger.StatementLine, error) {
	st := s.store.Snapshot()
	i := st.FindCustomer(id)
	if i == -1 {
		return model.Customer{}, nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, id)
	}
	return st.Customers[i], ledger.Statement(model.AccountCustomer, id, st.Transactions), nil
}

// SupplierStatement возвращает выписку по счёту поставщика.
func (s *Service) SupplierStatement(id string) (model.Supplier, []ledger.StatementLine, error) {
	st := s.store.Snapshot()
	i := st.FindSupplier(id)
	if i == -1 {
		return model.Supplier{}, nil, fmt.Errorf("%w: %s", ErrSupplierNotFound, id)
	}
	return st.Suppliers[i], ledger.Statement(model.AccountSupplier, id, st.Transactions), nil
}

// Report возвращает сводку за период.
func (s *Service) Report(period report.Period) (report.Summary, error) {
	return report.Summarize(s.store.Snapshot(), report.Period(strings.ToUpper(string(period))), s.now())
}

// Dashboard возвращает показатели главной страницы.
func (s *Service) Dashboard() report.DashboardData {
	return report.Dashboard(s.store.Snapshot())
}

// Ask передаёт вопрос ассистенту вместе с текущими данными ERP.
// Язык ответа берётся из сеанса, если не указан явно.
func (s *Service) Ask(ctx context.Context, question, language string) (string, error) {
	if s.assistant == nil {
		return "", assistant.ErrNotConfigured
	}

	st := s.store.Snapshot()
	if language == "" {
		language = st.Session.Language
	}
	return s.assistant.Ask(ctx, st, question, language)
}
