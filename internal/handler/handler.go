// Package handler содержит HTTP-обработчики API текстильной ERP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/textile-erp/internal/assistant"
	"github.com/mmeshcher/textile-erp/internal/fulfillment"
	"github.com/mmeshcher/textile-erp/internal/ledger"
	"github.com/mmeshcher/textile-erp/internal/middleware"
	"github.com/mmeshcher/textile-erp/internal/model"
	"github.com/mmeshcher/textile-erp/internal/report"
	"github.com/mmeshcher/textile-erp/internal/service"
	"github.com/mmeshcher/textile-erp/internal/store"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	State() model.AppState
	Status() store.Status
	SetSession(session model.Session)

	AddProduct(p model.Product) (model.Product, error)
	UpdateProduct(p model.Product) (model.Product, error)

	AddCustomer(c model.Customer) (model.Customer, error)
	UpdateCustomer(c model.Customer) (model.Customer, error)
	DeleteCustomer(id string) error
	CustomerStatement(id string) (model.Customer, []ledger.StatementLine, error)

	AddSupplier(s model.Supplier) (model.Supplier, error)
	UpdateSupplier(s model.Supplier) (model.Supplier, error)
	DeleteSupplier(id string) error
	SupplierStatement(id string) (model.Supplier, []ledger.StatementLine, error)

	CreateOrder(customerID string, cart []fulfillment.CartLine, note string) (model.Order, error)
	EditOrderQuantities(orderID string, lines []fulfillment.CartLine) (model.Order, error)
	ShipOrder(orderID string, lines []fulfillment.ShipmentLine, totalAmount decimal.Decimal) (model.Order, model.Transaction, error)
	Orders(customerID string) []model.Order
	Order(id string) (model.Order, error)

	RecordTransaction(tx model.Transaction) (model.Transaction, error)
	UpdateTransaction(id string, c ledger.Correction) (model.Transaction, error)
	DeleteTransaction(id string) error

	ProcessReturn(customerID, productID string, qty int64, unitPrice decimal.Decimal) (model.Transaction, error)

	Report(period report.Period) (report.Summary, error)
	Dashboard() report.DashboardData
	Ask(ctx context.Context, question, language string) (string, error)
}

// Handler реализует HTTP-обработчики API.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: s,
		logger:  logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor сопоставляет ошибку бизнес-логики с HTTP-статусом.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrCustomerNotFound),
		errors.Is(err, service.ErrSupplierNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrTransactionNotFound),
		errors.Is(err, fulfillment.ErrOrderNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrAccountInUse),
		errors.Is(err, service.ErrDuplicateID),
		errors.Is(err, fulfillment.ErrOverShipment),
		errors.Is(err, fulfillment.ErrQuantityBelowShipped):
		return http.StatusConflict

	case errors.Is(err, service.ErrInvalidEAN),
		errors.Is(err, service.ErrMissingName),
		errors.Is(err, service.ErrNegativeAmount),
		errors.Is(err, fulfillment.ErrProductNotFound),
		errors.Is(err, fulfillment.ErrEmptyOrder),
		errors.Is(err, fulfillment.ErrEmptyShipment),
		errors.Is(err, fulfillment.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidExchangeRate),
		errors.Is(err, ledger.ErrUnknownCurrency),
		errors.Is(err, ledger.ErrUnknownTransactionType),
		errors.Is(err, ledger.ErrAccountReference),
		errors.Is(err, ledger.ErrNonPositiveAmount),
		errors.Is(err, report.ErrUnknownPeriod),
		errors.Is(err, assistant.ErrEmptyQuestion):
		return http.StatusUnprocessableEntity

	case errors.Is(err, assistant.ErrNotConfigured):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает клиенту текстом ошибки. Внутренние ошибки журналируются и скрываются.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(op+" error",
			zap.Error(err),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
		h.writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
		return
	}

	h.logger.Debug(op+" refused", zap.Error(err))
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response error", zap.Error(err))
	}
}

func decodeJSON(r *http.Request, v any) bool {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func badRequest(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
}

// GetState возвращает агрегат целиком.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.State())
}

// GetStatus возвращает состояние синхронизации с хранилищем.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Status())
}

type sessionRequest struct {
	Operator string `json:"operator"`
	Language string `json:"language"`
}

// SetSession сохраняет оператора и язык текущего сеанса.
func (h *Handler) SetSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeJSON(r, &req) {
		badRequest(w)
		return
	}

	h.service.SetSession(model.Session{Operator: req.Operator, Language: req.Language})
	w.WriteHeader(http.StatusNoContent)
}

// ListProducts возвращает каталог.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.State().Products)
}

// CreateProduct добавляет товар.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if !decodeJSON(r, &p) {
		badRequest(w)
		return
	}

	created, err := h.service.AddProduct(p)
	if err != nil {
		h.writeError(w, r, "add product", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// UpdateProduct заменяет карточку товара.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if !decodeJSON(r, &p) {
		badRequest(w)
		return
	}
	p.ID = chi.URLParam(r, "id")

	updated, err := h.service.UpdateProduct(p)
	if err != nil {
		h.writeError(w, r, "update product", err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// ListCustomers возвращает клиентов с вычисленными балансами.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.State().Customers)
}

// CreateCustomer добавляет клиента.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c model.Customer
	if !decodeJSON(r, &c) {
		badRequest(w)
		return
	}

	created, err := h.service.AddCustomer(c)
	if err != nil {
		h.writeError(w, r, "add customer", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// UpdateCustomer обновляет данные клиента.
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var c model.Customer
	if !decodeJSON(r, &c) {
		badRequest(w)
		return
	}
	c.ID = chi.URLParam(r, "id")

	updated, err := h.service.UpdateCustomer(c)
	if err != nil {
		h.writeError(w, r, "update customer", err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// DeleteCustomer удаляет клиента.
func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCustomer(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statementResponse struct {
	Account any                    `json:"account"`
	Lines   []ledger.StatementLine `json:"lines"`
}

// CustomerStatement возвращает выписку по счёту клиента.
func (h *Handler) CustomerStatement(w http.ResponseWriter, r *http.Request) {
	c, lines, err := h.service.CustomerStatement(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "customer statement", err)
		return
	}
	h.writeJSON(w, http.StatusOK, statementResponse{Account: c, Lines: lines})
}

// ListSuppliers возвращает поставщиков.
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.State().Suppliers)
}

// CreateSupplier добавляет поставщика.
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var s model.Supplier
	if !decodeJSON(r, &s) {
		badRequest(w)
		return
	}

	created, err := h.service.AddSupplier(s)
	if err != nil {
		h.writeError(w, r, "add supplier", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// UpdateSupplier обновляет данные поставщика.
func (h *Handler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var s model.Supplier
	if !decodeJSON(r, &s) {
		badRequest(w)
		return
	}
	s.ID = chi.URLParam(r, "id")

	updated, err := h.service.UpdateSupplier(s)
	if err != nil {
		h.writeError(w, r, "update supplier", err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

// DeleteSupplier удаляет поставщика.
func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSupplier(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "delete supplier", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SupplierStatement возвращает выписку по счёту поставщика.
func (h *Handler) SupplierStatement(w http.ResponseWriter, r *http.Request) {
	s, lines, err := h.service.SupplierStatement(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "supplier statement", err)
		return
	}
	h.writeJSON(w, http.StatusOK, statementResponse{Account: s, Lines: lines})
}
