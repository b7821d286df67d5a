package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/textile-erp/internal/fulfillment"
	"github.com/mmeshcher/textile-erp/internal/ledger"
	"github.com/mmeshcher/textile-erp/internal/model"
	"github.com/mmeshcher/textile-erp/internal/report"
)

type orderRequest struct {
	CustomerID string                 `json:"customerId"`
	Items      []fulfillment.CartLine `json:"items"`
	Note       string                 `json:"note"`
}

// ListOrders возвращает заказы, с фильтром по клиенту через ?customerId=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.service.Orders(r.URL.Query().Get("customerId"))
	if orders == nil {
		orders = []model.Order{}
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Order(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "get order", err)
		return
	}
	h.writeJSON(w, http.StatusOK, o)
}

// CreateOrder создаёт заказ клиента.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decodeJSON(r, &req) {
		badRequest(w)
		return
	}

	o, err := h.service.CreateOrder(req.CustomerID, req.Items, req.Note)
	if err != nil {
		h.writeError(w, r, "create order", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, o)
}

type quantitiesRequest struct {
	Items []fulfillment.CartLine `json:"items"`
}

// EditOrderQuantities меняет заказанные количества.
func (h *Handler) EditOrderQuantities(w http.ResponseWriter, r *http.Request) {
	var req quantitiesRequest
	if !decodeJSON(r, &req) {
		badRequest(w)
		return
	}

	o, err := h.service.EditOrderQuantities(chi.URLParam(r, "id"), req.Items)
	if err != nil {
		h.writeError(w, r, "edit order", err)
		return
	}
	h.writeJSON(w, http.StatusOK, o)
}

type shipmentRequest struct {
	Lines       []fulfillment.ShipmentLine `json:"lines"`
	TotalAmount decimal.Decimal            `json:"totalAmount"`
}

type shipmentResponse struct {
	Order       model.Order       `json:"order"`
	Transaction model.Transaction `json:"transaction"`
}

// ShipOrder регистрирует частичную отгрузку заказа.
func (h *Handler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	var req shipmentRequest
	if !decodeJSON(r, &req) {
		badRequest(w)
		return
	}

	o, tx, err := h.service.ShipOrder(chi.URLParam(r, "id"), req.Lines, req.TotalAmount)
	if err != nil {
		h.writeError(w, r, "ship order", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, shipmentResponse{Order: o, Transaction: tx})
}

// ListTransactions возвращает транзакции в порядке добавления.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.State().Transactions)
}

// CreateTransaction регистрирует кассовую операцию.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx model.Transaction
	if !decodeJSON(r, &tx) {
		badRequest(w)
		return
	}

	created, err := h.service.RecordTransaction(tx)
	if err != nil {
		h.writeError(w, r, "record transaction", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

type correctionRequest struct {
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     model.Currency  `json:"currency"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
}

// UpdateTransaction правит транзакцию.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req correctionRequest
	if !decodeJSON(r, &req) {
		badRequest(w)
		return
	}

	tx, err := h.service.UpdateTransaction(chi.URLParam(r, "id"), ledger.Correction{
		Description:  req.Description,
		Amount:       req.Amount,
		Currency:     req.Currency,
		ExchangeRate: req.ExchangeRate,
	})
	if err != nil {
		h.writeError(w, r, "update transaction", err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// DeleteTransaction удаляет транзакцию.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTransaction(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type returnRequest struct {
	CustomerID string          `json:"customerId"`
	ProductID  string          `json:"productId"`
	Qty        int64           `json:"qty"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

// CreateReturn принимает возврат товара.
func (h *Handler) CreateReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if !decodeJSON(r, &req) {
		badRequest(w)
		return
	}

	tx, err := h.service.ProcessReturn(req.CustomerID, req.ProductID, req.Qty, req.UnitPrice)
	if err != nil {
		h.writeError(w, r, "process return", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

// GetReport возвращает отчёт за период WEEK, MONTH или YEAR.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Report(report.Period(chi.URLParam(r, "period")))
	if err != nil {
		h.writeError(w, r, "report", err)
		return
	}
	h.writeJSON(w, http.StatusOK, sum)
}

// GetDashboard возвращает показатели главной панели.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Dashboard())
}

type askRequest struct {
	Question string `json:"question"`
	Language string `json:"language"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// Ask передаёт вопрос ассистенту.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !decodeJSON(r, &req) {
		badRequest(w)
		return
	}

	answer, err := h.service.Ask(r.Context(), req.Question, req.Language)
	if err != nil {
		h.writeError(w, r, "assistant", err)
		return
	}
	h.writeJSON(w, http.StatusOK, askResponse{Answer: answer})
}
