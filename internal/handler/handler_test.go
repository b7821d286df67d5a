package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/textile-erp/internal/fulfillment"
	"github.com/mmeshcher/textile-erp/internal/ledger"
	"github.com/mmeshcher/textile-erp/internal/model"
	"github.com/mmeshcher/textile-erp/internal/service"
	"github.com/mmeshcher/textile-erp/internal/store"
)

type nopPersister struct{}

func (nopPersister) Load(ctx context.Context) (model.AppState, bool, error) {
	return model.AppState{}, false, nil
}

func (nopPersister) Persist(ctx context.Context, state model.AppState) error { return nil }

func (nopPersister) Subscribe(ctx context.Context, onChange func(model.AppState)) error {
	<-ctx.Done()
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st := store.New(nopPersister{}, zap.NewNop())
	h := NewHandler(service.NewService(st, nil), zap.NewNop())
	srv := httptest.NewServer(h.SetupRouter())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, srv.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func seedCatalog(t *testing.T, srv *httptest.Server) {
	t.Helper()

	res, _ := do(t, srv, http.MethodPost, "/api/customers", model.Customer{ID: "c1", Company: "Textil LLC"})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res, _ = do(t, srv, http.MethodPost, "/api/products", model.Product{
		ID:        "p1",
		Brand:     "Mavi",
		Stock:     10,
		SalePrice: decimal.NewFromInt(25),
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
}

func TestOrderFlow(t *testing.T) {
	srv := newTestServer(t)
	seedCatalog(t, srv)

	res, body := do(t, srv, http.MethodPost, "/api/orders", orderRequest{
		CustomerID: "c1",
		Items:      []fulfillment.CartLine{{ProductID: "p1", Qty: 5}},
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var order model.Order
	require.NoError(t, json.Unmarshal(body, &order))
	assert.Equal(t, model.OrderStatusPending, order.Status)

	res, body = do(t, srv, http.MethodPost, "/api/orders/"+order.ID+"/shipments", shipmentRequest{
		Lines:       []fulfillment.ShipmentLine{{ProductID: "p1", Qty: 2}},
		TotalAmount: decimal.NewFromInt(50),
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var shipped shipmentResponse
	require.NoError(t, json.Unmarshal(body, &shipped))
	assert.Equal(t, model.OrderStatusPartial, shipped.Order.Status)
	assert.Equal(t, model.CategorySaleInvoice, shipped.Transaction.Category)

	res, _ = do(t, srv, http.MethodPost, "/api/orders/"+order.ID+"/shipments", shipmentRequest{
		Lines:       []fulfillment.ShipmentLine{{ProductID: "p1", Qty: 4}},
		TotalAmount: decimal.NewFromInt(100),
	})
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	res, body = do(t, srv, http.MethodGet, "/api/customers/c1/statement", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var stmt struct {
		Account model.Customer         `json:"account"`
		Lines   []ledger.StatementLine `json:"lines"`
	}
	require.NoError(t, json.Unmarshal(body, &stmt))
	require.Len(t, stmt.Lines, 1)
	assert.Equal(t, "50", stmt.Account.BalanceUSD.String())

	res, _ = do(t, srv, http.MethodDelete, "/api/customers/c1", nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	seedCatalog(t, srv)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{
			name:   "malformed json",
			method: http.MethodPost,
			path:   "/api/customers",
			body:   "{",
			want:   http.StatusBadRequest,
		},
		{
			name:   "invalid ean",
			method: http.MethodPost,
			path:   "/api/products",
			body:   model.Product{ID: "p2", EAN: "8682246969490"},
			want:   http.StatusUnprocessableEntity,
		},
		{
			name:   "unknown order",
			method: http.MethodGet,
			path:   "/api/orders/9999",
			want:   http.StatusNotFound,
		},
		{
			name:   "shipment for unknown order",
			method: http.MethodPost,
			path:   "/api/orders/9999/shipments",
			body:   shipmentRequest{Lines: []fulfillment.ShipmentLine{{ProductID: "p1", Qty: 1}}},
			want:   http.StatusNotFound,
		},
		{
			name:   "order for unknown customer",
			method: http.MethodPost,
			path:   "/api/orders",
			body:   orderRequest{CustomerID: "nobody", Items: []fulfillment.CartLine{{ProductID: "p1", Qty: 1}}},
			want:   http.StatusNotFound,
		},
		{
			name:   "transaction with zero rub rate",
			method: http.MethodPost,
			path:   "/api/transactions",
			body: model.Transaction{
				Type:       model.TransactionCollection,
				Amount:     decimal.NewFromInt(100),
				Currency:   model.CurrencyRUB,
				CustomerID: "c1",
			},
			want: http.StatusUnprocessableEntity,
		},
		{
			name:   "unknown report period",
			method: http.MethodGet,
			path:   "/api/reports/DECADE",
			want:   http.StatusUnprocessableEntity,
		},
		{
			name:   "assistant without key",
			method: http.MethodPost,
			path:   "/api/assistant",
			body:   askRequest{Question: "who owes the most?"},
			want:   http.StatusServiceUnavailable,
		},
		{
			name:   "unknown route",
			method: http.MethodGet,
			path:   "/api/unknown",
			want:   http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, res.StatusCode)
		})
	}
}

func TestTransactionsAndReturns(t *testing.T) {
	srv := newTestServer(t)
	seedCatalog(t, srv)

	res, body := do(t, srv, http.MethodPost, "/api/transactions", model.Transaction{
		Type:       model.TransactionIncome,
		Amount:     decimal.NewFromInt(100),
		CustomerID: "c1",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var tx model.Transaction
	require.NoError(t, json.Unmarshal(body, &tx))

	res, body = do(t, srv, http.MethodPut, "/api/transactions/"+tx.ID, correctionRequest{
		Description:  "corrected",
		Amount:       decimal.NewFromInt(9000),
		Currency:     model.CurrencyRUB,
		ExchangeRate: decimal.NewFromInt(90),
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(body, &tx))
	assert.Equal(t, "100", tx.AmountUSD.String())

	res, _ = do(t, srv, http.MethodPost, "/api/returns", returnRequest{CustomerID: "c1", ProductID: "p1", Qty: 2})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res, body = do(t, srv, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var dash struct {
		TotalStock       int64           `json:"totalStock"`
		TotalReceivables decimal.Decimal `json:"totalReceivables"`
	}
	require.NoError(t, json.Unmarshal(body, &dash))
	assert.Equal(t, int64(12), dash.TotalStock)
	assert.Equal(t, "50", dash.TotalReceivables.String())

	res, _ = do(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res, _ = do(t, srv, http.MethodDelete, "/api/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestSessionAndStatus(t *testing.T) {
	srv := newTestServer(t)

	res, _ := do(t, srv, http.MethodPut, "/api/session", sessionRequest{Operator: "admin", Language: "TR"})
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res, body := do(t, srv, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var status store.Status
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, store.SyncConnecting, status.State)

	res, body = do(t, srv, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotContains(t, string(body), "admin")
}

type failingService struct {
	Service
	err error
}

func (s failingService) RecordTransaction(tx model.Transaction) (model.Transaction, error) {
	return model.Transaction{}, s.err
}

func TestInternalErrorIsHidden(t *testing.T) {
	h := NewHandler(failingService{err: errors.New("connection reset by peer")}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString(`{"type":"INCOME"}`))
	rec := httptest.NewRecorder()
	h.CreateTransaction(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}
