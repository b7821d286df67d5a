package fulfillment

import (
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/textile-erp/internal/model"
)

var (
	// ErrEmptyOrder возвращается при создании заказа без строк.
	ErrEmptyOrder = errors.New("order has no items")
	// ErrProductNotFound возвращается, если строка заказа ссылается на неизвестный товар.
	ErrProductNotFound = errors.New("product not found")
)

// CartLine описывает позицию корзины при создании заказа.
type CartLine struct {
	ProductID string `json:"productId"`
	Qty       int64  `json:"qty"`
}

// NewOrder создаёт заказ в статусе Pending. Цена строки фиксируется по текущей цене продажи товара.
// Повторяющиеся товары объединяются в одну строку.
func NewOrder(state model.AppState, id, customerID string, cart []CartLine, note string, now time.Time) (model.Order, error) {
	if len(cart) == 0 {
		return model.Order{}, ErrEmptyOrder
	}

	var items []model.OrderItem
	pos := make(map[string]int, len(cart))
	for _, l := range cart {
		if l.Qty < 1 {
			return model.Order{}, fmt.Errorf("%w: product %s", ErrInvalidQuantity, l.ProductID)
		}
		pi := state.FindProduct(l.ProductID)
		if pi == -1 {
			return model.Order{}, fmt.Errorf("%w: %s", ErrProductNotFound, l.ProductID)
		}
		if i, ok := pos[l.ProductID]; ok {
			items[i].OrderedQty += l.Qty
			continue
		}
		pos[l.ProductID] = len(items)
		items = append(items, model.OrderItem{
			ProductID:  l.ProductID,
			OrderedQty: l.Qty,
			Price:      state.Products[pi].SalePrice,
		})
	}

	return model.Order{
		ID:         id,
		CustomerID: customerID,
		Date:       now.Format(model.DateLayout),
		Status:     model.OrderStatusPending,
		Items:      items,
		Note:       note,
	}, nil
}

// EditQuantities меняет заказанные количества. Количество не может быть меньше уже отгруженного,
// статус пересчитывается. Клиент заказа не меняется.
func EditQuantities(state model.AppState, orderID string, lines []CartLine) (model.AppState, error) {
	idx := state.FindOrder(orderID)
	if idx == -1 {
		return state, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	order := state.Orders[idx]

	items := make([]model.OrderItem, len(order.Items))
	copy(items, order.Items)

	for _, l := range lines {
		for i := range items {
			if items[i].ProductID != l.ProductID {
				continue
			}
			if l.Qty < 1 {
				return state, fmt.Errorf("%w: product %s", ErrInvalidQuantity, l.ProductID)
			}
			if l.Qty < items[i].ShippedQty {
				return state, fmt.Errorf("%w: product %s, shipped %d", ErrQuantityBelowShipped, l.ProductID, items[i].ShippedQty)
			}
			items[i].OrderedQty = l.Qty
		}
	}

	order.Items = items
	order.Status = DeriveStatus(items)

	orders := make([]model.Order, len(state.Orders))
	copy(orders, state.Orders)
	orders[idx] = order
	state.Orders = orders

	return state, nil
}
