// Package cart реализует чистый редьюсер корзины покупателя.
package cart

import "github.com/mmeshcher/coffee-order-system/internal/model"

// Action описывает одну мутацию корзины. Редьюсер тотален: любое действие
// применимо к любому состоянию, ошибочных переходов нет.
type Action interface {
	isAction()
}

// AddItem добавляет товар в корзину. Если строка с таким ProductID уже
// есть, её количество увеличивается на Quantity, иначе строка добавляется
// в конец.
type AddItem struct {
	Product  model.Product
	Quantity int64
}

// RemoveItem удаляет строку с указанным ProductID. Отсутствие строки не
// является ошибкой.
type RemoveItem struct {
	ProductID string
}

// UpdateQuantity устанавливает количество для строки. Значение <= 0
// эквивалентно RemoveItem. Отсутствие строки не является ошибкой.
type UpdateQuantity struct {
	ProductID string
	Quantity  int64
}

// Clear сбрасывает корзину в пустое состояние.
type Clear struct{}

func (AddItem) isAction()        {}
func (RemoveItem) isAction()     {}
func (UpdateQuantity) isAction() {}
func (Clear) isAction()          {}

// Apply применяет действие к снимку корзины и возвращает новое состояние.
// Исходное состояние не изменяется. Итог всегда пересчитывается заново,
// инкрементальному значению не доверяем.
func Apply(state model.Cart, action Action) model.Cart {
	switch a := action.(type) {
	case AddItem:
		return applyAdd(state, a)
	case RemoveItem:
		return applyRemove(state, a.ProductID)
	case UpdateQuantity:
		if a.Quantity <= 0 {
			return applyRemove(state, a.ProductID)
		}
		return applyUpdate(state, a)
	case Clear:
		return model.Cart{}
	}
	return recompute(cloneLines(state.Lines))
}

func applyAdd(state model.Cart, a AddItem) model.Cart {
	qty := a.Quantity
	if qty < 1 {
		qty = 1
	}

	lines := cloneLines(state.Lines)
	for i := range lines {
		if lines[i].ProductID == a.Product.ID {
			lines[i].Quantity += qty
			return recompute(lines)
		}
	}

	lines = append(lines, model.CartLine{
		ProductID:  a.Product.ID,
		Name:       a.Product.Name,
		PriceKurus: a.Product.PriceKurus,
		Quantity:   qty,
	})
	return recompute(lines)
}

func applyRemove(state model.Cart, productID string) model.Cart {
	lines := make([]model.CartLine, 0, len(state.Lines))
	for _, l := range state.Lines {
		if l.ProductID != productID {
			lines = append(lines, l)
		}
	}
	return recompute(lines)
}

func applyUpdate(state model.Cart, a UpdateQuantity) model.Cart {
	lines := cloneLines(state.Lines)
	for i := range lines {
		if lines[i].ProductID == a.ProductID {
			lines[i].Quantity = a.Quantity
			break
		}
	}
	return recompute(lines)
}

func cloneLines(lines []model.CartLine) []model.CartLine {
	out := make([]model.CartLine, len(lines))
	copy(out, lines)
	return out
}

func recompute(lines []model.CartLine) model.Cart {
	var total int64
	for _, l := range lines {
		total += l.PriceKurus * l.Quantity
	}
	return model.Cart{Lines: lines, TotalKurus: total}
}
