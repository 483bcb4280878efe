package model

import "sort"

// セッション内だけのカート（永続化しない）
// 数量は常に1以上。削除はキーごと消す。
// 同期は持ち主のセッション側で行う。
type Cart struct {
	items map[int64]int64
}

func NewCart() *Cart {
	return &Cart{items: make(map[int64]int64)}
}

// 現在の数量（無ければ0）
func (c *Cart) Quantity(productID int64) int64 {
	return c.items[productID]
}

// qtyを加算して新しい数量を返す。qty<=0は何もしない。
func (c *Cart) Add(productID int64, qty int64) int64 {
	if qty <= 0 {
		return c.items[productID]
	}
	c.items[productID] += qty
	return c.items[productID]
}

// 無ければfalse
func (c *Cart) Remove(productID int64) bool {
	if _, ok := c.items[productID]; !ok {
		return false
	}
	delete(c.items, productID)
	return true
}

func (c *Cart) Clear() {
	c.items = make(map[int64]int64)
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// コピーを返す
func (c *Cart) Items() map[int64]int64 {
	out := make(map[int64]int64, len(c.items))
	for id, q := range c.items {
		out[id] = q
	}
	return out
}

// 商品IDの昇順（ロック順を固定するため）
func (c *Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
