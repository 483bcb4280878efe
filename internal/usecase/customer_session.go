package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"storefront/internal/domain/model"
	"storefront/internal/platform/logger"
	repo "storefront/internal/repository"
)

type CartLine struct {
	Product  model.Product   `json:"product"`
	Quantity int64           `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// カタログから消えた商品はLinesに出さずMissingで知らせる（カートからは消さない）
type CartView struct {
	Lines   []CartLine      `json:"lines"`
	Missing []int64         `json:"missing_product_ids"`
	Total   decimal.Decimal `json:"total"`
}

// CustomerSessionは1顧客分のカートと注文操作
// カート操作と注文確定はセッション内で直列化する
type CustomerSession struct {
	mu sync.Mutex

	f        *SessionFactory
	closer   SessionCloser
	customer model.Customer
	cart     *model.Cart
	log      *logger.Logger
}

func newCustomerSession(f *SessionFactory, closer SessionCloser, c model.Customer) *CustomerSession {
	return &CustomerSession{
		f:        f,
		closer:   closer,
		customer: c,
		cart:     model.NewCart(),
		log:      f.log.With("component", "CustomerSession", "username", c.Username),
	}
}

func (s *CustomerSession) Username() string { return s.customer.Username }

func (s *CustomerSession) CustomerID() int64 { return s.customer.ID }

func (s *CustomerSession) BrowseProducts(ctx context.Context) ([]model.Product, error) {
	ps, err := s.f.repos.Products().ListAll(ctx)
	if err != nil {
		return nil, storeUnavailable("list products", err)
	}
	return ps, nil
}

// 在庫チェックは目安（確定時にもう一度見る）
func (s *CustomerSession) AddToCart(ctx context.Context, productID int64, qty int64) error {
	if qty <= 0 {
		return &Error{Kind: ErrInvalidQuantity, Entity: "product", ID: productID, Message: "quantity must be positive"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.f.repos.Products().FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("product", productID)
	}
	if err != nil {
		return storeUnavailable("find product", err)
	}

	want := s.cart.Quantity(productID) + qty
	if p.StockQuantity < want {
		return &InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Available:   p.StockQuantity,
			Requested:   want,
		}
	}
	s.cart.Add(productID, qty)
	return nil
}

func (s *CustomerSession) ViewCart(ctx context.Context) (CartView, error) {
	s.mu.Lock()
	items := s.cart.Items()
	ids := s.cart.ProductIDs()
	s.mu.Unlock()

	view := CartView{Lines: []CartLine{}, Missing: []int64{}, Total: decimal.Zero}
	if len(ids) == 0 {
		return view, nil
	}

	ps, err := s.f.repos.Products().FindByIDs(ctx, ids)
	if err != nil {
		return CartView{}, storeUnavailable("find products", err)
	}
	byID := make(map[int64]model.Product, len(ps))
	for _, p := range ps {
		byID[p.ID] = p
	}

	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			view.Missing = append(view.Missing, id)
			continue
		}
		sub := p.Price.Mul(decimal.NewFromInt(items[id]))
		view.Lines = append(view.Lines, CartLine{Product: p, Quantity: items[id], Subtotal: sub})
		view.Total = view.Total.Add(sub)
	}
	if len(view.Missing) > 0 {
		s.log.Info("cart references products no longer in catalog", "product_ids", view.Missing)
	}
	return view, nil
}

// 無ければ何もしない
func (s *CustomerSession) RemoveFromCart(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Remove(productID)
}

func (s *CustomerSession) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
}

// カートの中身（コピー）
func (s *CustomerSession) CartItems() map[int64]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items()
}

// 注文確定。全部1トランザクションで、失敗したらカートはそのまま
func (s *CustomerSession) PlaceOrder(ctx context.Context) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cart.IsEmpty() {
		return model.Order{}, ErrEmptyCart
	}
	items := s.cart.Items()
	ids := s.cart.ProductIDs()

	var placed model.Order
	err := s.f.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//ID昇順で行ロックして在庫を再確認
		locked, err := r.Products().FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return storeUnavailable("lock products", err)
		}
		byID := make(map[int64]model.Product, len(locked))
		for _, p := range locked {
			byID[p.ID] = p
		}

		total := decimal.Zero
		lines := make([]model.OrderItem, 0, len(ids))
		for _, id := range ids {
			p, ok := byID[id]
			if !ok {
				return notFound("product", id)
			}
			qty := items[id]
			if p.StockQuantity < qty {
				return &InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Available:   p.StockQuantity,
					Requested:   qty,
				}
			}
			//ロック中に読んだ価格で確定
			line := model.OrderItem{ProductID: id, Quantity: qty, Price: p.Price}
			lines = append(lines, line)
			total = total.Add(line.Subtotal())
		}

		order := model.Order{
			CustomerID:  s.customer.ID,
			OrderDate:   s.f.now().UTC(),
			TotalAmount: total,
			Status:      model.OrderStatusPending,
		}
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return storeUnavailable("create order", err)
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, lines); err != nil {
			return storeUnavailable("create order items", err)
		}

		//在庫減算（足りない商品があればそのID）
		short, err := r.Inventory().DecreaseForItems(ctx, lines)
		if err != nil {
			return storeUnavailable("decrease stock", err)
		}
		if short != 0 {
			p := byID[short]
			return &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Available:   p.StockQuantity,
				Requested:   items[short],
			}
		}

		order.ID = orderID
		order.Items = lines
		placed = order
		return nil
	})
	if err != nil {
		s.log.Info("order placement failed", "error", err)
		return model.Order{}, classify("place order", err)
	}

	//コミット後にだけカートを空にする
	s.cart.Clear()
	s.log.Info("order placed", "order_id", placed.ID, "total", placed.TotalAmount.String())
	return placed, nil
}

// 自分の注文だけ、新しい順
func (s *CustomerSession) GetOrderHistory(ctx context.Context) ([]model.Order, error) {
	orders, err := s.f.repos.Orders().ListByCustomerID(ctx, s.customer.ID)
	if err != nil {
		return nil, storeUnavailable("list orders", err)
	}
	return orders, nil
}

// 通知チャネルの登録を外すだけ（セッション自体は呼び出し側が捨てる）
func (s *CustomerSession) Logout() {
	s.closer.Logout(s.customer.Username)
}
