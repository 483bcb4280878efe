package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/domain/model"
	"storefront/internal/platform/logger"
	repo "storefront/internal/repository"
)

// AdminContextは管理者1ログイン分の操作
type AdminContext struct {
	f        *SessionFactory
	username string
	log      *logger.Logger
}

func newAdminContext(f *SessionFactory, username string) *AdminContext {
	return &AdminContext{
		f:        f,
		username: username,
		log:      f.log.With("component", "AdminContext", "admin", username),
	}
}

func (a *AdminContext) Username() string { return a.username }

// 管理者はRegistryを使わないので何もしない
func (a *AdminContext) Logout() {
	a.log.Debug("admin logged out")
}

type ProductInput struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int64 // AddProductのときだけ使う
	CategoryID    int64
	Brand         string
	Size          string
	Color         string
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalidArgument("name is required")
	}
	if in.Price.IsNegative() {
		return invalidArgument("price must not be negative")
	}
	if in.StockQuantity < 0 {
		return invalidArgument("stock must not be negative")
	}
	if in.CategoryID <= 0 {
		return invalidArgument("category_id is required")
	}
	return nil
}

func (a *AdminContext) BrowseProducts(ctx context.Context) ([]model.Product, error) {
	ps, err := a.f.repos.Products().ListAll(ctx)
	if err != nil {
		return nil, storeUnavailable("list products", err)
	}
	return ps, nil
}

func (a *AdminContext) GetAllCategories(ctx context.Context) ([]model.Category, error) {
	cs, err := a.f.repos.Categories().ListAll(ctx)
	if err != nil {
		return nil, storeUnavailable("list categories", err)
	}
	return cs, nil
}

func (a *AdminContext) ViewAllOrders(ctx context.Context) ([]model.Order, error) {
	orders, err := a.f.repos.Orders().ListAll(ctx)
	if err != nil {
		return nil, storeUnavailable("list orders", err)
	}
	return orders, nil
}

func (a *AdminContext) AddProduct(ctx context.Context, in ProductInput) (model.Product, error) {
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}

	var created model.Product
	err := a.f.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cat, err := r.Categories().FindByIDForShare(ctx, in.CategoryID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("category", in.CategoryID)
		}
		if err != nil {
			return storeUnavailable("find category", err)
		}

		p, err := r.Products().Create(ctx, model.Product{
			Name:          strings.TrimSpace(in.Name),
			Description:   in.Description,
			Price:         in.Price,
			StockQuantity: in.StockQuantity,
			CategoryID:    cat.ID,
			Brand:         in.Brand,
			Size:          in.Size,
			Color:         in.Color,
		})
		if errors.Is(err, repo.ErrInUse) {
			return notFound("category", in.CategoryID)
		}
		if err != nil {
			return storeUnavailable("create product", err)
		}
		p.CategoryName = cat.Name
		created = p
		return nil
	})
	if err != nil {
		return model.Product{}, classify("add product", err)
	}

	a.log.Info("product added", "product_id", created.ID)
	a.f.notifyAll(ctx, fmt.Sprintf("New product available: %s", created.Name))
	return created, nil
}

// 在庫以外を更新
func (a *AdminContext) UpdateProduct(ctx context.Context, productID int64, in ProductInput) (model.Product, error) {
	in.StockQuantity = 0
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}

	var updated model.Product
	err := a.f.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("product", productID)
		}
		if err != nil {
			return storeUnavailable("find product", err)
		}
		if _, err := r.Categories().FindByIDForShare(ctx, in.CategoryID); errors.Is(err, repo.ErrNotFound) {
			return notFound("category", in.CategoryID)
		} else if err != nil {
			return storeUnavailable("find category", err)
		}

		cur.Name = strings.TrimSpace(in.Name)
		cur.Description = in.Description
		cur.Price = in.Price
		cur.CategoryID = in.CategoryID
		cur.Brand = in.Brand
		cur.Size = in.Size
		cur.Color = in.Color
		if err := r.Products().Update(ctx, cur); errors.Is(err, repo.ErrInUse) {
			return notFound("category", in.CategoryID)
		} else if err != nil {
			return storeUnavailable("update product", err)
		}

		updated, err = r.Products().FindByID(ctx, productID)
		if err != nil {
			return storeUnavailable("reload product", err)
		}
		return nil
	})
	if err != nil {
		return model.Product{}, classify("update product", err)
	}
	return updated, nil
}

type stockSnapshot struct {
	StockQuantity int64 `json:"stock_quantity"`
}

// 在庫の上書き（監査ログも同じトランザクションで）
func (a *AdminContext) UpdateStock(ctx context.Context, productID int64, newStock int64) error {
	if newStock < 0 {
		return invalidArgument("stock must not be negative")
	}

	err := a.f.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		locked, err := r.Products().FindByIDsForUpdate(ctx, []int64{productID})
		if err != nil {
			return storeUnavailable("lock product", err)
		}
		if len(locked) == 0 {
			return notFound("product", productID)
		}

		if err := r.Inventory().SetStock(ctx, productID, newStock); err != nil {
			return storeUnavailable("set stock", err)
		}
		return a.audit(ctx, r, model.AuditActionUpdateStock, model.AuditResourceProduct, productID,
			stockSnapshot{StockQuantity: locked[0].StockQuantity},
			stockSnapshot{StockQuantity: newStock},
		)
	})
	if err != nil {
		return classify("update stock", err)
	}
	a.log.Info("stock updated", "product_id", productID, "stock", newStock)
	return nil
}

// 注文明細から参照されていたら消さない
func (a *AdminContext) DeleteProduct(ctx context.Context, productID int64) error {
	err := a.f.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		locked, err := r.Products().FindByIDsForUpdate(ctx, []int64{productID})
		if err != nil {
			return storeUnavailable("lock product", err)
		}
		if len(locked) == 0 {
			return notFound("product", productID)
		}
		if err := ensureUnreferenced(ctx, r, locked[0]); err != nil {
			return err
		}
		if err := r.Products().Delete(ctx, productID); err != nil {
			return storeUnavailable("delete product", err)
		}
		return a.audit(ctx, r, model.AuditActionDeleteProduct, model.AuditResourceProduct, productID, locked[0], nil)
	})
	if err != nil {
		return classify("delete product", err)
	}
	a.log.Info("product deleted", "product_id", productID)
	return nil
}

func ensureUnreferenced(ctx context.Context, r repo.TxRepos, p model.Product) error {
	n, err := r.OrderItems().CountByProductID(ctx, p.ID)
	if err != nil {
		return storeUnavailable("count order items", err)
	}
	if n > 0 {
		return &Error{
			Kind:    ErrReferencedByOrder,
			Entity:  "product",
			ID:      p.ID,
			Message: fmt.Sprintf("%s appears in %d order item(s)", p.Name, n),
		}
	}
	return nil
}

func (a *AdminContext) AddCategory(ctx context.Context, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, invalidArgument("name is required")
	}

	c, err := a.f.repos.Categories().Create(ctx, model.Category{Name: name})
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Category{}, &Error{Kind: ErrDuplicateName, Entity: "category", Message: name}
	}
	if err != nil {
		return model.Category{}, storeUnavailable("create category", err)
	}
	a.log.Info("category added", "category_id", c.ID)
	return c, nil
}

func (a *AdminContext) UpdateCategory(ctx context.Context, categoryID int64, name string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, invalidArgument("name is required")
	}

	err := a.f.repos.Categories().Update(ctx, model.Category{ID: categoryID, Name: name})
	switch {
	case errors.Is(err, repo.ErrDuplicate):
		return model.Category{}, &Error{Kind: ErrDuplicateName, Entity: "category", ID: categoryID, Message: name}
	case errors.Is(err, repo.ErrNotFound):
		return model.Category{}, notFound("category", categoryID)
	case err != nil:
		return model.Category{}, storeUnavailable("update category", err)
	}
	return model.Category{ID: categoryID, Name: name}, nil
}

type categoryDeletion struct {
	Category   model.Category `json:"category"`
	ProductIDs []int64        `json:"product_ids"`
}

// カテゴリを商品ごと削除。1つでも注文に使われた商品があれば何も消さない
func (a *AdminContext) DeleteCategory(ctx context.Context, categoryID int64) error {
	var deleted categoryDeletion
	err := a.f.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cat, err := r.Categories().FindByIDForUpdate(ctx, categoryID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("category", categoryID)
		}
		if err != nil {
			return storeUnavailable("find category", err)
		}

		products, err := r.Products().ListByCategoryForUpdate(ctx, categoryID)
		if err != nil {
			return storeUnavailable("lock products", err)
		}
		ids := make([]int64, 0, len(products))
		for _, p := range products {
			if err := ensureUnreferenced(ctx, r, p); err != nil {
				return err
			}
			ids = append(ids, p.ID)
		}

		if _, err := r.Products().DeleteByCategory(ctx, categoryID); err != nil {
			return storeUnavailable("delete products", err)
		}
		if err := r.Categories().Delete(ctx, categoryID); errors.Is(err, repo.ErrInUse) {
			return &Error{Kind: ErrConflict, Entity: "category", ID: categoryID, Message: "still has products"}
		} else if err != nil {
			return storeUnavailable("delete category", err)
		}

		deleted = categoryDeletion{Category: cat, ProductIDs: ids}
		return a.audit(ctx, r, model.AuditActionDeleteCategory, model.AuditResourceCategory, categoryID, deleted, nil)
	})
	if err != nil {
		return classify("delete category", err)
	}

	a.log.Info("category deleted", "category_id", categoryID, "products", len(deleted.ProductIDs))
	a.f.notifyAll(ctx, fmt.Sprintf("Category %s has been removed from the catalog", deleted.Category.Name))
	return nil
}

type statusSnapshot struct {
	Status model.OrderStatus `json:"status"`
}

// ステータス更新をコミットしてから持ち主に通知（通知の失敗は無視）
func (a *AdminContext) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) (model.Order, error) {
	status, err := model.ParseOrderStatus(string(status))
	if err != nil {
		return model.Order{}, &Error{Kind: ErrInvalidArgument, Entity: "order", ID: orderID, Message: err.Error()}
	}

	var updated model.Order
	err = a.f.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("order", orderID)
		}
		if err != nil {
			return storeUnavailable("find order", err)
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, status); err != nil {
			return storeUnavailable("update order status", err)
		}
		if err := a.audit(ctx, r, model.AuditActionUpdateOrderStatus, model.AuditResourceOrder, orderID,
			statusSnapshot{Status: o.Status}, statusSnapshot{Status: status}); err != nil {
			return err
		}
		o.Status = status
		updated = o
		return nil
	})
	if err != nil {
		return model.Order{}, classify("update order status", err)
	}
	a.log.Info("order status updated", "order_id", orderID, "status", status)

	owner, err := a.f.repos.Customers().FindByID(ctx, updated.CustomerID)
	if err != nil {
		a.log.Warn("order owner lookup failed; skipping notification", "order_id", orderID, "error", err)
		return updated, nil
	}
	a.f.notifyOne(ctx, owner.Username, fmt.Sprintf("Your order #%d is now %s", orderID, status))
	return updated, nil
}

func (a *AdminContext) Statistics(ctx context.Context) (model.StoreStatistics, error) {
	r := a.f.repos
	st := model.StoreStatistics{LowStockCeiling: a.f.lowStock}

	byStatus, err := r.Orders().CountByStatus(ctx)
	if err != nil {
		return model.StoreStatistics{}, storeUnavailable("count orders", err)
	}
	st.OrdersByStatus = byStatus
	for _, n := range byStatus {
		st.TotalOrders += n
	}

	if st.TotalRevenue, err = r.Orders().SumRevenue(ctx); err != nil {
		return model.StoreStatistics{}, storeUnavailable("sum revenue", err)
	}
	if st.TotalCustomers, err = r.Customers().Count(ctx); err != nil {
		return model.StoreStatistics{}, storeUnavailable("count customers", err)
	}
	if st.TotalProducts, err = r.Products().Count(ctx); err != nil {
		return model.StoreStatistics{}, storeUnavailable("count products", err)
	}
	if st.LowStock, err = r.Products().ListLowStock(ctx, a.f.lowStock); err != nil {
		return model.StoreStatistics{}, storeUnavailable("list low stock", err)
	}
	if st.TopSellers, err = r.OrderItems().TopSellers(ctx, 5); err != nil {
		return model.StoreStatistics{}, storeUnavailable("top sellers", err)
	}
	return st, nil
}

// 監査ログの一覧（新しい順）
func (a *AdminContext) AuditTrail(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	logs, err := a.f.repos.AuditLogs().List(ctx, filter)
	if err != nil {
		return nil, storeUnavailable("list audit logs", err)
	}
	return logs, nil
}

// before/afterをJSONにして保存
func (a *AdminContext) audit(ctx context.Context, r repo.TxRepos, action model.AuditAction, rt model.AuditResourceType, id int64, before any, after any) error {
	log := model.AuditLog{
		Actor:        a.username,
		Action:       action,
		ResourceType: rt,
		ResourceID:   id,
		CreatedAt:    a.f.now().UTC(),
	}
	var err error
	if log.BeforeJSON, err = toJSON(before); err != nil {
		return storeUnavailable("encode audit", err)
	}
	if log.AfterJSON, err = toJSON(after); err != nil {
		return storeUnavailable("encode audit", err)
	}
	if err := r.AuditLogs().Create(ctx, log); err != nil {
		return storeUnavailable("write audit log", err)
	}
	return nil
}

func toJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
