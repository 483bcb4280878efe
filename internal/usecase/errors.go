package usecase

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuthFailure       = errors.New("authentication failed")
	ErrConflict          = errors.New("conflict")
	ErrDuplicateName     = fmt.Errorf("duplicate name: %w", ErrConflict)
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNotFound          = errors.New("not found")
	ErrReferencedByOrder = errors.New("referenced by order")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// Errorは対象（entity/id）付きのエラー
// errors.IsはKindで判定、Unwrapは原因
type Error struct {
	Kind    error
	Entity  string
	ID      int64
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
		if e.ID != 0 {
			fmt.Fprintf(&b, " %d", e.ID)
		}
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// どの商品が何個足りないか
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int64
	Requested   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: product %d (%s): available %d, requested %d",
		e.ProductID, e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func notFound(entity string, id int64) error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id}
}

func invalidArgument(msg string) error {
	return &Error{Kind: ErrInvalidArgument, Message: msg}
}

func storeUnavailable(op string, err error) error {
	return &Error{Kind: ErrStoreUnavailable, Message: op, Err: err}
}

var domainErrors = []error{
	ErrAuthFailure, ErrConflict, ErrInvalidQuantity, ErrInsufficientStock,
	ErrEmptyCart, ErrNotFound, ErrReferencedByOrder, ErrStoreUnavailable, ErrInvalidArgument,
}

// usecaseのエラーならそのまま、DB由来ならErrStoreUnavailableに包む
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, k := range domainErrors {
		if errors.Is(err, k) {
			return err
		}
	}
	return storeUnavailable(op, err)
}
