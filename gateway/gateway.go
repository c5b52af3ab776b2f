// Package gateway is the typed CRUD boundary to the remote multi-tenant
// store. Reads are scoped to the caller's tenant server-side; the only
// caller-supplied scope is the owner override used by staff.
package gateway

import (
	"context"
	"errors"

	"github.com/yeremiapane/pos-sync/models"
)

var (
	ErrUnavailable     = errors.New("remote store unavailable")
	ErrNotFound        = errors.New("record not found")
	ErrConflict        = errors.New("record conflicts with an existing one")
	ErrUnauthenticated = errors.New("no caller identity")
	ErrForbidden       = errors.New("caller may not act for this owner")
)

type Gateway interface {
	Ping(ctx context.Context) error

	// LookupStaff returns nil, nil when the user is not registered staff.
	LookupStaff(ctx context.Context, userID string) (*models.StaffMember, error)

	ListCategories(ctx context.Context) ([]models.CategoryRecord, error)
	CreateCategory(ctx context.Context, name, color string) (models.CategoryRecord, error)
	DeleteCategory(ctx context.Context, id string) error

	ListMenuItems(ctx context.Context) ([]models.MenuItemRecord, error)
	CreateMenuItem(ctx context.Context, in models.MenuItemInput) (models.MenuItemRecord, error)
	UpdateMenuItem(ctx context.Context, in models.MenuItemInput) (models.MenuItemRecord, error)
	DeleteMenuItem(ctx context.Context, id string) error

	ListOrders(ctx context.Context) ([]models.OrderRecord, error)
	CreateOrder(ctx context.Context, order models.Order) error

	GetBrandSettings(ctx context.Context) ([]models.BrandSettingsRecord, error)
	UpdateBrandSettings(ctx context.Context, settings models.BrandSettings) error
}

// IsTransient reports whether err means the remote could not be reached, as
// opposed to the remote rejecting the request.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

type ctxKey int

const (
	callerKey ctxKey = iota
	ownerOverrideKey
)

// WithCaller attaches the authenticated user the remote derives the tenant from.
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerKey, userID)
}

// WithOwnerOverride asks the remote to act on the owner's data on behalf of
// staff. It is honoured only for active staff of that owner.
func WithOwnerOverride(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerOverrideKey, ownerID)
}

func CallerFrom(ctx context.Context) string {
	v, _ := ctx.Value(callerKey).(string)
	return v
}

func OwnerOverrideFrom(ctx context.Context) string {
	v, _ := ctx.Value(ownerOverrideKey).(string)
	return v
}
