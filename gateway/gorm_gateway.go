package gateway

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/yeremiapane/pos-sync/models"
	"gorm.io/gorm"
)

// GormGateway serves the gateway contract from a GORM-managed database.
type GormGateway struct {
	DB *gorm.DB
}

func NewGormGateway(db *gorm.DB) *GormGateway {
	return &GormGateway{DB: db}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fmt.Errorf("remote store: %w", err)
}

func parseID(id string) (uint, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return 0, ErrNotFound
	}
	return uint(n), nil
}

func (g *GormGateway) Ping(ctx context.Context) error {
	sqlDB, err := g.DB.DB()
	if err != nil {
		return mapErr(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// tenant resolves the partition for this request from the caller identity.
func (g *GormGateway) tenant(ctx context.Context) (string, error) {
	caller := CallerFrom(ctx)
	if caller == "" {
		return "", ErrUnauthenticated
	}
	owner := OwnerOverrideFrom(ctx)
	if owner == "" || owner == caller {
		return caller, nil
	}

	var count int64
	err := g.DB.WithContext(ctx).Model(&models.StaffMember{}).
		Where("user_id = ? AND owner_id = ? AND active = ?", caller, owner, true).
		Count(&count).Error
	if err != nil {
		return "", mapErr(err)
	}
	if count == 0 {
		return "", ErrForbidden
	}
	return owner, nil
}

func (g *GormGateway) LookupStaff(ctx context.Context, userID string) (*models.StaffMember, error) {
	var staff models.StaffMember
	err := g.DB.WithContext(ctx).Where("user_id = ? AND active = ?", userID, true).First(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &staff, nil
}

func (g *GormGateway) ListCategories(ctx context.Context) ([]models.CategoryRecord, error) {
	tenant, err := g.tenant(ctx)
	if err != nil {
		return nil, err
	}
	var categories []models.CategoryRecord
	if err := g.DB.WithContext(ctx).Where("owner_id = ?", tenant).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, mapErr(err)
	}
	return categories, nil
}

func (g *GormGateway) CreateCategory(ctx context.Context, name, color string) (models.CategoryRecord, error) {
	tenant, err := g.tenant(ctx)
	if err != nil {
		return models.CategoryRecord{}, err
	}
	name = strings.TrimSpace(name)

	var count int64
	if err := g.DB.WithContext(ctx).Model(&models.CategoryRecord{}).
		Where("owner_id = ? AND LOWER(name) = ?", tenant, strings.ToLower(name)).
		Count(&count).Error; err != nil {
		return models.CategoryRecord{}, mapErr(err)
	}
	if count > 0 {
		return models.CategoryRecord{}, fmt.Errorf("category %q: %w", name, ErrConflict)
	}

	category := models.CategoryRecord{
		OwnerID: tenant,
		Name:    name,
		Color:   color,
	}
	if err := g.DB.WithContext(ctx).Create(&category).Error; err != nil {
		return models.CategoryRecord{}, mapErr(err)
	}
	return category, nil
}

func (g *GormGateway) DeleteCategory(ctx context.Context, id string) error {
	tenant, err := g.tenant(ctx)
	if err != nil {
		return err
	}
	catID, err := parseID(id)
	if err != nil {
		return err
	}

	return mapErr(g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", catID, tenant).Delete(&models.CategoryRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		// items keep existing without a category
		return tx.Model(&models.MenuItemRecord{}).
			Where("category_id = ? AND owner_id = ?", catID, tenant).
			Update("category_id", nil).Error
	}))
}

func (g *GormGateway) ListMenuItems(ctx context.Context) ([]models.MenuItemRecord, error) {
	tenant, err := g.tenant(ctx)
	if err != nil {
		return nil, err
	}
	var items []models.MenuItemRecord
	if err := g.DB.WithContext(ctx).Where("owner_id = ?", tenant).Order("name ASC").Find(&items).Error; err != nil {
		return nil, mapErr(err)
	}
	return items, nil
}

func (g *GormGateway) categoryRef(ctx context.Context, tenant, categoryID string) (*uint, error) {
	if categoryID == "" {
		return nil, nil
	}
	id, err := parseID(categoryID)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", categoryID, err)
	}
	var count int64
	if err := g.DB.WithContext(ctx).Model(&models.CategoryRecord{}).
		Where("id = ? AND owner_id = ?", id, tenant).Count(&count).Error; err != nil {
		return nil, mapErr(err)
	}
	if count == 0 {
		return nil, fmt.Errorf("category %q: %w", categoryID, ErrNotFound)
	}
	return &id, nil
}

func (g *GormGateway) CreateMenuItem(ctx context.Context, in models.MenuItemInput) (models.MenuItemRecord, error) {
	tenant, err := g.tenant(ctx)
	if err != nil {
		return models.MenuItemRecord{}, err
	}
	catID, err := g.categoryRef(ctx, tenant, in.CategoryID)
	if err != nil {
		return models.MenuItemRecord{}, err
	}

	item := models.MenuItemRecord{
		OwnerID:    tenant,
		CategoryID: catID,
		Name:       in.Name,
		Price:      in.Price,
		Stock:      in.Stock,
		ImageURL:   in.ImageURL,
	}
	if err := g.DB.WithContext(ctx).Create(&item).Error; err != nil {
		return models.MenuItemRecord{}, mapErr(err)
	}
	return item, nil
}

func (g *GormGateway) UpdateMenuItem(ctx context.Context, in models.MenuItemInput) (models.MenuItemRecord, error) {
	tenant, err := g.tenant(ctx)
	if err != nil {
		return models.MenuItemRecord{}, err
	}
	id, err := parseID(in.ID)
	if err != nil {
		return models.MenuItemRecord{}, err
	}
	catID, err := g.categoryRef(ctx, tenant, in.CategoryID)
	if err != nil {
		return models.MenuItemRecord{}, err
	}

	var item models.MenuItemRecord
	if err := g.DB.WithContext(ctx).Where("id = ? AND owner_id = ?", id, tenant).First(&item).Error; err != nil {
		return models.MenuItemRecord{}, mapErr(err)
	}
	item.Name = in.Name
	item.Price = in.Price
	item.Stock = in.Stock
	item.ImageURL = in.ImageURL
	item.CategoryID = catID

	if err := g.DB.WithContext(ctx).Save(&item).Error; err != nil {
		return models.MenuItemRecord{}, mapErr(err)
	}
	return item, nil
}

func (g *GormGateway) DeleteMenuItem(ctx context.Context, id string) error {
	tenant, err := g.tenant(ctx)
	if err != nil {
		return err
	}
	itemID, err := parseID(id)
	if err != nil {
		return err
	}
	res := g.DB.WithContext(ctx).Where("id = ? AND owner_id = ?", itemID, tenant).Delete(&models.MenuItemRecord{})
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormGateway) ListOrders(ctx context.Context) ([]models.OrderRecord, error) {
	tenant, err := g.tenant(ctx)
	if err != nil {
		return nil, err
	}
	var orders []models.OrderRecord
	if err := g.DB.WithContext(ctx).Where("owner_id = ?", tenant).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, mapErr(err)
	}
	return orders, nil
}

func (g *GormGateway) CreateOrder(ctx context.Context, order models.Order) error {
	tenant, err := g.tenant(ctx)
	if err != nil {
		return err
	}

	rec := models.OrderRecord{
		OwnerID:       tenant,
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		DiscountType:  order.DiscountType,
		CGST:          order.CGST,
		SGST:          order.SGST,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		Status:        order.Status,
		OrderType:     order.OrderType,
		TableNumber:   order.TableNumber,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		CreatedAt:     order.Date,
	}
	if rec.PaymentMethod == "" {
		rec.PaymentMethod = "cash"
	}
	if rec.Status == "" {
		rec.Status = models.OrderStatusCompleted
	}
	if err := rec.SetLines(order.Items); err != nil {
		return fmt.Errorf("encode order lines: %w", err)
	}
	return mapErr(g.DB.WithContext(ctx).Create(&rec).Error)
}

func (g *GormGateway) GetBrandSettings(ctx context.Context) ([]models.BrandSettingsRecord, error) {
	tenant, err := g.tenant(ctx)
	if err != nil {
		return nil, err
	}
	var settings []models.BrandSettingsRecord
	if err := g.DB.WithContext(ctx).Where("owner_id = ?", tenant).Limit(1).Find(&settings).Error; err != nil {
		return nil, mapErr(err)
	}
	return settings, nil
}

// UpdateBrandSettings upserts the tenant's single settings row.
func (g *GormGateway) UpdateBrandSettings(ctx context.Context, s models.BrandSettings) error {
	tenant, err := g.tenant(ctx)
	if err != nil {
		return err
	}

	return mapErr(g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.BrandSettingsRecord
		err := tx.Where("owner_id = ?", tenant).First(&rec).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		rec.OwnerID = tenant
		rec.Name = s.Name
		rec.Currency = s.Currency
		rec.Address = s.Address
		rec.Phone = s.Phone
		rec.UPIID = s.UPIID
		rec.GSTEnabled = s.GSTEnabled
		rec.GSTNumber = s.GSTNumber
		rec.CGSTRate = s.CGSTRate
		rec.SGSTRate = s.SGSTRate
		rec.ShowLogo = s.ShowLogo
		rec.ShowAddress = s.ShowAddress
		rec.ShowGSTNumber = s.ShowGSTNumber
		rec.FooterNote = s.FooterNote
		return tx.Save(&rec).Error
	}))
}
