package syncengine

import (
	"strconv"

	"github.com/yeremiapane/pos-sync/models"
)

const Uncategorized = "Uncategorized"

// ResolveCategoryName returns the display name of the item's category from a
// map keyed by category id. Items whose category is unknown or detached
// resolve to Uncategorized.
func ResolveCategoryName(item models.MenuItem, categories map[string]string) string {
	if item.CategoryID == "" {
		return Uncategorized
	}
	if name, ok := categories[item.CategoryID]; ok {
		return name
	}
	return Uncategorized
}

func categoryNames(categories []models.Category) map[string]string {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID.String()] = c.Name
	}
	return names
}

func remoteID(id uint) models.EntityID {
	return models.PersistedID(strconv.FormatUint(uint64(id), 10))
}

func toCategory(rec models.CategoryRecord) models.Category {
	return models.Category{
		ID:   remoteID(rec.ID),
		Name: rec.Name,
		Icon: rec.Color,
	}
}

func toCategories(recs []models.CategoryRecord) []models.Category {
	out := make([]models.Category, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toCategory(rec))
	}
	return out
}

func toMenuItem(rec models.MenuItemRecord, names map[string]string) models.MenuItem {
	item := models.MenuItem{
		ID:    remoteID(rec.ID),
		Name:  rec.Name,
		Price: rec.Price,
		Stock: rec.Stock,
		Image: rec.ImageURL,
	}
	if rec.CategoryID != nil {
		item.CategoryID = strconv.FormatUint(uint64(*rec.CategoryID), 10)
	}
	item.Category = ResolveCategoryName(item, names)
	return item
}

func toMenuItems(recs []models.MenuItemRecord, names map[string]string) []models.MenuItem {
	out := make([]models.MenuItem, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toMenuItem(rec, names))
	}
	return out
}

func toOrder(rec models.OrderRecord) models.Order {
	lines := rec.Lines()
	if lines == nil {
		lines = []models.OrderLine{}
	}
	return models.Order{
		ID:            remoteID(rec.ID),
		Items:         lines,
		Subtotal:      rec.Subtotal,
		Discount:      rec.Discount,
		DiscountType:  rec.DiscountType,
		CGST:          rec.CGST,
		SGST:          rec.SGST,
		Total:         rec.Total,
		Date:          rec.CreatedAt,
		Status:        rec.Status,
		OrderType:     rec.OrderType,
		PaymentMethod: rec.PaymentMethod,
		TableNumber:   rec.TableNumber,
		CustomerName:  rec.CustomerName,
		CustomerPhone: rec.CustomerPhone,
	}
}

func toOrders(recs []models.OrderRecord) []models.Order {
	out := make([]models.Order, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toOrder(rec))
	}
	return out
}

func toBrand(rec models.BrandSettingsRecord) models.BrandSettings {
	return models.BrandSettings{
		Name:          rec.Name,
		Currency:      rec.Currency,
		Address:       rec.Address,
		Phone:         rec.Phone,
		UPIID:         rec.UPIID,
		GSTEnabled:    rec.GSTEnabled,
		GSTNumber:     rec.GSTNumber,
		CGSTRate:      rec.CGSTRate,
		SGSTRate:      rec.SGSTRate,
		ShowLogo:      rec.ShowLogo,
		ShowAddress:   rec.ShowAddress,
		ShowGSTNumber: rec.ShowGSTNumber,
		FooterNote:    rec.FooterNote,
	}
}

func toInput(item models.MenuItem) models.MenuItemInput {
	id, _ := item.ID.Remote()
	return models.MenuItemInput{
		ID:         id,
		Name:       item.Name,
		Price:      item.Price,
		CategoryID: item.CategoryID,
		ImageURL:   item.Image,
		Stock:      item.Stock,
	}
}
