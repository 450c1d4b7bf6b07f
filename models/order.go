package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Order struct {
	ID                string            `gorm:"primary_key;size:36" json:"id"`
	UserId            int               `gorm:"index;not null" json:"user_id"`
	User              User              `gorm:"foreignkey:UserId" json:"-"`
	TotalAmount       decimal.Decimal   `gorm:"type:decimal(20,2);default:0" json:"total_amount"`
	Status            OrderStatus       `gorm:"type:enum('UNPAID','PAID','CANCELLED');default:UNPAID;index" json:"status"`
	FulfillmentStatus FulfillmentStatus `gorm:"type:enum('PROCESSING','SHIPPING','SHIPPED','DELIVERED');default:PROCESSING" json:"fulfillment_status"`
	ShippingAddress   string            `gorm:"size:255;not null" json:"shipping_address"`
	City              string            `gorm:"size:100;not null" json:"city"`
	State             string            `gorm:"size:100;not null" json:"state"`
	Items             []OrderItem       `gorm:"foreignkey:OrderId" json:"items"`
	Payment           *Payment          `gorm:"foreignkey:OrderId" json:"payment,omitempty"`
	CreatedAt         time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type OrderItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	OrderId         string          `gorm:"index;size:36;not null" json:"order_id"`
	ProductId       int             `gorm:"not null" json:"product_id"`
	ProductName     string          `gorm:"size:100;not null" json:"product_name"`
	PriceAtPurchase decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price_at_purchase"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	SelectedSize    int             `json:"selected_size"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewOrderItem struct {
	ProductId    int `json:"product_id" binding:"required"`
	Quantity     int `json:"quantity" binding:"required,min=1"`
	SelectedSize int `json:"selected_size"`
}

type NewOrder struct {
	ShippingAddress string         `json:"shipping_address" binding:"required,min=5"`
	City            string         `json:"city" binding:"required,min=2"`
	State           string         `json:"state" binding:"required,min=2"`
	Items           []NewOrderItem `json:"items" binding:"required,min=1,dive"`
}

// CreateOrder re-fetches products so prices come from the catalog, never from
// the client, then creates the order and its items in one transaction.
func CreateOrder(ctx context.Context, userID int, input NewOrder) (*Order, error) {
	db := config.GetDB()

	productIDs := make([]int, 0, len(input.Items))
	for _, item := range input.Items {
		productIDs = append(productIDs, item.ProductId)
	}

	var products []Product
	if err := db.WithContext(ctx).Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, err
	}
	productMap := make(map[int]Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}

	totalAmount := decimal.Zero
	items := make([]OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		product, ok := productMap[item.ProductId]
		if !ok {
			return nil, fmt.Errorf("product %d not found or unavailable", item.ProductId)
		}
		if product.IsActive != nil && !*product.IsActive {
			return nil, fmt.Errorf("product %s is no longer available", product.Name)
		}
		totalAmount = totalAmount.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		items = append(items, OrderItem{
			ProductId:       product.ID,
			ProductName:     product.Name,
			PriceAtPurchase: product.Price,
			Quantity:        item.Quantity,
			SelectedSize:    item.SelectedSize,
		})
	}

	order := Order{
		ID:                uuid.NewString(),
		UserId:            userID,
		TotalAmount:       totalAmount,
		Status:            OrderStatusUnpaid,
		FulfillmentStatus: FulfillmentStatusProcessing,
		ShippingAddress:   input.ShippingAddress,
		City:              input.City,
		State:             input.State,
		Items:             items,
	}
	if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&order).Error
	}); err != nil {
		return nil, err
	}

	return &order, nil
}

func GetOrdersByUser(ctx context.Context, userID int, limit int, offset int) ([]Order, error) {
	db := config.GetDB()
	var orders []Order
	if limit <= 0 || limit > 100 {
		limit = config.SearchLimit
	}
	if err := db.WithContext(ctx).Model(&Order{}).
		Preload("Items").Preload("Payment").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func GetOrders(ctx context.Context, status string, limit int, offset int) ([]Order, error) {
	db := config.GetDB()
	var orders []Order
	if limit <= 0 || limit > 100 {
		limit = config.SearchLimit
	}
	query := db.WithContext(ctx).Model(&Order{}).Preload("Items").Preload("Payment")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func GetOrderWithItems(ctx context.Context, orderID string) (*Order, error) {
	db := config.GetDB()
	var order Order
	if err := db.WithContext(ctx).Model(&Order{}).
		Preload("Items").Preload("Payment").Preload("User").
		Where("id = ?", orderID).
		Take(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UpdateFulfillmentStatus is admin-only; the payment status is untouchable
// here, only the reconciliation engine moves it.
func UpdateFulfillmentStatus(ctx context.Context, orderID string, status FulfillmentStatus) (*Order, error) {
	db := config.GetDB()
	var order Order
	if err := db.WithContext(ctx).Preload("User").Where("id = ?", orderID).Take(&order).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if err := db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", orderID).
		Update("fulfillment_status", status).Error; err != nil {
		return nil, err
	}
	order.FulfillmentStatus = status
	return &order, nil
}
