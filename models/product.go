package models

import (
	"context"
	"time"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/utils"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Name        string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"price"`
	Sizes       string          `gorm:"size:255" json:"sizes"`
	ImageUrl    string          `json:"image_url"`
	IsActive    *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Sizes       string          `json:"sizes"`
	ImageUrl    string          `json:"image_url"`
	IsActive    *bool           `json:"is_active"`
}

func GetProducts(ctx context.Context, search string, limit int, offset int, activeOnly bool) ([]Product, error) {
	db := config.GetDB()
	var products []Product

	if limit <= 0 || limit > 100 {
		limit = config.SearchLimit
	}

	query := db.WithContext(ctx).Model(&Product{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	db := config.GetDB()
	var product Product
	if err := db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &product, nil
}

func CreateProduct(ctx context.Context, input NewProduct) (*Product, error) {
	db := config.GetDB()
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	product := Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Sizes:       input.Sizes,
		ImageUrl:    input.ImageUrl,
		IsActive:    &active,
	}
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input NewProduct) (*Product, error) {
	db := config.GetDB()
	var product Product
	if err := db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	updates := map[string]interface{}{
		"name":        input.Name,
		"description": input.Description,
		"price":       input.Price,
		"sizes":       input.Sizes,
		"image_url":   input.ImageUrl,
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if err := db.WithContext(ctx).Model(&product).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// DeactivateProduct soft-deletes: ordered items keep referencing the row.
func DeactivateProduct(ctx context.Context, id int) error {
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}
