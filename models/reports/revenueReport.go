package reports

import (
	"context"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type RevenueSummary struct {
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	PaidOrderCount  int64           `json:"paid_order_count"`
	TotalOrderCount int64           `json:"total_order_count"`
	CustomerCount   int64           `json:"customer_count"`
}

type RevenueByDay struct {
	Day        string          `json:"day"`
	Revenue    decimal.Decimal `json:"revenue"`
	OrderCount int64           `json:"order_count"`
}

type TopProduct struct {
	ProductName string          `json:"product_name"`
	UnitsSold   int64           `json:"units_sold"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type AnalyticsResponse struct {
	Summary      RevenueSummary `json:"summary"`
	RevenueByDay []RevenueByDay `json:"revenue_by_day"`
	TopProducts  []TopProduct   `json:"top_products"`
}

// GetRevenueAnalytics fans the three aggregate queries out concurrently.
// Revenue counts PAID orders only; an UNPAID order is a cart, not a sale.
func GetRevenueAnalytics(ctx context.Context, days int) (*AnalyticsResponse, error) {
	if days <= 0 || days > 365 {
		days = 30
	}

	var response AnalyticsResponse
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return getRevenueSummary(gctx, &response.Summary)
	})
	g.Go(func() error {
		rows, err := getRevenueByDay(gctx, days)
		if err != nil {
			return err
		}
		response.RevenueByDay = rows
		return nil
	})
	g.Go(func() error {
		rows, err := getTopProducts(gctx, days)
		if err != nil {
			return err
		}
		response.TopProducts = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &response, nil
}

func getRevenueSummary(ctx context.Context, dest *RevenueSummary) error {
	sql := `
SELECT
    COALESCE(SUM(CASE WHEN status = 'PAID' THEN total_amount ELSE 0 END), 0) AS total_revenue,
    SUM(status = 'PAID') AS paid_order_count,
    COUNT(*) AS total_order_count,
    COUNT(DISTINCT user_id) AS customer_count
FROM orders;
`
	db := config.GetDB()
	return db.WithContext(ctx).Raw(sql).Scan(dest).Error
}

func getRevenueByDay(ctx context.Context, days int) ([]RevenueByDay, error) {
	sql := `
SELECT
    DATE_FORMAT(created_at, '%Y-%m-%d') AS day,
    COALESCE(SUM(total_amount), 0) AS revenue,
    COUNT(*) AS order_count
FROM orders
WHERE status = 'PAID' AND created_at >= DATE_SUB(CURDATE(), INTERVAL ? DAY)
GROUP BY day
ORDER BY day;
`
	var records []RevenueByDay
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, days).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func getTopProducts(ctx context.Context, days int) ([]TopProduct, error) {
	sql := `
SELECT
    order_items.product_name,
    SUM(order_items.quantity) AS units_sold,
    SUM(order_items.price_at_purchase * order_items.quantity) AS revenue
FROM order_items
    JOIN orders ON orders.id = order_items.order_id
WHERE orders.status = 'PAID' AND orders.created_at >= DATE_SUB(CURDATE(), INTERVAL ? DAY)
GROUP BY order_items.product_name
ORDER BY revenue DESC
LIMIT 10;
`
	var records []TopProduct
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, days).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
