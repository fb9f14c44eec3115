package orderController

import (
	"errors"
	"log"
	"time"

	"campus/database"
	"campus/middleware"
	orderModels "campus/models/order"
	"campus/services"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/now"
)

// RefundOrder moves a completed order to REFUNDED. Existing enrollments and
// certificates are not revoked automatically; the order is flagged for manual
// follow-up.
func RefundOrder(c *fiber.Ctx) error {
	orderID := c.Locals("orderID").(int)

	ord, err := services.RefundOrder(database.Database.Db, uint(orderID))
	switch {
	case errors.Is(err, services.ErrNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found!", nil)
	case errors.Is(err, services.ErrInvalidTransition):
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Only completed orders can be refunded!", nil)
	case err != nil:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to refund order!", nil)
	}

	log.Printf("[ADMIN] Order %s refunded, flagged for manual enrollment review", ord.Reference)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order refunded. Enrollment access flagged for manual review.", ord)
}

// ListOrders lists all orders for the admin panel, filterable by status
func ListOrders(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	status := c.Query("status")

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&orderModels.Order{}).Where("is_deleted = false")
	if status != "" {
		db = db.Where("status = ?", status)
	}

	var total int64
	db.Count(&total)

	var orders []orderModels.Order
	if err := db.Preload("Lines").Offset(offset).Limit(limit).Order("created_at desc").Find(&orders).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch orders!", nil)
	}

	response := map[string]interface{}{
		"orders": orders,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Orders fetched successfully!", response)
}

// RevenueDashboard aggregates completed-order revenue for today, this month
// and all time, in minor units
func RevenueDashboard(c *fiber.Ctx) error {
	db := database.Database.Db

	type bucket struct {
		label string
		since time.Time
	}
	buckets := []bucket{
		{"today", now.BeginningOfDay()},
		{"this_month", now.BeginningOfMonth()},
		{"all_time", time.Time{}},
	}

	revenue := fiber.Map{}
	counts := fiber.Map{}
	for _, b := range buckets {
		var sum int64
		var count int64
		q := db.Model(&orderModels.Order{}).
			Where("status = ? AND is_deleted = false", orderModels.OrderCompleted)
		if !b.since.IsZero() {
			q = q.Where("completed_at >= ?", b.since)
		}
		q.Count(&count)
		q.Select("COALESCE(SUM(total_amount), 0)").Scan(&sum)
		revenue[b.label] = sum
		counts[b.label] = count
	}

	var refundsPending int64
	db.Model(&orderModels.Order{}).
		Where("status = ? AND is_deleted = false", orderModels.OrderRefunded).
		Count(&refundsPending)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Revenue dashboard fetched successfully!", fiber.Map{
		"revenue":          revenue,
		"completed_orders": counts,
		"refunded_orders":  refundsPending,
	})
}
