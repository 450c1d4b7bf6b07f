package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "A"
	UserRoleCustomer UserRole = "C"
)

func (t *UserRole) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*t = UserRole(v)
	case string:
		*t = UserRole(v)
	default:
		return errors.New("invalid user role")
	}
	return nil
}

func (t UserRole) Value() (driver.Value, error) {
	return string(t), nil
}

// OrderStatus is the payment status of an order. An order only ever moves
// UNPAID -> PAID (reconciliation engine) or UNPAID -> CANCELLED.
type OrderStatus string

const (
	OrderStatusUnpaid    OrderStatus = "UNPAID"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (t *OrderStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*t = OrderStatus(v)
	case string:
		*t = OrderStatus(v)
	default:
		return fmt.Errorf("invalid order status: %v", value)
	}
	return nil
}

func (t OrderStatus) Value() (driver.Value, error) {
	return string(t), nil
}

type FulfillmentStatus string

const (
	FulfillmentStatusProcessing FulfillmentStatus = "PROCESSING"
	FulfillmentStatusShipping   FulfillmentStatus = "SHIPPING"
	FulfillmentStatusShipped    FulfillmentStatus = "SHIPPED"
	FulfillmentStatusDelivered  FulfillmentStatus = "DELIVERED"
)

func ParseFulfillmentStatus(s string) (FulfillmentStatus, error) {
	switch FulfillmentStatus(s) {
	case FulfillmentStatusProcessing, FulfillmentStatusShipping, FulfillmentStatusShipped, FulfillmentStatusDelivered:
		return FulfillmentStatus(s), nil
	}
	return "", fmt.Errorf("invalid fulfillment status: %s", s)
}

func (t *FulfillmentStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*t = FulfillmentStatus(v)
	case string:
		*t = FulfillmentStatus(v)
	default:
		return fmt.Errorf("invalid fulfillment status: %v", value)
	}
	return nil
}

func (t FulfillmentStatus) Value() (driver.Value, error) {
	return string(t), nil
}

type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
)

func (t *PaymentStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*t = PaymentStatus(v)
	case string:
		*t = PaymentStatus(v)
	default:
		return fmt.Errorf("invalid payment status: %v", value)
	}
	return nil
}

func (t PaymentStatus) Value() (driver.Value, error) {
	return string(t), nil
}
