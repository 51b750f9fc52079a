// Package integrations defines how order batches enter the planner.
package integrations

import (
	"context"
	"errors"

	"courierplan/internal/instance"
)

// ErrEmptyBatch is returned by sources that found no orders.
var ErrEmptyBatch = errors.New("integrations: no orders in batch")

// OrderSource loads one batch of orders from an external system.
type OrderSource interface {
	Name() string
	FetchOrders(ctx context.Context) (instance.OrderSet, error)
}
