// Package allocation orders available stock items for outbound
// consumption. The selector only decides the order lots are drawn from;
// actual consumption goes through the ledger's costing path.
package allocation

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

// Strategy selects the ordering of allocation candidates.
type Strategy string

const (
	// FIFO consumes the oldest receipt first.
	FIFO Strategy = "fifo"
	// LIFO consumes the newest receipt first.
	LIFO Strategy = "lifo"
	// FEFO consumes the earliest expiry first. Items without an expiry
	// date are excluded; FEFO is only meaningful for perishables.
	FEFO Strategy = "fefo"
)

// Valid reports whether the strategy is known.
func (s Strategy) Valid() bool {
	switch s {
	case FIFO, LIFO, FEFO:
		return true
	}
	return false
}

// StockItem is one physical lot in the product/warehouse catalog's read
// model. The catalog itself is an external collaborator.
type StockItem struct {
	ID                id.ID      `json:"id"`
	ProductID         id.ID      `json:"productId"`
	WarehouseID       id.ID      `json:"warehouseId"`
	QuantityAvailable string     `json:"quantityAvailable"`
	ReceivedAt        time.Time  `json:"receivedAt"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
}

// ItemSource supplies stock items for one (tenant, warehouse, product).
type ItemSource interface {
	ListItems(ctx context.Context, tenantID, warehouseID, productID id.ID) ([]StockItem, error)
}

// Selector produces allocation candidate sequences.
type Selector struct {
	source ItemSource
}

// NewSelector creates a selector over an item source.
func NewSelector(source ItemSource) *Selector {
	return &Selector{source: source}
}

// Candidates returns the ordered sequence of available items an outbound
// allocation should consume from. The sequence is lazy and restartable;
// nothing is mutated.
func (s *Selector) Candidates(ctx context.Context, tenantID, warehouseID, productID id.ID, strategy Strategy) (iter.Seq[StockItem], error) {
	items, err := s.source.ListItems(ctx, tenantID, warehouseID, productID)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}
	return Order(items, strategy)
}

// Order filters items down to available ones and sorts them per the
// strategy. The input slice is not modified.
func Order(items []StockItem, strategy Strategy) (iter.Seq[StockItem], error) {
	if !strategy.Valid() {
		return nil, apperror.NewValidation("unknown allocation strategy").
			WithDetail("strategy", string(strategy))
	}

	candidates := make([]StockItem, 0, len(items))
	for _, item := range items {
		available, err := types.IsPositive(item.QuantityAvailable)
		if err != nil {
			return nil, err
		}
		if !available {
			continue
		}
		if strategy == FEFO && item.ExpiresAt == nil {
			continue
		}
		candidates = append(candidates, item)
	}

	switch strategy {
	case FEFO:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].ExpiresAt.Before(*candidates[j].ExpiresAt)
		})
	case FIFO:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].ReceivedAt.Before(candidates[j].ReceivedAt)
		})
	case LIFO:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].ReceivedAt.After(candidates[j].ReceivedAt)
		})
	}

	return func(yield func(StockItem) bool) {
		for _, item := range candidates {
			if !yield(item) {
				return
			}
		}
	}, nil
}
