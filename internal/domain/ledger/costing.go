package ledger

import (
	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/types"
)

// costingResult carries the post-movement balance and the costs that go on
// the ledger entry.
type costingResult struct {
	balance   entity.StockBalance
	unitCost  string
	totalCost string
}

// applyCosting computes the moving-average costing transition for one
// movement against the locked balance. Pure arithmetic; no I/O happens
// while the row lock is held.
//
// Inbound on an absent balance creates it with the movement's quantity and
// unit cost. Inbound on a present balance blends the cost in proportionally:
//
//	new_avg = (old_qty*old_avg + qty*unit_cost) / (old_qty + qty)
//
// computed at intermediate scale, rounded to standard at the end.
// Outbound requires old_qty >= qty, consumes at the current average and
// leaves the average untouched. A balance drained to zero keeps its
// average until the next inbound movement recomputes it.
func applyCosting(key entity.BalanceKey, bal entity.StockBalance, found bool, mv entity.MovementIntent) (costingResult, error) {
	if !found {
		bal = emptyBalance(key)
	}

	qty, err := types.Round(mv.Quantity, types.ScaleStandard)
	if err != nil {
		return costingResult{}, err
	}

	if mv.Type.Inbound() {
		return applyInbound(bal, qty, mv.UnitCost)
	}
	return applyOutbound(bal, qty)
}

func applyInbound(bal entity.StockBalance, qty, unitCost string) (costingResult, error) {
	cost, err := types.Round(unitCost, types.ScaleStandard)
	if err != nil {
		return costingResult{}, err
	}

	onHandZero, err := types.IsZero(bal.QuantityOnHand)
	if err != nil {
		return costingResult{}, err
	}

	newQty, err := types.Add(bal.QuantityOnHand, qty, types.ScaleStandard)
	if err != nil {
		return costingResult{}, err
	}

	var newAvg string
	if onHandZero {
		// First stock in (or balance drained to zero): the incoming cost
		// is the new average.
		newAvg = cost
	} else {
		oldValue, err := types.Mul(bal.QuantityOnHand, bal.AverageCost, types.ScaleIntermediate)
		if err != nil {
			return costingResult{}, err
		}
		inValue, err := types.Mul(qty, cost, types.ScaleIntermediate)
		if err != nil {
			return costingResult{}, err
		}
		totalValue, err := types.Add(oldValue, inValue, types.ScaleIntermediate)
		if err != nil {
			return costingResult{}, err
		}
		avg, err := types.Div(totalValue, newQty, types.ScaleIntermediate)
		if err != nil {
			return costingResult{}, err
		}
		newAvg, err = types.Round(avg, types.ScaleStandard)
		if err != nil {
			return costingResult{}, err
		}
	}

	totalCost, err := movementTotal(qty, cost)
	if err != nil {
		return costingResult{}, err
	}

	bal.QuantityOnHand = newQty
	bal.AverageCost = newAvg

	return costingResult{balance: bal, unitCost: cost, totalCost: totalCost}, nil
}

func applyOutbound(bal entity.StockBalance, qty string) (costingResult, error) {
	enough, err := types.GreaterThanOrEqual(bal.QuantityOnHand, qty)
	if err != nil {
		return costingResult{}, err
	}
	if !enough {
		return costingResult{}, apperror.NewInsufficientStock(
			bal.ProductID.String(), qty, bal.QuantityOnHand,
		)
	}

	newQty, err := types.Sub(bal.QuantityOnHand, qty, types.ScaleStandard)
	if err != nil {
		return costingResult{}, err
	}

	// Outbound consumes at the current weighted average.
	totalCost, err := movementTotal(qty, bal.AverageCost)
	if err != nil {
		return costingResult{}, err
	}

	out := bal
	out.QuantityOnHand = newQty

	return costingResult{balance: out, unitCost: bal.AverageCost, totalCost: totalCost}, nil
}

// movementTotal is qty*cost at intermediate scale, rounded to standard.
func movementTotal(qty, cost string) (string, error) {
	v, err := types.Mul(qty, cost, types.ScaleIntermediate)
	if err != nil {
		return "", err
	}
	return types.Round(v, types.ScaleStandard)
}

// emptyBalance is the zero-quantity balance for a key that has not been
// touched yet.
func emptyBalance(key entity.BalanceKey) entity.StockBalance {
	return entity.StockBalance{
		TenantID:         key.TenantID,
		WarehouseID:      key.WarehouseID,
		ProductID:        key.ProductID,
		QuantityOnHand:   types.Zero(types.ScaleStandard),
		QuantityReserved: types.Zero(types.ScaleStandard),
		AverageCost:      types.Zero(types.ScaleStandard),
	}
}

// canonicalQuantity validates a movement quantity: numeric, strictly
// positive, re-expressed at standard scale. Direction comes from the
// transaction type, so a signed quantity is malformed input.
func canonicalQuantity(q string) (string, error) {
	pos, err := types.IsPositive(q)
	if err != nil {
		return "", err
	}
	if !pos {
		return "", apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", q)
	}
	return types.Round(q, types.ScaleStandard)
}

func isNegative(v string) (bool, error) {
	neg, err := types.LessThan(v, "0")
	if err != nil {
		return false, err
	}
	return neg, nil
}
