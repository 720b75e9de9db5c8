package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/types"
)

// Service computes analytic reports over ledger state.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new analytics service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ABCAnalysis classifies inventory positions into value tiers by running
// cumulative share of total value: A while the cumulative percentage stays
// within 80, B within 95, C above. The thresholds are inclusive. When the
// grand total is zero every position classifies C.
func (s *Service) ABCAnalysis(ctx context.Context, q Query) (*ABCReport, error) {
	balances, err := s.repo.ListBalances(ctx, q.TenantID, q.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}

	items := make([]ABCItem, 0, len(balances))
	grand := types.Zero(types.ScaleStandard)
	for _, b := range balances {
		value, err := positionValue(b)
		if err != nil {
			return nil, err
		}
		items = append(items, ABCItem{
			ProductID:   b.ProductID,
			WarehouseID: b.WarehouseID,
			TotalValue:  value,
		})
		grand, err = types.Add(grand, value, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
	}

	// Stable sort keeps insertion order between equal values.
	sort.SliceStable(items, func(i, j int) bool {
		return greater(items[i].TotalValue, items[j].TotalValue)
	})

	grandZero, err := types.IsZero(grand)
	if err != nil {
		return nil, err
	}
	if grandZero {
		for i := range items {
			items[i].CumulativePct = types.Zero(types.ScaleStandard)
			items[i].Class = ClassC
		}
		return &ABCReport{Items: items, GrandTotal: grand}, nil
	}

	cumulative := types.Zero(types.ScaleStandard)
	for i := range items {
		cumulative, err = types.Add(cumulative, items[i].TotalValue, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
		scaled, err := types.Mul(cumulative, "100", types.ScaleIntermediate)
		if err != nil {
			return nil, err
		}
		pct, err := types.Div(scaled, grand, types.ScaleIntermediate)
		if err != nil {
			return nil, err
		}
		items[i].CumulativePct, err = types.Round(pct, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
		items[i].Class, err = classify(items[i].CumulativePct)
		if err != nil {
			return nil, err
		}
	}

	return &ABCReport{Items: items, GrandTotal: grand}, nil
}

func classify(cumulativePct string) (string, error) {
	withinA, err := types.LessThanOrEqual(cumulativePct, classAThreshold)
	if err != nil {
		return "", err
	}
	if withinA {
		return ClassA, nil
	}
	withinB, err := types.LessThanOrEqual(cumulativePct, classBThreshold)
	if err != nil {
		return "", err
	}
	if withinB {
		return ClassB, nil
	}
	return ClassC, nil
}

// Valuation reports every position valued at its weighted average cost,
// sorted by value descending, with a grand total.
func (s *Service) Valuation(ctx context.Context, q Query) (*ValuationReport, error) {
	balances, err := s.repo.ListBalances(ctx, q.TenantID, q.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}

	items := make([]ValuationItem, 0, len(balances))
	grand := types.Zero(types.ScaleStandard)
	for _, b := range balances {
		value, err := positionValue(b)
		if err != nil {
			return nil, err
		}
		items = append(items, ValuationItem{
			ProductID:      b.ProductID,
			WarehouseID:    b.WarehouseID,
			QuantityOnHand: b.QuantityOnHand,
			AverageCost:    b.AverageCost,
			TotalValue:     value,
		})
		grand, err = types.Add(grand, value, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return greater(items[i].TotalValue, items[j].TotalValue)
	})

	return &ValuationReport{Items: items, GrandTotal: grand}, nil
}

// DemandForecast averages outbound flow over the observation window and
// projects it 30 days ahead per (product, warehouse).
func (s *Service) DemandForecast(ctx context.Context, q Query, periodDays int) (*ForecastReport, error) {
	if err := validatePeriod(periodDays); err != nil {
		return nil, err
	}

	rows, err := s.repo.OutboundTotals(ctx, q.TenantID, q.WarehouseID, windowStart(s.now(), periodDays))
	if err != nil {
		return nil, fmt.Errorf("outbound totals: %w", err)
	}

	days := types.FromInt(int64(periodDays))
	items := make([]ForecastItem, 0, len(rows))
	for _, row := range rows {
		outflow, err := types.Round(row.Quantity, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
		avgDaily, err := types.Div(outflow, days, types.ScaleIntermediate)
		if err != nil {
			return nil, err
		}
		projected, err := types.Mul(avgDaily, "30", types.ScaleIntermediate)
		if err != nil {
			return nil, err
		}
		forecast, err := types.Round(projected, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
		avgOut, err := types.Round(avgDaily, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
		items = append(items, ForecastItem{
			ProductID:      row.ProductID,
			WarehouseID:    row.WarehouseID,
			TotalOutflow:   outflow,
			AvgDailyDemand: avgOut,
			Forecast30Days: forecast,
		})
	}

	return &ForecastReport{PeriodDays: periodDays, Items: items}, nil
}

// TurnoverRate relates shipment cost of goods sold in the window to the
// current inventory value per product. Zero inventory value yields zero
// rates and a nil days-in-stock, not an error.
func (s *Service) TurnoverRate(ctx context.Context, q Query, periodDays int) (*TurnoverReport, error) {
	if err := validatePeriod(periodDays); err != nil {
		return nil, err
	}

	balances, err := s.repo.ListBalances(ctx, q.TenantID, q.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	cogsRows, err := s.repo.ShipmentCOGS(ctx, q.TenantID, q.WarehouseID, windowStart(s.now(), periodDays))
	if err != nil {
		return nil, fmt.Errorf("shipment cogs: %w", err)
	}

	// Inventory value per product, summed across warehouses in scope.
	order := make([]id.ID, 0, len(balances))
	invValue := make(map[id.ID]string, len(balances))
	for _, b := range balances {
		value, err := positionValue(b)
		if err != nil {
			return nil, err
		}
		if existing, ok := invValue[b.ProductID]; ok {
			invValue[b.ProductID], err = types.Add(existing, value, types.ScaleStandard)
			if err != nil {
				return nil, err
			}
		} else {
			invValue[b.ProductID] = value
			order = append(order, b.ProductID)
		}
	}

	cogs := make(map[id.ID]string, len(cogsRows))
	for _, row := range cogsRows {
		total, err := types.Round(row.TotalCost, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
		cogs[row.ProductID] = total
		if _, ok := invValue[row.ProductID]; !ok {
			// Shipments from a position since drained below the balance
			// listing filter still report, with zero inventory value.
			invValue[row.ProductID] = types.Zero(types.ScaleStandard)
			order = append(order, row.ProductID)
		}
	}

	days := types.FromInt(int64(periodDays))
	items := make([]TurnoverItem, 0, len(order))
	for _, productID := range order {
		item := TurnoverItem{
			ProductID:      productID,
			InventoryValue: invValue[productID],
			COGS:           types.Zero(types.ScaleStandard),
		}
		if c, ok := cogs[productID]; ok {
			item.COGS = c
		}

		hasStockValue, err := types.IsPositive(item.InventoryValue)
		if err != nil {
			return nil, err
		}
		if !hasStockValue {
			item.TurnoverRate = types.Zero(types.ScaleStandard)
			item.AnnualizedRate = types.Zero(types.ScaleStandard)
			items = append(items, item)
			continue
		}

		rate, err := types.Div(item.COGS, item.InventoryValue, types.ScaleIntermediate)
		if err != nil {
			return nil, err
		}
		item.TurnoverRate, err = types.Round(rate, types.ScaleStandard)
		if err != nil {
			return nil, err
		}

		yearly, err := types.Mul(rate, "365", types.ScaleIntermediate)
		if err != nil {
			return nil, err
		}
		annualized, err := types.Div(yearly, days, types.ScaleIntermediate)
		if err != nil {
			return nil, err
		}
		item.AnnualizedRate, err = types.Round(annualized, types.ScaleStandard)
		if err != nil {
			return nil, err
		}

		dailyCOGS, err := types.Div(item.COGS, days, types.ScaleIntermediate)
		if err != nil {
			return nil, err
		}
		dailyZero, err := types.IsZero(dailyCOGS)
		if err != nil {
			return nil, err
		}
		if !dailyZero {
			inStock, err := types.Div(item.InventoryValue, dailyCOGS, types.ScaleIntermediate)
			if err != nil {
				return nil, err
			}
			inStockDays, err := types.Round(inStock, types.ScaleStandard)
			if err != nil {
				return nil, err
			}
			item.DaysInStock = &inStockDays
		}

		items = append(items, item)
	}

	return &TurnoverReport{PeriodDays: periodDays, Items: items}, nil
}

// CarryingCost imputes the cost of holding each position over the period,
// proportional to its value and an annual carrying rate.
func (s *Service) CarryingCost(ctx context.Context, q Query, periodDays int, carryingRate string) (*CarryingCostReport, error) {
	if err := validatePeriod(periodDays); err != nil {
		return nil, err
	}
	rate, err := types.Round(carryingRate, types.ScaleIntermediate)
	if err != nil {
		return nil, err
	}
	if neg, err := types.LessThan(rate, "0"); err != nil {
		return nil, err
	} else if neg {
		return nil, apperror.NewValidation("carrying rate must not be negative").
			WithDetail("carrying_rate", carryingRate)
	}

	balances, err := s.repo.ListBalances(ctx, q.TenantID, q.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}

	days := types.FromInt(int64(periodDays))
	items := make([]CarryingCostItem, 0, len(balances))
	grand := types.Zero(types.ScaleStandard)
	for _, b := range balances {
		value, err := positionValue(b)
		if err != nil {
			return nil, err
		}
		annual, err := types.Mul(value, rate, types.ScaleIntermediate)
		if err != nil {
			return nil, err
		}
		// Daily cost stays at intermediate scale so the period cost does
		// not compound the rounding of a tiny per-day amount.
		daily, err := types.Div(annual, "365", types.ScaleIntermediate)
		if err != nil {
			return nil, err
		}
		period, err := types.Mul(daily, days, types.ScaleIntermediate)
		if err != nil {
			return nil, err
		}
		carrying, err := types.Round(period, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
		annualOut, err := types.Round(annual, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
		items = append(items, CarryingCostItem{
			ProductID:      b.ProductID,
			WarehouseID:    b.WarehouseID,
			InventoryValue: value,
			AnnualCost:     annualOut,
			DailyCost:      daily,
			CarryingCost:   carrying,
		})
		grand, err = types.Add(grand, carrying, types.ScaleStandard)
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return greater(items[i].CarryingCost, items[j].CarryingCost)
	})

	return &CarryingCostReport{
		PeriodDays:   periodDays,
		CarryingRate: rate,
		Items:        items,
		GrandTotal:   grand,
	}, nil
}

// positionValue is quantity on hand times average cost, intermediate then
// rounded to standard.
func positionValue(b entity.StockBalance) (string, error) {
	v, err := types.Mul(b.QuantityOnHand, b.AverageCost, types.ScaleIntermediate)
	if err != nil {
		return "", err
	}
	return types.Round(v, types.ScaleStandard)
}

// greater compares two canonical decimal strings for descending sorts.
// Operands are produced by this package, so parse failures cannot occur.
func greater(a, b string) bool {
	c, _ := types.Compare(a, b)
	return c > 0
}

func validatePeriod(periodDays int) error {
	if periodDays < 1 {
		return apperror.NewValidation("period must be at least one day").
			WithDetail("period_days", periodDays)
	}
	return nil
}
