package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"kardex/internal/core/apperror"
	"kardex/internal/core/entity"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
	"kardex/internal/domain"
	"kardex/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Service provides business operations for the stock ledger. Every balance
// mutation runs as one atomic transaction: lock the balance row, compute
// the costing transition, append the entry, save the balance. Either all
// of it commits or none of it is visible.
type Service struct {
	repo     Repository
	txm      tx.Manager
	validate *validator.Validate
}

// NewService creates a new ledger service.
func NewService(repo Repository, txm tx.Manager) *Service {
	return &Service{
		repo:     repo,
		txm:      txm,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ApplyMovement validates and applies one stock movement. The returned
// entry is the stored form with id and creation timestamp populated.
//
// An outbound movement that would drive quantity on hand negative fails
// with INSUFFICIENT_STOCK before any entry is appended; the transaction
// rolls back and no partial state is ever visible.
func (s *Service) ApplyMovement(ctx context.Context, mv entity.MovementIntent) (*entity.LedgerEntry, error) {
	if err := s.validateIntent(mv); err != nil {
		return nil, err
	}

	var stored *entity.LedgerEntry

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		bal, found, err := s.repo.GetBalanceForUpdate(ctx, mv.Key())
		if err != nil {
			return fmt.Errorf("lock balance: %w", err)
		}

		res, err := applyCosting(mv.Key(), bal, found, mv)
		if err != nil {
			return err
		}

		qty, err := canonicalQuantity(mv.Quantity)
		if err != nil {
			return err
		}
		entry := &entity.LedgerEntry{
			TenantID:      mv.TenantID,
			WarehouseID:   mv.WarehouseID,
			ProductID:     mv.ProductID,
			Type:          mv.Type,
			Quantity:      qty,
			UnitCost:      res.unitCost,
			TotalCost:     res.totalCost,
			ReferenceType: mv.ReferenceType,
			ReferenceID:   mv.ReferenceID,
		}

		if err := s.repo.AppendEntry(ctx, entry); err != nil {
			return fmt.Errorf("append entry: %w", err)
		}

		res.balance.UpdatedAt = time.Now().UTC()
		if err := s.repo.SaveBalance(ctx, res.balance); err != nil {
			return fmt.Errorf("save balance: %w", err)
		}

		stored = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock movement applied",
		"tenant_id", mv.TenantID,
		"warehouse_id", mv.WarehouseID,
		"product_id", mv.ProductID,
		"type", mv.Type,
		"quantity", stored.Quantity,
	)

	return stored, nil
}

// FindEntries returns a page of ledger entries for one balance key,
// most recent first.
func (s *Service) FindEntries(ctx context.Context, tenantID, warehouseID, productID id.ID, page, pageSize int) (domain.ListResult[entity.LedgerEntry], error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.repo.FindEntries(ctx, tenantID, warehouseID, productID, pageSize, (page-1)*pageSize)
}

// MovementHistory returns entries for a tenant in replay order with
// optional filters.
func (s *Service) MovementHistory(ctx context.Context, tenantID id.ID, f EntryFilter) ([]entity.LedgerEntry, error) {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return s.repo.ListEntries(ctx, tenantID, f)
}

// GetBalance returns the current balance for a key. An absent balance is
// returned as a zero-quantity balance, not an error.
func (s *Service) GetBalance(ctx context.Context, key entity.BalanceKey) (entity.StockBalance, error) {
	bal, found, err := s.repo.GetBalance(ctx, key)
	if err != nil {
		return entity.StockBalance{}, fmt.Errorf("get balance: %w", err)
	}
	if !found {
		return emptyBalance(key), nil
	}
	return bal, nil
}

// ListBalances returns balances for a tenant with optional filters.
func (s *Service) ListBalances(ctx context.Context, tenantID id.ID, f BalanceFilter) ([]entity.StockBalance, error) {
	return s.repo.ListBalances(ctx, tenantID, f)
}

// validateIntent rejects malformed movement intents before any state is
// touched.
func (s *Service) validateIntent(mv entity.MovementIntent) error {
	if err := s.validate.Struct(mv); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return apperror.NewValidation("malformed movement intent").
				WithDetail("field", verrs[0].Field()).
				WithCause(err)
		}
		return apperror.NewValidation("malformed movement intent").WithCause(err)
	}

	if !mv.Type.Valid() {
		return apperror.NewValidation("unknown transaction type").
			WithDetail("transaction_type", string(mv.Type))
	}

	if _, err := canonicalQuantity(mv.Quantity); err != nil {
		return err
	}

	if mv.Type.Inbound() {
		if mv.UnitCost == "" {
			return apperror.NewValidation("unit cost is required for inbound movements")
		}
	}
	if mv.UnitCost != "" {
		neg, err := isNegative(mv.UnitCost)
		if err != nil {
			return err
		}
		if neg {
			return apperror.NewValidation("unit cost must not be negative").
				WithDetail("unit_cost", mv.UnitCost)
		}
	}

	return nil
}
