package services

import (
	"context"
	"fmt"

	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/storage"
)

// BudgetService manages each user's monthly spending ceiling
type BudgetService struct {
	storage *storage.SQLiteRepository
	logger  *log.Logger
}

func NewBudgetService(storage *storage.SQLiteRepository, logger *log.Logger) *BudgetService {
	return &BudgetService{
		storage: storage,
		logger:  logger.WithComponent(log.ComponentBudget),
	}
}

// SetCeiling parses and stores a new monthly ceiling. Zero disables the
// over-budget alert; negative or malformed input is rejected.
func (s *BudgetService) SetCeiling(ctx context.Context, userID int64, raw string) (core.Money, error) {
	cents, err := core.ParseBudgetToCents(raw)
	if err != nil {
		return core.Money{}, err
	}

	if err := s.storage.UpdateBudget(ctx, userID, cents); err != nil {
		return core.Money{}, fmt.Errorf("store budget: %w", err)
	}

	s.logger.InfoContext(ctx, "Budget ceiling updated",
		log.FieldUserID, userID,
		log.FieldAmount, cents)

	return core.Money{Cents: cents}, nil
}
