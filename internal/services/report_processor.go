package services

import (
	"context"
	"fmt"
	"time"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/storage"
)

// ReportProcessor materializes per-user monthly totals into the reports
// table. It is driven by expense change messages and by a periodic refresh
// that catches anything the queue missed.
type ReportProcessor struct {
	storage *storage.SQLiteRepository
	logger  *log.Logger
}

func NewReportProcessor(storage *storage.SQLiteRepository, logger *log.Logger) *ReportProcessor {
	return &ReportProcessor{
		storage: storage,
		logger:  logger.WithComponent(log.ComponentReport),
	}
}

// HandleExpenseChange recomputes the report row named by a queue message
func (p *ReportProcessor) HandleExpenseChange(ctx context.Context, msg *amqp.ExpenseChangeMessage) error {
	if msg.UserID <= 0 || msg.Month == "" {
		return fmt.Errorf("malformed change message: user_id=%d month=%q", msg.UserID, msg.Month)
	}
	return p.RefreshMonth(ctx, msg.UserID, msg.Month)
}

// RefreshMonth recomputes one user's total for a "YYYY-MM" month and
// upserts the report row.
func (p *ReportProcessor) RefreshMonth(ctx context.Context, userID int64, month string) error {
	if _, err := time.Parse("2006-01", month); err != nil {
		return fmt.Errorf("invalid month %q: %w", month, err)
	}

	total, err := p.storage.SumMonth(ctx, userID, month)
	if err != nil {
		return fmt.Errorf("sum month: %w", err)
	}

	if err := p.storage.UpsertReport(ctx, userID, month, total); err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}

	p.logger.InfoContext(ctx, "Report refreshed",
		log.FieldUserID, userID,
		log.FieldMonth, month,
		log.FieldAmount, total)

	return nil
}

// RefreshCurrentMonthAll recomputes the running month for every user. One
// failing user does not stop the sweep; the first error is reported at the
// end.
func (p *ReportProcessor) RefreshCurrentMonthAll(ctx context.Context) error {
	ids, err := p.storage.ListUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	month := core.Today().MonthKey()
	var firstErr error
	for _, id := range ids {
		if err := p.RefreshMonth(ctx, id, month); err != nil {
			p.logger.ErrorContext(ctx, "Failed to refresh report",
				log.FieldUserID, id,
				log.FieldMonth, month,
				log.FieldError, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
