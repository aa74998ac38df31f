package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"rental-billing/internal/core"
	"rental-billing/internal/export"
	"rental-billing/internal/store"
)

// GenerateRequest carries everything one bill or estimate generation needs. The
// rates and reference data are read by the caller before the call and used
// unchanged for the whole computation, so a settings edit can never land in the
// middle of a document.
type GenerateRequest struct {
	Event        core.EventSnapshotInput
	Rates        core.BillingRates
	DiscountRate decimal.Decimal
	NumberScope  store.NumberScope
	// Date is the document date; the zero value means "now".
	Date time.Time
}

// BillingService is the single entry point callers (CLI, API layer) use to turn
// events into numbered financial documents. Implementations contain no display
// logic.
type BillingService interface {
	// GenerateBill computes, numbers and persists a bill snapshot for an event.
	GenerateBill(ctx context.Context, req GenerateRequest) (*core.FinancialSnapshot, error)

	// GenerateEstimate is GenerateBill for the estimate sequence. Estimates and
	// bills are numbered independently.
	GenerateEstimate(ctx context.Context, req GenerateRequest) (*core.FinancialSnapshot, error)

	// GetDocument returns a stored snapshot record by id.
	GetDocument(ctx context.Context, id int64) (*core.SnapshotRecord, error)

	// ListEventDocuments returns every stored snapshot for an event, newest first.
	ListEventDocuments(ctx context.Context, eventID int) ([]core.SnapshotRecord, error)

	// ExportMaterialList renders a snapshot's grouped material list and summary
	// as a workbook at path, grouping along dim.
	ExportMaterialList(snap *core.FinancialSnapshot, refs core.ReferenceData, dim core.GroupingDimension, withHidden bool, path string) error
}

type billingService struct {
	pool  *pgxpool.Pool
	store *store.Store
}

func NewBillingService(pool *pgxpool.Pool, st *store.Store) BillingService {
	return &billingService{pool: pool, store: st}
}

func (s *billingService) GenerateBill(ctx context.Context, req GenerateRequest) (*core.FinancialSnapshot, error) {
	return s.generate(ctx, core.SnapshotBill, req)
}

func (s *billingService) GenerateEstimate(ctx context.Context, req GenerateRequest) (*core.FinancialSnapshot, error) {
	return s.generate(ctx, core.SnapshotEstimate, req)
}

// generate wraps number allocation, snapshot computation and persistence in one
// transaction: a failed insert never burns a sequence number.
func (s *billingService) generate(ctx context.Context, kind core.SnapshotKind, req GenerateRequest) (*core.FinancialSnapshot, error) {
	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}
	scope := req.NumberScope
	if scope == "" {
		scope = store.NumberScopePerYear
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, err := s.store.NextDocumentNumberTx(ctx, tx, kind, scope, date)
	if err != nil {
		return nil, err
	}

	snap, err := core.BuildSnapshot(req.Event, req.Rates, req.DiscountRate, number, date, kind)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.SaveSnapshotTx(ctx, tx, snap.Record(), scope); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit %s generation: %w", kind, err)
	}
	return snap, nil
}

func (s *billingService) GetDocument(ctx context.Context, id int64) (*core.SnapshotRecord, error) {
	return s.store.GetDocument(ctx, id)
}

func (s *billingService) ListEventDocuments(ctx context.Context, eventID int) ([]core.SnapshotRecord, error) {
	return s.store.ListEventDocuments(ctx, eventID)
}

func (s *billingService) ExportMaterialList(snap *core.FinancialSnapshot, refs core.ReferenceData, dim core.GroupingDimension, withHidden bool, path string) error {
	pres, err := snap.Presentation(refs, dim, withHidden)
	if err != nil {
		return err
	}
	return export.WriteFile(path, pres)
}
