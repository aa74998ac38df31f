package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rental-billing/internal/core"
)

// NumberScope determines which sequence a document number is drawn from. The
// engine itself performs no uniqueness check; the scope is an explicit choice of
// the caller, persisted alongside the sequence.
type NumberScope string

const (
	// NumberScopeGlobal draws every document of a kind from one sequence,
	// regardless of year.
	NumberScopeGlobal NumberScope = "global"
	// NumberScopePerYear restarts the sequence each calendar year.
	NumberScopePerYear NumberScope = "per_year"
)

// Store persists financial snapshots and allocates their sequence numbers.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NextDocumentNumberTx allocates the next document number for a snapshot kind
// within an existing transaction, so that number allocation and snapshot insert
// commit or roll back together. The upsert holds a row lock until commit, which
// keeps concurrent generations from producing duplicate numbers.
func (s *Store) NextDocumentNumberTx(ctx context.Context, tx pgx.Tx, kind core.SnapshotKind, scope NumberScope, date time.Time) (string, error) {
	seqYear := date.Year()
	if scope == NumberScopeGlobal {
		seqYear = 0
	}

	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO billing_sequences (kind, scope, year, last_number)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (kind, scope, year)
		DO UPDATE SET last_number = billing_sequences.last_number + 1
		RETURNING last_number
	`, string(kind), string(scope), seqYear).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to allocate %s sequence number: %w", kind, err)
	}

	// The number always displays the document's own year, whatever the scope.
	return core.FormatDocumentNumber(date.Year(), lastNumber), nil
}

// SaveSnapshotTx inserts a snapshot record and its material copies within an
// existing transaction, returning the stored document id. The scope the number
// was drawn from is stored with the document: a per-year and a global sequence
// can legitimately produce the same display number, so uniqueness is enforced
// per (kind, scope).
func (s *Store) SaveSnapshotTx(ctx context.Context, tx pgx.Tx, rec core.SnapshotRecord, scope NumberScope) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO billing_documents
			(kind, number_scope, number, date, event_id, beneficiary_id, days_count,
			 degressive_rate, discount_rate, vat_rate, due_amount, replacement_amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, string(rec.Kind), string(scope), rec.Number, rec.Date, rec.EventID, rec.BeneficiaryID, rec.DaysCount,
		rec.DegressiveRate, rec.DiscountRate, rec.VatRate, rec.DueAmount, rec.ReplacementAmount, rec.Currency,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert billing document %s: %w", rec.Number, err)
	}

	for _, m := range rec.Materials {
		_, err = tx.Exec(ctx, `
			INSERT INTO billing_document_materials
				(document_id, material_id, name, reference, category_id, sub_category_id, park_id,
				 rental_price, replacement_price, is_discountable, is_hidden_on_bill, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, id, m.ID, m.Name, m.Reference, m.CategoryID, m.SubCategoryID, m.ParkID,
			m.RentalPrice, m.ReplacementPrice, m.IsDiscountable, m.IsHiddenOnBill, m.Quantity)
		if err != nil {
			return 0, fmt.Errorf("failed to insert material %s for document %s: %w", m.Reference, rec.Number, err)
		}
	}

	return id, nil
}

// GetDocument fetches a stored snapshot record by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (*core.SnapshotRecord, error) {
	var rec core.SnapshotRecord
	var kind string
	err := s.pool.QueryRow(ctx, `
		SELECT kind, number, date, event_id, beneficiary_id, days_count,
		       degressive_rate, discount_rate, vat_rate, due_amount, replacement_amount, currency
		FROM billing_documents
		WHERE id = $1
	`, id).Scan(
		&kind, &rec.Number, &rec.Date, &rec.EventID, &rec.BeneficiaryID, &rec.DaysCount,
		&rec.DegressiveRate, &rec.DiscountRate, &rec.VatRate, &rec.DueAmount, &rec.ReplacementAmount, &rec.Currency,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("billing document %d not found", id)
		}
		return nil, fmt.Errorf("failed to fetch billing document %d: %w", id, err)
	}
	rec.Kind = core.SnapshotKind(kind)

	materials, err := s.fetchMaterials(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Materials = materials
	return &rec, nil
}

// ListEventDocuments returns all stored snapshots for an event, newest first.
// An event accumulates documents over its lifetime: several estimates, then one
// or more bills, all of which remain valid history.
func (s *Store) ListEventDocuments(ctx context.Context, eventID int) ([]core.SnapshotRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, number, date, event_id, beneficiary_id, days_count,
		       degressive_rate, discount_rate, vat_rate, due_amount, replacement_amount, currency
		FROM billing_documents
		WHERE event_id = $1
		ORDER BY id DESC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents for event %d: %w", eventID, err)
	}
	defer rows.Close()

	var docs []core.SnapshotRecord
	var ids []int64
	for rows.Next() {
		var rec core.SnapshotRecord
		var kind string
		var id int64
		if err := rows.Scan(
			&id, &kind, &rec.Number, &rec.Date, &rec.EventID, &rec.BeneficiaryID, &rec.DaysCount,
			&rec.DegressiveRate, &rec.DiscountRate, &rec.VatRate, &rec.DueAmount, &rec.ReplacementAmount, &rec.Currency,
		); err != nil {
			return nil, fmt.Errorf("failed to scan billing document: %w", err)
		}
		rec.Kind = core.SnapshotKind(kind)
		docs = append(docs, rec)
		ids = append(ids, id)
	}

	for i, id := range ids {
		materials, err := s.fetchMaterials(ctx, id)
		if err != nil {
			return nil, err
		}
		docs[i].Materials = materials
	}
	return docs, nil
}

func (s *Store) fetchMaterials(ctx context.Context, documentID int64) ([]core.SnapshotMaterial, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT material_id, name, reference, category_id, sub_category_id, park_id,
		       rental_price, replacement_price, is_discountable, is_hidden_on_bill, quantity
		FROM billing_document_materials
		WHERE document_id = $1
		ORDER BY id
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query materials for document %d: %w", documentID, err)
	}
	defer rows.Close()

	var materials []core.SnapshotMaterial
	for rows.Next() {
		var m core.SnapshotMaterial
		if err := rows.Scan(
			&m.ID, &m.Name, &m.Reference, &m.CategoryID, &m.SubCategoryID, &m.ParkID,
			&m.RentalPrice, &m.ReplacementPrice, &m.IsDiscountable, &m.IsHiddenOnBill, &m.Quantity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document material: %w", err)
		}
		materials = append(materials, m)
	}
	return materials, nil
}
