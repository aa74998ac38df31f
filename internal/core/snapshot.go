package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FormatDocumentNumber renders a sequence-scoped document identifier,
// "{year}-{sequence}" with the sequence zero-padded to 5 digits.
func FormatDocumentNumber(year int, sequence int64) string {
	return fmt.Sprintf("%d-%05d", year, sequence)
}

// NextDocumentNumber derives the number of a new document from its date and the
// last known sequence value. The scope of "last known" (global, per year, …) is
// entirely the caller's decision; the engine performs no uniqueness check.
func NextDocumentNumber(date time.Time, lastSequence int64) string {
	return FormatDocumentNumber(date.Year(), lastSequence+1)
}

// BuildSnapshot produces an immutable financial document from a validated event.
// It drives the whole chain once: day span → degressive rate → totals → assembly.
// The discount rate and document number are caller-chosen; rates must have been
// read before the call and are never consulted again afterwards.
//
// The returned snapshot embeds deep copies of the material lines, so later edits
// to the live catalog cannot change the document.
func BuildSnapshot(input EventSnapshotInput, rates BillingRates, discountRate decimal.Decimal, number string, date time.Time, kind SnapshotKind) (*FinancialSnapshot, error) {
	if len(input.Beneficiaries) == 0 {
		return nil, fmt.Errorf("%w: event %d has no beneficiary", ErrIncompleteEventData, input.EventID)
	}
	if len(input.Materials) == 0 {
		return nil, fmt.Errorf("%w: event %d has no material", ErrIncompleteEventData, input.EventID)
	}

	daysCount, err := DaysBetween(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	degressiveRate := EvaluateDegressiveRate(rates.DegressiveRateFormula, daysCount)
	totals := ComputeTotals(input.Materials, discountRate, rates.VatRate, degressiveRate)

	materials := make([]SnapshotMaterial, len(input.Materials))
	for i, m := range input.Materials {
		materials[i] = SnapshotMaterial{
			ID:               m.ID,
			Name:             m.Name,
			Reference:        m.Reference,
			CategoryID:       copyID(m.CategoryID),
			SubCategoryID:    copyID(m.SubCategoryID),
			ParkID:           copyID(m.ParkID),
			RentalPrice:      m.RentalPrice,
			ReplacementPrice: m.ReplacementPrice,
			IsDiscountable:   m.IsDiscountable,
			IsHiddenOnBill:   m.IsHiddenOnBill,
			Quantity:         m.BoundQuantity(),
		}
	}

	return &FinancialSnapshot{
		Kind:              kind,
		Number:            number,
		Date:              date,
		EventID:           input.EventID,
		BeneficiaryID:     input.Beneficiaries[0].ID,
		Materials:         materials,
		DaysCount:         daysCount,
		DegressiveRate:    degressiveRate,
		DiscountRate:      discountRate,
		VatRate:           rates.VatRate,
		DueAmount:         totals.DueAmount.Round(2),
		ReplacementAmount: totals.ReplacementAmount.Round(2),
		Currency:          rates.Currency,
		totals:            totals,
	}, nil
}

// Record returns the persistence-ready projection of the snapshot. The materials
// slice is a fresh copy each call, so stored records cannot alias the snapshot.
func (s *FinancialSnapshot) Record() SnapshotRecord {
	materials := make([]SnapshotMaterial, len(s.Materials))
	copy(materials, s.Materials)

	return SnapshotRecord{
		Kind:              s.Kind,
		Number:            s.Number,
		Date:              s.Date,
		EventID:           s.EventID,
		BeneficiaryID:     s.BeneficiaryID,
		Materials:         materials,
		DaysCount:         s.DaysCount,
		DegressiveRate:    s.DegressiveRate,
		DiscountRate:      s.DiscountRate,
		VatRate:           s.VatRate,
		DueAmount:         s.DueAmount,
		ReplacementAmount: s.ReplacementAmount,
		Currency:          s.Currency,
	}
}

// Presentation returns the template-facing projection of the snapshot: rounded
// totals, the per-category aggregate view and the detailed grouped view along
// dim. Both views are derived from the snapshot's own material copies and the
// computed state of the build — nothing is recomputed from live data.
func (s *FinancialSnapshot) Presentation(refs ReferenceData, dim GroupingDimension, withHidden bool) (*SnapshotPresentation, error) {
	lines := s.materialLines()

	categories, err := ComputeCategoryTotals(lines, refs, withHidden)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		categories[i].SubTotal = categories[i].SubTotal.Round(2)
	}

	groups, err := GroupMaterials(lines, dim, refs, withHidden)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		for i := range g.Items {
			g.Items[i].Total = g.Items[i].Total.Round(2)
			g.Items[i].TotalReplacementPrice = g.Items[i].TotalReplacementPrice.Round(2)
		}
	}

	return &SnapshotPresentation{
		Kind:              s.Kind,
		Number:            s.Number,
		Date:              s.Date,
		EventID:           s.EventID,
		BeneficiaryID:     s.BeneficiaryID,
		DaysCount:         s.DaysCount,
		DegressiveRate:    s.DegressiveRate,
		DiscountRate:      s.DiscountRate,
		VatRate:           s.VatRate,
		DailyAmount:       s.totals.DailyAmount.Round(2),
		DiscountAmount:    s.totals.DiscountAmount.Round(2),
		DailyTotal:        s.totals.DailyTotal.Round(2),
		VatAmount:         s.totals.VatAmount.Round(2),
		TotalExclVat:      s.totals.DueAmount.Round(2),
		TotalInclVat:      s.totals.TotalInclVat.Round(2),
		ReplacementAmount: s.totals.ReplacementAmount.Round(2),
		Currency:          s.Currency,
		Categories:        categories,
		Groups:            groups,
	}, nil
}

// materialLines converts the snapshot's copied materials back into material lines
// for the grouping engine. Quantities are already concrete at this point.
func (s *FinancialSnapshot) materialLines() []MaterialLine {
	lines := make([]MaterialLine, len(s.Materials))
	for i, m := range s.Materials {
		qty := m.Quantity
		lines[i] = MaterialLine{
			ID:               m.ID,
			Name:             m.Name,
			Reference:        m.Reference,
			CategoryID:       copyID(m.CategoryID),
			SubCategoryID:    copyID(m.SubCategoryID),
			ParkID:           copyID(m.ParkID),
			RentalPrice:      m.RentalPrice,
			ReplacementPrice: m.ReplacementPrice,
			IsDiscountable:   m.IsDiscountable,
			IsHiddenOnBill:   m.IsHiddenOnBill,
			Quantity:         &qty,
		}
	}
	return lines
}

func copyID(id *int) *int {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
