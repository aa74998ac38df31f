package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaterialLine is one rental item type: a per-day price, a replacement value and,
// when bound to an event, a quantity.
type MaterialLine struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	Reference        string          `json:"reference"`
	CategoryID       *int            `json:"category_id,omitempty"`
	SubCategoryID    *int            `json:"sub_category_id,omitempty"`
	ParkID           *int            `json:"park_id,omitempty"`
	RentalPrice      decimal.Decimal `json:"rental_price"`
	ReplacementPrice decimal.Decimal `json:"replacement_price"`
	StockQuantity    int             `json:"stock_quantity"`
	IsDiscountable   bool            `json:"is_discountable"`
	IsHiddenOnBill   bool            `json:"is_hidden_on_bill"`
	Attributes       map[string]any  `json:"attributes,omitempty"`

	// Quantity is the event binding ("how many of this item are attached to this
	// event"). It is nil when the line is used catalog-wide with no event context.
	Quantity *int `json:"quantity,omitempty"`
}

// BoundQuantity returns the event-bound quantity, or 0 when the line carries no
// event binding.
func (m MaterialLine) BoundQuantity() int {
	if m.Quantity == nil {
		return 0
	}
	return *m.Quantity
}

// Beneficiary is a billed party for an event. The first beneficiary in an event's
// list is the invoice recipient.
type Beneficiary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type SubCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Category struct {
	ID            int           `json:"id"`
	Name          string        `json:"name"`
	SubCategories []SubCategory `json:"sub_categories,omitempty"`
}

type Park struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ReferenceData carries the categories (with their subcategories) and parks used
// for name resolution during grouping. It is read once per computation and never
// consulted again afterwards.
type ReferenceData struct {
	Categories []Category `json:"categories"`
	Parks      []Park     `json:"parks"`
}

// EventSnapshotInput is the immutable input to the snapshot builder. Dates are
// calendar dates in YYYY-MM-DD form; the caller must have fully resolved
// beneficiaries and materials before invoking the engine.
type EventSnapshotInput struct {
	EventID       int            `json:"event_id"`
	StartDate     string         `json:"start_date"`
	EndDate       string         `json:"end_date"`
	Beneficiaries []Beneficiary  `json:"beneficiaries"`
	Materials     []MaterialLine `json:"materials"`
}

// BillingRates are the global settings of one computation: VAT percentage and the
// operator-configured degressive rate formula. They must be read once at the start
// of a computation and passed in unchanged for its entire duration.
type BillingRates struct {
	VatRate               decimal.Decimal `json:"vat_rate"`
	DegressiveRateFormula string          `json:"degressive_rate_formula"`
	Currency              string          `json:"currency"`
}

// SnapshotKind discriminates bills from estimates. Both are produced by the same
// builder and share numbering, storage and presentation machinery.
type SnapshotKind string

const (
	SnapshotBill     SnapshotKind = "bill"
	SnapshotEstimate SnapshotKind = "estimate"
)

// SnapshotMaterial is the deep copy of a material line embedded in a financial
// snapshot. It is decoupled from the live catalog so that later edits to a
// material never retroactively change a historical document. The quantity is
// resolved to a concrete value at copy time.
type SnapshotMaterial struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	Reference        string          `json:"reference"`
	CategoryID       *int            `json:"category_id,omitempty"`
	SubCategoryID    *int            `json:"sub_category_id,omitempty"`
	ParkID           *int            `json:"park_id,omitempty"`
	RentalPrice      decimal.Decimal `json:"rental_price"`
	ReplacementPrice decimal.Decimal `json:"replacement_price"`
	IsDiscountable   bool            `json:"is_discountable"`
	IsHiddenOnBill   bool            `json:"is_hidden_on_bill"`
	Quantity         int             `json:"quantity"`
}

// Totals holds every intermediate value of the financial chain at full precision.
// Nothing in here is rounded; rounding happens only when a value leaves the engine
// through a snapshot record or a presentation.
type Totals struct {
	DailyAmount             decimal.Decimal
	DiscountableDailyAmount decimal.Decimal
	DiscountAmount          decimal.Decimal
	DailyTotal              decimal.Decimal
	VatAmount               decimal.Decimal
	DailyTotalInclVat       decimal.Decimal
	DueAmount               decimal.Decimal
	TotalInclVat            decimal.Decimal
	ReplacementAmount       decimal.Decimal
}

// FinancialSnapshot is an immutable, numbered financial document (a bill or an
// estimate) capturing all pricing inputs and outputs at generation time. It is
// created once per "generate" action and never mutated; a later action produces a
// new snapshot with a new number while prior ones remain valid history.
type FinancialSnapshot struct {
	Kind              SnapshotKind
	Number            string
	Date              time.Time
	EventID           int
	BeneficiaryID     int
	Materials         []SnapshotMaterial
	DaysCount         int
	DegressiveRate    decimal.Decimal
	DiscountRate      decimal.Decimal
	VatRate           decimal.Decimal
	DueAmount         decimal.Decimal
	ReplacementAmount decimal.Decimal
	Currency          string

	// Full-precision computed state feeding both projections.
	totals Totals
}

// SnapshotRecord is the flat, persistence-ready projection of a snapshot. All
// monetary totals are rounded to 2 decimals.
type SnapshotRecord struct {
	Kind              SnapshotKind       `json:"kind"`
	Number            string             `json:"number"`
	Date              time.Time          `json:"date"`
	EventID           int                `json:"event_id"`
	BeneficiaryID     int                `json:"beneficiary_id"`
	Materials         []SnapshotMaterial `json:"materials"`
	DaysCount         int                `json:"days_count"`
	DegressiveRate    decimal.Decimal    `json:"degressive_rate"`
	DiscountRate      decimal.Decimal    `json:"discount_rate"`
	VatRate           decimal.Decimal    `json:"vat_rate"`
	DueAmount         decimal.Decimal    `json:"due_amount"`
	ReplacementAmount decimal.Decimal    `json:"replacement_amount"`
	Currency          string             `json:"currency"`
}

// SnapshotPresentation is the template-facing projection of a snapshot: the same
// computed state as the record, plus the grouped material views templates render.
// Monetary values are rounded to 2 decimals here and nowhere earlier.
type SnapshotPresentation struct {
	Kind              SnapshotKind    `json:"kind"`
	Number            string          `json:"number"`
	Date              time.Time       `json:"date"`
	EventID           int             `json:"event_id"`
	BeneficiaryID     int             `json:"beneficiary_id"`
	DaysCount         int             `json:"days_count"`
	DegressiveRate    decimal.Decimal `json:"degressive_rate"`
	DiscountRate      decimal.Decimal `json:"discount_rate"`
	VatRate           decimal.Decimal `json:"vat_rate"`
	DailyAmount       decimal.Decimal `json:"daily_amount"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	DailyTotal        decimal.Decimal `json:"daily_total"`
	VatAmount         decimal.Decimal `json:"vat_amount"`
	TotalExclVat      decimal.Decimal `json:"total_excl_vat"`
	TotalInclVat      decimal.Decimal `json:"total_incl_vat"`
	ReplacementAmount decimal.Decimal `json:"replacement_amount"`
	Currency          string          `json:"currency"`

	// Categories is the per-category aggregate view used by summary tables.
	// Groups is the detailed itemized view. They serve different template
	// sections and are not interchangeable.
	Categories []CategoryTotal `json:"categories"`
	Groups     []MaterialGroup `json:"groups"`
}
