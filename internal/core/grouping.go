package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// GroupingDimension is the axis used to organize materials for display.
type GroupingDimension string

const (
	GroupByCategory    GroupingDimension = "category"
	GroupBySubCategory GroupingDimension = "subcategory"
	GroupByPark        GroupingDimension = "park"
	GroupFlat          GroupingDimension = "flat"
)

// Synthetic group for materials carrying no id on the grouping axis.
const (
	ungroupedKey  = "--"
	ungroupedName = "Uncategorized"
)

// MaterialGroupItem is one material row inside a group, with its computed line
// totals. ParkName is set only when the reference data holds more than one park
// and the material is itself associated with a park.
type MaterialGroupItem struct {
	Reference             string          `json:"reference"`
	Name                  string          `json:"name"`
	StockQuantity         int             `json:"stock_quantity"`
	ParkName              string          `json:"park,omitempty"`
	Quantity              int             `json:"quantity"`
	RentalPrice           decimal.Decimal `json:"rental_price"`
	ReplacementPrice      decimal.Decimal `json:"replacement_price"`
	Total                 decimal.Decimal `json:"total"`
	TotalReplacementPrice decimal.Decimal `json:"total_replacement_price"`
}

// MaterialGroup is one group of materials along a grouping dimension. Items are
// keyed by reference (a later line with the same reference replaces the earlier
// one) and naturally sorted. CategoryName and CategoryHasSubCategories are only
// populated for subcategory groupings, where templates use them to decide whether
// a subcategory header is worth printing.
type MaterialGroup struct {
	ID                       *int                `json:"id,omitempty"`
	Key                      string              `json:"key"`
	Name                     string              `json:"name"`
	CategoryName             string              `json:"category_name,omitempty"`
	CategoryHasSubCategories bool                `json:"category_has_sub_categories,omitempty"`
	Items                    []MaterialGroupItem `json:"items"`
}

// CategoryTotal is the per-category aggregate consumed by bill summary tables: a
// quantity and subtotal accumulated across all matching lines. This is a distinct
// view from the detailed category grouping, not a reshaping of it.
type CategoryTotal struct {
	ID       *int            `json:"id,omitempty"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	SubTotal decimal.Decimal `json:"sub_total"`
}

// visibleOnBill applies the hidden-item suppression rule: a line is excluded when
// it is hidden on bills AND literally free. A hidden line with a nonzero price is
// always included — "hidden" does not suppress items discounted to zero by a rate.
func visibleOnBill(m MaterialLine, withHidden bool) bool {
	if withHidden {
		return true
	}
	return !(m.IsHiddenOnBill && m.RentalPrice.IsZero())
}

// GroupMaterials reorganizes a flat material list into groups along the given
// dimension, resolving names from refs. Groups are emitted in ascending
// case-insensitive order of resolved name; items within a group are naturally
// sorted by reference. GroupFlat yields a single anonymous group.
//
// A category or park id that cannot be resolved from refs is fatal for the whole
// call: the engine never guesses a display name.
func GroupMaterials(materials []MaterialLine, dim GroupingDimension, refs ReferenceData, withHidden bool) ([]MaterialGroup, error) {
	groups := make(map[string]*MaterialGroup)
	order := make(map[string]int) // insertion order, used as a last-resort tie-break

	for _, m := range materials {
		if !visibleOnBill(m, withHidden) {
			continue
		}

		group, err := resolveGroup(m, dim, refs)
		if err != nil {
			return nil, err
		}

		g, ok := groups[group.Key]
		if !ok {
			g = group
			groups[group.Key] = g
			order[group.Key] = len(order)
		}

		item, err := newGroupItem(m, refs)
		if err != nil {
			return nil, err
		}
		upsertItem(g, item)
	}

	result := make([]MaterialGroup, 0, len(groups))
	for _, g := range groups {
		sort.Slice(g.Items, func(i, j int) bool {
			return naturalLess(g.Items[i].Reference, g.Items[j].Reference)
		})
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if dim == GroupBySubCategory {
			if !strings.EqualFold(a.CategoryName, b.CategoryName) {
				return naturalLess(a.CategoryName, b.CategoryName)
			}
		}
		if !strings.EqualFold(a.Name, b.Name) {
			return naturalLess(a.Name, b.Name)
		}
		return order[a.Key] < order[b.Key]
	})
	return result, nil
}

// ComputeCategoryTotals accumulates quantity and subtotal per category across all
// visible lines. This aggregate view feeds summary tables; the itemized view comes
// from GroupMaterials.
func ComputeCategoryTotals(materials []MaterialLine, refs ReferenceData, withHidden bool) ([]CategoryTotal, error) {
	totals := make(map[string]*CategoryTotal)

	for _, m := range materials {
		if !visibleOnBill(m, withHidden) {
			continue
		}

		key, name := ungroupedKey, ungroupedName
		var id *int
		if m.CategoryID != nil {
			cat, ok := refs.category(*m.CategoryID)
			if !ok {
				return nil, fmt.Errorf("%w: category %d for material %q", ErrMissingReferenceData, *m.CategoryID, m.Reference)
			}
			key = fmt.Sprintf("%d", cat.ID)
			name = cat.Name
			catID := cat.ID
			id = &catID
		}

		t, ok := totals[key]
		if !ok {
			t = &CategoryTotal{ID: id, Name: name}
			totals[key] = t
		}
		qty := m.BoundQuantity()
		t.Quantity += qty
		t.SubTotal = t.SubTotal.Add(m.RentalPrice.Mul(decimal.NewFromInt(int64(qty))))
	}

	result := make([]CategoryTotal, 0, len(totals))
	for _, t := range totals {
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool {
		return naturalLess(result[i].Name, result[j].Name)
	})
	return result, nil
}

// resolveGroup determines the group a material belongs to along dim, with names
// resolved from refs. The returned group carries no items yet.
func resolveGroup(m MaterialLine, dim GroupingDimension, refs ReferenceData) (*MaterialGroup, error) {
	switch dim {
	case GroupFlat:
		return &MaterialGroup{Key: ungroupedKey}, nil

	case GroupByCategory:
		if m.CategoryID == nil {
			return &MaterialGroup{Key: ungroupedKey, Name: ungroupedName}, nil
		}
		cat, ok := refs.category(*m.CategoryID)
		if !ok {
			return nil, fmt.Errorf("%w: category %d for material %q", ErrMissingReferenceData, *m.CategoryID, m.Reference)
		}
		id := cat.ID
		return &MaterialGroup{ID: &id, Key: fmt.Sprintf("%d", cat.ID), Name: cat.Name}, nil

	case GroupBySubCategory:
		if m.SubCategoryID != nil {
			cat, sub, ok := refs.subCategory(*m.SubCategoryID)
			if !ok {
				return nil, fmt.Errorf("%w: subcategory %d for material %q", ErrMissingReferenceData, *m.SubCategoryID, m.Reference)
			}
			id := sub.ID
			return &MaterialGroup{
				ID:                       &id,
				Key:                      fmt.Sprintf("%d", sub.ID),
				Name:                     sub.Name,
				CategoryName:             cat.Name,
				CategoryHasSubCategories: len(cat.SubCategories) > 0,
			}, nil
		}
		if m.CategoryID != nil {
			// Material has a category but no subcategory: synthetic per-category
			// group, keyed "c-{category_id}".
			cat, ok := refs.category(*m.CategoryID)
			if !ok {
				return nil, fmt.Errorf("%w: category %d for material %q", ErrMissingReferenceData, *m.CategoryID, m.Reference)
			}
			return &MaterialGroup{
				Key:                      fmt.Sprintf("c-%d", cat.ID),
				Name:                     cat.Name,
				CategoryName:             cat.Name,
				CategoryHasSubCategories: len(cat.SubCategories) > 0,
			}, nil
		}
		return &MaterialGroup{Key: ungroupedKey, Name: ungroupedName}, nil

	case GroupByPark:
		if m.ParkID == nil {
			return &MaterialGroup{Key: ungroupedKey, Name: ungroupedName}, nil
		}
		park, ok := refs.park(*m.ParkID)
		if !ok {
			return nil, fmt.Errorf("%w: park %d for material %q", ErrMissingReferenceData, *m.ParkID, m.Reference)
		}
		id := park.ID
		return &MaterialGroup{ID: &id, Key: fmt.Sprintf("%d", park.ID), Name: park.Name}, nil
	}

	return nil, fmt.Errorf("unknown grouping dimension %q", dim)
}

// newGroupItem builds the display row for a material, computing the line totals.
func newGroupItem(m MaterialLine, refs ReferenceData) (MaterialGroupItem, error) {
	qty := decimal.NewFromInt(int64(m.BoundQuantity()))
	item := MaterialGroupItem{
		Reference:             m.Reference,
		Name:                  m.Name,
		StockQuantity:         m.StockQuantity,
		Quantity:              m.BoundQuantity(),
		RentalPrice:           m.RentalPrice,
		ReplacementPrice:      m.ReplacementPrice,
		Total:                 m.RentalPrice.Mul(qty),
		TotalReplacementPrice: m.ReplacementPrice.Mul(qty),
	}

	// Park disambiguation: only worth printing when there is more than one park.
	if len(refs.Parks) > 1 && m.ParkID != nil {
		park, ok := refs.park(*m.ParkID)
		if !ok {
			return MaterialGroupItem{}, fmt.Errorf("%w: park %d for material %q", ErrMissingReferenceData, *m.ParkID, m.Reference)
		}
		item.ParkName = park.Name
	}
	return item, nil
}

// upsertItem inserts an item into a group, replacing any earlier item with the
// same reference.
func upsertItem(g *MaterialGroup, item MaterialGroupItem) {
	for i := range g.Items {
		if g.Items[i].Reference == item.Reference {
			g.Items[i] = item
			return
		}
	}
	g.Items = append(g.Items, item)
}

func (r ReferenceData) category(id int) (Category, bool) {
	for _, c := range r.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

func (r ReferenceData) subCategory(id int) (Category, SubCategory, bool) {
	for _, c := range r.Categories {
		for _, s := range c.SubCategories {
			if s.ID == id {
				return c, s, true
			}
		}
	}
	return Category{}, SubCategory{}, false
}

func (r ReferenceData) park(id int) (Park, bool) {
	for _, p := range r.Parks {
		if p.ID == id {
			return p, true
		}
	}
	return Park{}, false
}

// naturalLess compares two strings case-insensitively with numeric awareness, so
// "REF-2" sorts before "REF-10".
func naturalLess(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for a != "" && b != "" {
		if isDigit(a[0]) && isDigit(b[0]) {
			na, resta := leadingNumber(a)
			nb, restb := leadingNumber(b)
			if na != nb {
				if len(na) != len(nb) {
					return len(na) < len(nb)
				}
				return na < nb
			}
			a, b = resta, restb
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// leadingNumber splits off the leading digit run, with leading zeros trimmed so
// "007" and "7" compare equal.
func leadingNumber(s string) (digits, rest string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	digits = strings.TrimLeft(s[:i], "0")
	if digits == "" {
		digits = "0"
	}
	return digits, s[i:]
}
