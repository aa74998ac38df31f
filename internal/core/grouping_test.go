package core_test

import (
	"errors"
	"testing"

	"rental-billing/internal/core"
)

// testRefs builds the reference data used across grouping tests: two categories
// (sound with two subcategories, light with none) and two parks.
func testRefs() core.ReferenceData {
	return core.ReferenceData{
		Categories: []core.Category{
			{ID: 1, Name: "Sound", SubCategories: []core.SubCategory{
				{ID: 11, Name: "Mixers"},
				{ID: 12, Name: "Processors"},
			}},
			{ID: 2, Name: "Light"},
		},
		Parks: []core.Park{
			{ID: 1, Name: "Default"},
			{ID: 2, Name: "Annex"},
		},
	}
}

func catalogLine(ref, name string, catID, subID, parkID *int, price string, qty int) core.MaterialLine {
	return core.MaterialLine{
		Name:             name,
		Reference:        ref,
		CategoryID:       catID,
		SubCategoryID:    subID,
		ParkID:           parkID,
		RentalPrice:      dec(price),
		ReplacementPrice: dec("0"),
		Quantity:         intPtr(qty),
	}
}

func TestGroupMaterials_HiddenItemSuppression(t *testing.T) {
	free := catalogLine("FREE-1", "Cable bundle", intPtr(1), nil, nil, "0", 2)
	free.IsHiddenOnBill = true
	priced := catalogLine("HID-1", "Hidden but priced", intPtr(1), nil, nil, "5", 1)
	priced.IsHiddenOnBill = true
	regular := catalogLine("REG-1", "Console", intPtr(1), nil, nil, "100", 1)

	materials := []core.MaterialLine{free, priced, regular}

	for _, dim := range []core.GroupingDimension{
		core.GroupByCategory, core.GroupBySubCategory, core.GroupByPark, core.GroupFlat,
	} {
		t.Run(string(dim), func(t *testing.T) {
			groups, err := core.GroupMaterials(materials, dim, testRefs(), false)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			refs := collectReferences(groups)
			if refs["FREE-1"] {
				t.Errorf("hidden free line must be suppressed in %s grouping", dim)
			}
			if !refs["HID-1"] {
				t.Errorf("hidden line with nonzero price must be kept in %s grouping", dim)
			}
			if !refs["REG-1"] {
				t.Errorf("regular line missing from %s grouping", dim)
			}

			withHidden, err := core.GroupMaterials(materials, dim, testRefs(), true)
			if err != nil {
				t.Fatalf("unexpected error with withHidden: %v", err)
			}
			if !collectReferences(withHidden)["FREE-1"] {
				t.Errorf("withHidden must include the hidden free line in %s grouping", dim)
			}
		})
	}
}

func collectReferences(groups []core.MaterialGroup) map[string]bool {
	refs := make(map[string]bool)
	for _, g := range groups {
		for _, item := range g.Items {
			refs[item.Reference] = true
		}
	}
	return refs
}

func TestGroupMaterials_ByCategory(t *testing.T) {
	materials := []core.MaterialLine{
		catalogLine("SPOT-1", "Spot", intPtr(2), nil, nil, "15", 1),
		catalogLine("MIX-1", "Mixer", intPtr(1), intPtr(11), nil, "50", 2),
		catalogLine("MIX-10", "Big mixer", intPtr(1), intPtr(11), nil, "80", 1),
		catalogLine("MIX-2", "Small mixer", intPtr(1), intPtr(11), nil, "30", 1),
		catalogLine("LOOSE-1", "Adapter", nil, nil, nil, "2", 4),
	}

	groups, err := core.GroupMaterials(materials, core.GroupByCategory, testRefs(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantNames := []string{"Light", "Sound", "Uncategorized"}
	if len(groups) != len(wantNames) {
		t.Fatalf("got %d groups, want %d", len(groups), len(wantNames))
	}
	for i, name := range wantNames {
		if groups[i].Name != name {
			t.Errorf("group[%d].Name = %q, want %q (ascending by name)", i, groups[i].Name, name)
		}
	}

	// Items naturally sorted by reference: MIX-1 < MIX-2 < MIX-10.
	sound := groups[1]
	wantRefs := []string{"MIX-1", "MIX-2", "MIX-10"}
	for i, ref := range wantRefs {
		if sound.Items[i].Reference != ref {
			t.Errorf("sound.Items[%d].Reference = %q, want %q (natural order)", i, sound.Items[i].Reference, ref)
		}
	}

	// Line totals computed per item.
	if !sound.Items[0].Total.Equal(dec("100")) {
		t.Errorf("MIX-1 total = %s, want 100", sound.Items[0].Total)
	}
}

func TestGroupMaterials_RoundTrip(t *testing.T) {
	hidden := catalogLine("FREE-1", "Freebie", intPtr(2), nil, nil, "0", 1)
	hidden.IsHiddenOnBill = true
	materials := []core.MaterialLine{
		catalogLine("A-1", "Alpha", intPtr(1), nil, nil, "10", 1),
		catalogLine("B-1", "Beta", intPtr(2), nil, nil, "20", 2),
		catalogLine("C-1", "Gamma", nil, nil, nil, "30", 1),
		hidden,
	}

	groups, err := core.GroupMaterials(materials, core.GroupByCategory, testRefs(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Flattening the groups must reproduce exactly the filtered input set.
	got := collectReferences(groups)
	want := map[string]bool{"A-1": true, "B-1": true, "C-1": true}
	if len(got) != len(want) {
		t.Fatalf("flattened set has %d items, want %d", len(got), len(want))
	}
	for ref := range want {
		if !got[ref] {
			t.Errorf("item %s dropped during grouping", ref)
		}
	}
}

func TestGroupMaterials_BySubCategory(t *testing.T) {
	materials := []core.MaterialLine{
		catalogLine("PROC-1", "Processor", intPtr(1), intPtr(12), nil, "25", 1),
		catalogLine("MIX-1", "Mixer", intPtr(1), intPtr(11), nil, "50", 1),
		catalogLine("AMP-1", "Amp", intPtr(1), nil, nil, "40", 1),
		catalogLine("SPOT-1", "Spot", intPtr(2), nil, nil, "15", 1),
	}

	groups, err := core.GroupMaterials(materials, core.GroupBySubCategory, testRefs(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Ascending by (category name, subcategory name): Light before Sound, then
	// the synthetic no-subcategory group (keyed "c-1") among Sound's groups.
	if len(groups) != 4 {
		t.Fatalf("got %d groups, want 4", len(groups))
	}

	byKey := make(map[string]core.MaterialGroup)
	for _, g := range groups {
		byKey[g.Key] = g
	}

	synthetic, ok := byKey["c-1"]
	if !ok {
		t.Fatal(`material with category but no subcategory must land in a "c-{category_id}" group`)
	}
	if synthetic.CategoryName != "Sound" || !synthetic.CategoryHasSubCategories {
		t.Errorf("synthetic group = %+v, want CategoryName=Sound with subcategories flag set", synthetic)
	}

	mixers := byKey["11"]
	if mixers.Name != "Mixers" || mixers.CategoryName != "Sound" {
		t.Errorf("subcategory group = %+v, want Mixers under Sound", mixers)
	}

	spot, ok := byKey["c-2"]
	if !ok {
		t.Fatal("Light material without subcategory must land in its own synthetic group")
	}
	if spot.CategoryHasSubCategories {
		t.Error("Light has no subcategories; flag must be false")
	}

	if groups[0].CategoryName != "Light" {
		t.Errorf("first group category = %q, want Light (ascending by category name)", groups[0].CategoryName)
	}
}

func TestGroupMaterials_ByPark(t *testing.T) {
	materials := []core.MaterialLine{
		catalogLine("A-1", "Alpha", intPtr(1), nil, intPtr(2), "10", 1),
		catalogLine("B-1", "Beta", intPtr(1), nil, intPtr(1), "20", 1),
	}

	groups, err := core.GroupMaterials(materials, core.GroupByPark, testRefs(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 2 || groups[0].Name != "Annex" || groups[1].Name != "Default" {
		t.Fatalf("park groups = %+v, want [Annex Default]", groups)
	}

	// Two parks in the reference data: items carry their park name everywhere.
	if groups[0].Items[0].ParkName != "Annex" {
		t.Errorf("ParkName = %q, want Annex", groups[0].Items[0].ParkName)
	}
}

func TestGroupMaterials_ParkNameOnlyWhenAmbiguous(t *testing.T) {
	refs := testRefs()
	refs.Parks = refs.Parks[:1] // single park: no disambiguation needed

	materials := []core.MaterialLine{
		catalogLine("A-1", "Alpha", intPtr(1), nil, intPtr(1), "10", 1),
	}
	groups, err := core.GroupMaterials(materials, core.GroupByCategory, refs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := groups[0].Items[0].ParkName; got != "" {
		t.Errorf("ParkName = %q, want empty with a single park", got)
	}
}

func TestGroupMaterials_MissingReferenceData(t *testing.T) {
	tests := []struct {
		name string
		dim  core.GroupingDimension
		line core.MaterialLine
	}{
		{"unknown category", core.GroupByCategory, catalogLine("X-1", "X", intPtr(99), nil, nil, "1", 1)},
		{"unknown subcategory", core.GroupBySubCategory, catalogLine("X-1", "X", intPtr(1), intPtr(99), nil, "1", 1)},
		{"unknown park", core.GroupByPark, catalogLine("X-1", "X", nil, nil, intPtr(99), "1", 1)},
		{"unknown park on item", core.GroupFlat, catalogLine("X-1", "X", nil, nil, intPtr(99), "1", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := core.GroupMaterials([]core.MaterialLine{tt.line}, tt.dim, testRefs(), false)
			if !errors.Is(err, core.ErrMissingReferenceData) {
				t.Errorf("expected ErrMissingReferenceData, got %v", err)
			}
		})
	}
}

func TestGroupMaterials_Flat(t *testing.T) {
	materials := []core.MaterialLine{
		catalogLine("B-2", "Beta", intPtr(1), nil, nil, "10", 1),
		catalogLine("A-10", "Alpha big", intPtr(2), nil, nil, "20", 1),
		catalogLine("A-9", "Alpha small", nil, nil, nil, "30", 1),
	}

	groups, err := core.GroupMaterials(materials, core.GroupFlat, testRefs(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("flat grouping must yield a single group, got %d", len(groups))
	}
	wantRefs := []string{"A-9", "A-10", "B-2"}
	for i, ref := range wantRefs {
		if groups[0].Items[i].Reference != ref {
			t.Errorf("flat item[%d] = %q, want %q", i, groups[0].Items[i].Reference, ref)
		}
	}
}

func TestGroupMaterials_DuplicateReferenceReplaces(t *testing.T) {
	materials := []core.MaterialLine{
		catalogLine("DUP-1", "First", intPtr(1), nil, nil, "10", 1),
		catalogLine("DUP-1", "Second", intPtr(1), nil, nil, "20", 2),
	}

	groups, err := core.GroupMaterials(materials, core.GroupByCategory, testRefs(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Items) != 1 {
		t.Fatalf("duplicate reference must collapse to one item, got %+v", groups)
	}
	if groups[0].Items[0].Name != "Second" {
		t.Errorf("later line must replace the earlier one, got %q", groups[0].Items[0].Name)
	}
}

func TestComputeCategoryTotals(t *testing.T) {
	materials := []core.MaterialLine{
		catalogLine("MIX-1", "Mixer", intPtr(1), intPtr(11), nil, "50", 2),
		catalogLine("AMP-1", "Amp", intPtr(1), nil, nil, "40", 1),
		catalogLine("SPOT-1", "Spot", intPtr(2), nil, nil, "15", 3),
		catalogLine("LOOSE-1", "Adapter", nil, nil, nil, "2", 4),
	}

	totals, err := core.ComputeCategoryTotals(materials, testRefs(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(totals) != 3 {
		t.Fatalf("got %d category totals, want 3", len(totals))
	}

	byName := make(map[string]core.CategoryTotal)
	for _, ct := range totals {
		byName[ct.Name] = ct
	}

	sound := byName["Sound"]
	if sound.Quantity != 3 || !sound.SubTotal.Equal(dec("140")) {
		t.Errorf("Sound = qty %d subtotal %s, want qty 3 subtotal 140", sound.Quantity, sound.SubTotal)
	}
	light := byName["Light"]
	if light.Quantity != 3 || !light.SubTotal.Equal(dec("45")) {
		t.Errorf("Light = qty %d subtotal %s, want qty 3 subtotal 45", light.Quantity, light.SubTotal)
	}
	loose := byName["Uncategorized"]
	if loose.Quantity != 4 || !loose.SubTotal.Equal(dec("8")) {
		t.Errorf("Uncategorized = qty %d subtotal %s, want qty 4 subtotal 8", loose.Quantity, loose.SubTotal)
	}

	// Aggregate view keeps the same suppression rule as the itemized views.
	hidden := catalogLine("FREE-1", "Freebie", intPtr(1), nil, nil, "0", 5)
	hidden.IsHiddenOnBill = true
	withHiddenLine, err := core.ComputeCategoryTotals(append(materials, hidden), testRefs(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, ct := range withHiddenLine {
		if ct.Name == "Sound" && ct.Quantity != 3 {
			t.Errorf("hidden free line leaked into aggregate: qty %d, want 3", ct.Quantity)
		}
	}
}
