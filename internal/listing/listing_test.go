package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type row struct {
	ID       string
	Customer string
	Status   string
	Date     time.Time
}

func sampleRows() []row {
	day := func(d int) time.Time { return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC) }
	return []row{
		{ID: "7", Customer: "Alice Perera", Status: "pending", Date: day(1)},
		{ID: "12", Customer: "Bob Silva", Status: "completed", Date: day(2)},
		{ID: "3", Customer: "carol DIAS", Status: "pending", Date: day(3)},
		{ID: "112", Customer: "Dan Fonseka", Status: "pending", Date: day(4)},
		{ID: "9", Customer: "eve perera", Status: "cancelled", Date: day(5)},
		{ID: "", Customer: "Frank", Status: "pending", Date: day(6)},
	}
}

func TestFilterCompositionIsOrderIndependent(t *testing.T) {
	rows := sampleRows()
	byStatus := func(r row) bool { return r.Status == "pending" }
	bySearch := func(r row) bool { return ContainsFold(r.Customer, "PER") }

	ab := Filter(rows, byStatus, bySearch)
	ba := Filter(rows, bySearch, byStatus)
	require.Equal(t, ab, ba)
	require.Len(t, ab, 1)
	require.Equal(t, "Alice Perera", ab[0].Customer)

	// Nested application equals combined application.
	nested := Filter(Filter(rows, byStatus), bySearch)
	require.Equal(t, ab, nested)
}

func TestFilterDoesNotMutateSource(t *testing.T) {
	rows := sampleRows()
	snapshot := make([]row, len(rows))
	copy(snapshot, rows)

	_ = Filter(rows, func(r row) bool { return r.Status == "cancelled" })
	_ = SortBy(rows, func(a, b row) int { return CompareNumericIDs(a.ID, b.ID) })
	require.Equal(t, snapshot, rows)
}

func TestSubstringFilterThenNumericSort(t *testing.T) {
	// Orders whose id contains "12", sorted by numeric id ascending:
	// 12 before 112 even though "112" < "12" lexically.
	rows := sampleRows()
	matched := Filter(rows, func(r row) bool { return ContainsFold(r.ID, "12") })
	sorted := SortBy(matched, Directional(
		func(a, b row) int { return CompareNumericIDs(a.ID, b.ID) },
		func(r row) bool { _, ok := ParseID(r.ID); return !ok },
		false,
	))

	ids := make([]string, 0, len(sorted))
	for _, r := range sorted {
		ids = append(ids, r.ID)
	}
	require.Equal(t, []string{"12", "112"}, ids)
}

func TestMissingIDsSortLastBothDirections(t *testing.T) {
	rows := sampleRows()
	cmp := func(a, b row) int { return CompareNumericIDs(a.ID, b.ID) }
	missing := func(r row) bool { _, ok := ParseID(r.ID); return !ok }

	asc := SortBy(rows, Directional(cmp, missing, false))
	require.Equal(t, "", asc[len(asc)-1].ID)
	require.Equal(t, "3", asc[0].ID)

	desc := SortBy(rows, Directional(cmp, missing, true))
	require.Equal(t, "", desc[len(desc)-1].ID)
	require.Equal(t, "112", desc[0].ID)
}

func TestCompareFoldIgnoresCase(t *testing.T) {
	rows := sampleRows()
	sorted := SortBy(rows, Directional(
		func(a, b row) int { return CompareFold(a.Customer, b.Customer) },
		func(row) bool { return false },
		false,
	))
	require.Equal(t, "Alice Perera", sorted[0].Customer)
	require.Equal(t, "Bob Silva", sorted[1].Customer)
	require.Equal(t, "carol DIAS", sorted[2].Customer)
}

func TestDateWithinInclusive(t *testing.T) {
	day := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	from := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	require.True(t, DateWithin(day, &from, &to))
	require.True(t, DateWithin(day, nil, &to))
	require.True(t, DateWithin(day, &from, nil))
	require.True(t, DateWithin(day, nil, nil))

	later := day.Add(24 * time.Hour)
	require.False(t, DateWithin(later, &from, &to))
}
