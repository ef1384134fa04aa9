package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/query"
	"github.com/roach88/querylab/internal/testutil"
)

func names(rows []ir.Row, col string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		if v, ok := r[col]; ok {
			out[i] = v.String()
		}
	}
	return out
}

func TestOrderRows_NumericWhenBothNumeric(t *testing.T) {
	rows := []ir.Row{
		{"v": ir.Text("10")},
		{"v": ir.Int(9)},
		{"v": ir.Decimal(9.5)},
	}

	got := orderRows(rows, &query.OrderSpec{Column: "v"}, language.English)
	assert.Equal(t, []string{"9", "9.5", "10"}, names(got, "v"))
}

func TestOrderRows_LocaleAwareText(t *testing.T) {
	rows := []ir.Row{
		{"v": ir.Text("banana")},
		{"v": ir.Text("Apple")},
		{"v": ir.Text("apple")},
		{"v": ir.Text("Éclair")},
		{"v": ir.Text("cherry")},
	}

	got := orderRows(rows, &query.OrderSpec{Column: "v"}, language.English)
	assert.Equal(t, []string{"apple", "Apple", "banana", "cherry", "Éclair"}, names(got, "v"))
}

func TestOrderRows_StableAndDescReversesComparator(t *testing.T) {
	rows := []ir.Row{
		{"k": ir.Int(1), "tag": ir.Text("a")},
		{"k": ir.Int(2), "tag": ir.Text("b")},
		{"k": ir.Int(1), "tag": ir.Text("c")},
		{"k": ir.Int(2), "tag": ir.Text("d")},
	}

	asc := orderRows(rows, &query.OrderSpec{Column: "k"}, language.English)
	assert.Equal(t, []string{"a", "c", "b", "d"}, names(asc, "tag"))

	desc := orderRows(rows, &query.OrderSpec{Column: "k", Desc: true}, language.English)
	assert.Equal(t, []string{"b", "d", "a", "c"}, names(desc, "tag"), "ties keep input order")
}

func TestOrderRows_AbsentSortsAsEmptyText(t *testing.T) {
	rows := []ir.Row{
		{"name": ir.Text("b")},
		{},
		{"name": ir.Null{}},
		{"name": ir.Text("a")},
	}

	got := orderRows(rows, &query.OrderSpec{Column: "name"}, language.English)
	assert.Equal(t, []string{"", "null", "a", "b"}, names(got, "name"))
}

func TestOrderRows_DoesNotTouchInput(t *testing.T) {
	rows := []ir.Row{{"k": ir.Int(2)}, {"k": ir.Int(1)}}
	_ = orderRows(rows, &query.OrderSpec{Column: "k"}, language.English)
	assert.Equal(t, ir.Int(2), rows[0]["k"])
}

func TestProject_AliasAndPrefix(t *testing.T) {
	schema := testutil.SchoolSchema()
	tbl, _ := schema.Table("students")

	cols, rows := project(tbl.Rows[:1], []query.ColumnRef{
		{Table: "students", Source: "name", Alias: "who"},
		{Source: "AGE"},
	}, []*ir.Table{tbl})

	assert.Equal(t, []string{"who", "age"}, cols)
	assert.Equal(t, []ir.Row{{"who": ir.Text("Ana"), "age": ir.Int(22)}}, rows)
}

// Every result row's keys are exactly the requested names and each value
// equals the source value.
func TestProject_Correctness(t *testing.T) {
	schema := testutil.SchoolSchema()
	eng := quietEngine()

	res := eng.Execute("SELECT id AS student, name FROM students", schema)
	require.True(t, res.Success, res.Error)

	src := schema.Tables[0].Rows
	require.Len(t, res.Rows, len(src))
	for i, r := range res.Rows {
		assert.Len(t, r, 2)
		assert.Equal(t, src[i]["id"], r["student"])
		assert.Equal(t, src[i]["name"], r["name"])
	}
}

// ORDER BY x ASC LIMIT k returns the k smallest rows in non-decreasing
// order; DESC reverses any two rows with distinct keys.
func TestOrderLimitComposition(t *testing.T) {
	schema := &ir.Schema{Name: "nums", Tables: []ir.Table{{
		Name:    "t",
		Columns: []ir.Column{{Name: "x", Type: ir.TypeInteger}},
	}}}
	for _, x := range []int64{7, 3, 9, 1, 4, 8, 2} {
		schema.Tables[0].Rows = append(schema.Tables[0].Rows, ir.Row{"x": ir.Int(x)})
	}
	eng := quietEngine()

	res := eng.Execute("SELECT x FROM t ORDER BY x ASC LIMIT 3", schema)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"1", "2", "3"}, names(res.Rows, "x"))

	res = eng.Execute("SELECT x FROM t ORDER BY x DESC LIMIT 3", schema)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"9", "8", "7"}, names(res.Rows, "x"))

	res = eng.Execute("SELECT x FROM t LIMIT 0", schema)
	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.Rows)

	res = eng.Execute("SELECT x FROM t LIMIT 100", schema)
	require.True(t, res.Success, res.Error)
	assert.Len(t, res.Rows, 7)
}

func TestJoin_Cardinality(t *testing.T) {
	left := &ir.Table{Name: "l", Rows: []ir.Row{
		{"k": ir.Int(1)}, {"k": ir.Int(2)}, {"k": ir.Int(2)}, {"k": ir.Null{}}, {},
	}}
	right := &ir.Table{Name: "r", Rows: []ir.Row{
		{"k": ir.Int(2)}, {"k": ir.Decimal(2)}, {"k": ir.Text("1")}, {"k": ir.Null{}}, {},
	}}
	on := query.JoinCondition{LeftTable: "l", LeftColumn: "k", RightTable: "r", RightColumn: "k"}

	rows, err := nestedLoopJoin(left, right, on, newRowBudget(0))
	require.NoError(t, err)

	want := 0
	for _, l := range left.Rows {
		for _, r := range right.Rows {
			if ir.Identical(l["k"], r["k"]) {
				want++
			}
		}
	}
	assert.Equal(t, 4, want)
	assert.Len(t, rows, want)
}

func TestJoin_RightWinsOnCollision(t *testing.T) {
	left := &ir.Table{Name: "l", Rows: []ir.Row{{"id": ir.Int(1), "x": ir.Text("left")}}}
	right := &ir.Table{Name: "r", Rows: []ir.Row{{"id": ir.Int(1), "x": ir.Text("right")}}}
	on := query.JoinCondition{LeftTable: "l", LeftColumn: "id", RightTable: "r", RightColumn: "id"}

	rows, err := nestedLoopJoin(left, right, on, newRowBudget(0))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ir.Text("right"), rows[0]["x"])
}

func TestJoin_StrictEquality(t *testing.T) {
	left := &ir.Table{Name: "l", Rows: []ir.Row{{"code": ir.Text("ab")}}}
	right := &ir.Table{Name: "r", Rows: []ir.Row{{"code": ir.Text("AB")}}}
	on := query.JoinCondition{LeftTable: "l", LeftColumn: "code", RightTable: "r", RightColumn: "code"}

	rows, err := nestedLoopJoin(left, right, on, newRowBudget(0))
	require.NoError(t, err)
	assert.Empty(t, rows, "join equality is case-sensitive unlike WHERE")
}

func TestExecute_CaseCollidingJoinKeysAreDeterministic(t *testing.T) {
	schema := &ir.Schema{Name: "mixed", Tables: []ir.Table{
		{
			Name:    "a",
			Columns: []ir.Column{{Name: "Id", Type: ir.TypeInteger}, {Name: "ref", Type: ir.TypeInteger}},
			Rows:    []ir.Row{{"Id": ir.Int(10), "ref": ir.Int(1)}, {"Id": ir.Int(20), "ref": ir.Int(2)}},
		},
		{
			Name:    "b",
			Columns: []ir.Column{{Name: "ID", Type: ir.TypeInteger}},
			Rows:    []ir.Row{{"ID": ir.Int(1)}, {"ID": ir.Int(2)}},
		},
	}}

	first := Execute("SELECT id FROM a JOIN b ON a.ref = b.ID ORDER BY id DESC", schema)
	require.True(t, first.Success, first.Error)

	for i := 0; i < 100; i++ {
		res := Execute("SELECT id FROM a JOIN b ON a.ref = b.ID ORDER BY id DESC", schema)
		require.True(t, res.Success, res.Error)
		require.Equal(t, first.Rows, res.Rows)
	}
}

func TestExecute_ProjectionUsesRequestedNames(t *testing.T) {
	schema := &ir.Schema{Name: "people", Tables: []ir.Table{{
		Name:    "People",
		Columns: []ir.Column{{Name: "Name", Type: ir.TypeText}, {Name: "Age", Type: ir.TypeInteger}},
		Rows:    []ir.Row{{"Name": ir.Text("Ana"), "Age": ir.Int(22)}},
	}}}

	res := Execute("SELECT Name, age AS years FROM people", schema)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"name", "years"}, res.Columns)
	assert.Equal(t, []ir.Row{{"name": ir.Text("Ana"), "years": ir.Int(22)}}, res.Rows)
}

func TestJoin_NullAndAbsentNeverMatch(t *testing.T) {
	left := &ir.Table{Name: "l", Rows: []ir.Row{{"k": ir.Null{}}, {}}}
	right := &ir.Table{Name: "r", Rows: []ir.Row{{"k": ir.Null{}}, {}}}
	on := query.JoinCondition{LeftTable: "l", LeftColumn: "k", RightTable: "r", RightColumn: "k"}

	rows, err := nestedLoopJoin(left, right, on, newRowBudget(0))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
