package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/query"
)

func mustFilter(t *testing.T, where string) filter {
	t.Helper()
	plan, err := query.Parse(query.Normalize("select * from t where " + where))
	require.NoError(t, err)
	f, err := compileFilter(plan.(*query.Select).Where)
	require.NoError(t, err)
	return f
}

func TestPredicate_Operators(t *testing.T) {
	row := ir.Row{
		"name":   ir.Text("Ana"),
		"age":    ir.Int(22),
		"gpa":    ir.Decimal(3.5),
		"active": ir.Bool(true),
		"joined": ir.Date{Year: 2023, Month: 9, Day: 1},
		"note":   ir.Null{},
		"zip":    ir.Text("02139"),
	}

	tests := []struct {
		where string
		want  bool
	}{
		{"name = 'ana'", true},
		{"name = 'ANA'", true},
		{"name = 'an'", false},
		{"name != 'ben'", true},
		{"name <> 'ana'", false},
		{"age = 22", true},
		{"age = '22'", true},
		{"age > 20", true},
		{"age >= 22", true},
		{"age < 22", false},
		{"age <= 22", true},
		{"gpa > 3", true},
		{"gpa = 3.5", true},
		{"gpa = 3.50", false},
		{"active = true", true},
		{"active > 0", true},
		{"joined = '2023-09-01'", true},
		{"joined > 0", false},
		{"name like 'a%'", true},
		{"name like 'A_A'", true},
		{"name like '_n'", false},
		{"name like '%'", true},
		{"zip > 2000", true},
		{"zip = 2139", false},
	}

	for _, tt := range tests {
		t.Run(tt.where, func(t *testing.T) {
			assert.Equal(t, tt.want, mustFilter(t, tt.where).match(row))
		})
	}
}

// Equality compares text case-insensitively while ordering compares
// numbers. Exercises are written against exactly this behavior.
func TestPredicate_EqualityVersusOrderingQuirk(t *testing.T) {
	row := ir.Row{"code": ir.Text("10")}

	assert.True(t, mustFilter(t, "code = 10").match(row))
	assert.False(t, mustFilter(t, "code = 10.0").match(row), "text forms differ")
	assert.True(t, mustFilter(t, "code >= 10.0").match(row), "numbers are equal")
	assert.True(t, mustFilter(t, "code <= 10.0").match(row))

	word := ir.Row{"grade": ir.Text("b")}
	assert.False(t, mustFilter(t, "grade > 'a'").match(word), "text never orders")
	assert.False(t, mustFilter(t, "grade < 'c'").match(word))
}

func TestPredicate_AbsentAndNull(t *testing.T) {
	rows := []ir.Row{
		{"age": ir.Null{}},
		{},
	}

	for _, row := range rows {
		assert.False(t, mustFilter(t, "age = 'null'").match(row))
		assert.False(t, mustFilter(t, "age > -1").match(row))
		assert.False(t, mustFilter(t, "age < 1").match(row))
		assert.False(t, mustFilter(t, "age like '%'").match(row))
		assert.True(t, mustFilter(t, "age != 5").match(row))
		assert.True(t, mustFilter(t, "age <> 'x'").match(row))
	}
}

func TestPredicate_EmptyTextIsNotNumeric(t *testing.T) {
	row := ir.Row{"score": ir.Text("")}

	assert.False(t, mustFilter(t, "score >= 0").match(row))
	assert.False(t, mustFilter(t, "score <= 0").match(row))
	assert.True(t, mustFilter(t, "score = ''").match(row))
}

func TestPredicate_NonNumericLiteral(t *testing.T) {
	row := ir.Row{"age": ir.Int(22)}
	assert.False(t, mustFilter(t, "age > 'abc'").match(row))
	assert.False(t, mustFilter(t, "age < 'abc'").match(row))
}

func TestPredicate_Conjunction(t *testing.T) {
	f := mustFilter(t, "age > 20 and name like 'c%'")

	assert.True(t, f.match(ir.Row{"age": ir.Int(25), "name": ir.Text("Cleo")}))
	assert.False(t, f.match(ir.Row{"age": ir.Int(22), "name": ir.Text("Ana")}))
	assert.False(t, f.match(ir.Row{"age": ir.Int(19), "name": ir.Text("Cy")}))
}

func TestPredicate_LikeEscapesRegexMeta(t *testing.T) {
	row := ir.Row{"s": ir.Text("a.b(c)")}

	assert.True(t, mustFilter(t, "s like 'a.b(c)'").match(row))
	assert.False(t, mustFilter(t, "s like 'a.b'").match(row), "pattern is anchored")
	assert.False(t, mustFilter(t, "s like 'a?b%'").match(row))
	assert.True(t, mustFilter(t, "s like 'a_b%'").match(row))
}

func TestPredicate_LikeMultiline(t *testing.T) {
	row := ir.Row{"s": ir.Text("line one\nline two")}
	assert.True(t, likeMatch(t, "line%two", row["s"]))
}

func likeMatch(t *testing.T, pattern string, v ir.Value) bool {
	t.Helper()
	re, err := likePattern(pattern)
	require.NoError(t, err)
	return re.MatchString(v.String())
}

func TestFilter_ApplyKeepsOrder(t *testing.T) {
	rows := []ir.Row{
		{"n": ir.Int(3)},
		{"n": ir.Int(1)},
		{"n": ir.Int(4)},
		{"n": ir.Int(1)},
		{"n": ir.Int(5)},
	}

	got := mustFilter(t, "n > 1").apply(rows)
	assert.Equal(t, []ir.Row{{"n": ir.Int(3)}, {"n": ir.Int(4)}, {"n": ir.Int(5)}}, got)

	var none filter
	assert.Equal(t, rows, none.apply(rows))
}

// Every returned row satisfies the predicate and every dropped row fails it.
func TestFilter_Soundness(t *testing.T) {
	var rows []ir.Row
	names := []string{"Ana", "Ben", "Cleo", "dana", "Eli", ""}
	for i := 0; i < 30; i++ {
		r := ir.Row{"id": ir.Int(int64(i)), "name": ir.Text(names[i%len(names)])}
		if i%7 != 0 {
			r["age"] = ir.Int(int64(15 + i%11))
		}
		rows = append(rows, r)
	}

	wheres := []string{
		"age >= 20",
		"age < 18 and name like '%a%'",
		"name = 'ANA'",
		"name != 'ben' and age <> 21",
		"name like '_l%'",
	}

	for _, where := range wheres {
		t.Run(where, func(t *testing.T) {
			f := mustFilter(t, where)
			kept := f.apply(rows)

			for _, r := range kept {
				assert.True(t, f.match(r))
			}
			assert.Equal(t, len(rows), len(kept)+countFailing(f, rows))
		})
	}
}

func countFailing(f filter, rows []ir.Row) int {
	n := 0
	for _, r := range rows {
		if !f.match(r) {
			n++
		}
	}
	return n
}
