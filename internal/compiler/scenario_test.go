package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/testutil"
)

func compileCUE(t *testing.T, src string) cue.Value {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("lesson.cue"))
	require.NoError(t, v.Err())
	return v
}

func TestCompileScenarios_School(t *testing.T) {
	schemas, err := CompileScenarios(compileCUE(t, testutil.SchoolCUE))
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	assert.Equal(t, testutil.SchoolSchema(), schemas[0])
}

func TestCompileScenarios_DeclarationOrder(t *testing.T) {
	schemas, err := CompileScenarios(compileCUE(t, `
		scenario: zoo: table: animals: columns: [{name: "id", type: "integer"}]
		scenario: bank: table: accounts: columns: [{name: "id", type: "integer"}]
	`))
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	assert.Equal(t, "zoo", schemas[0].Name)
	assert.Equal(t, "bank", schemas[1].Name)
}

func TestCompileScenarios_NoScenarios(t *testing.T) {
	schemas, err := CompileScenarios(compileCUE(t, `other: 1`))
	require.NoError(t, err)
	assert.Empty(t, schemas)
}

func TestCompileScenario_ColumnAttributes(t *testing.T) {
	v := compileCUE(t, `
		scenario: hr: {
			table: employees: {
				columns: [
					{name: "id", type: "integer", primary_key: true},
					{name: "manager_id", type: "integer", nullable: true, references: {table: "employees", column: "id"}},
					{name: "hired", type: "date"},
					{name: "active", type: "boolean"},
				]
			}
		}
	`)

	schema, err := CompileScenario(v.LookupPath(cue.ParsePath("scenario.hr")))
	require.NoError(t, err)

	assert.Equal(t, "hr", schema.Name)
	assert.Empty(t, schema.Description)
	require.Len(t, schema.Tables, 1)
	assert.Equal(t, []ir.Column{
		{Name: "id", Type: ir.TypeInteger, PrimaryKey: true},
		{Name: "manager_id", Type: ir.TypeInteger, Nullable: true, ForeignKey: &ir.ForeignKey{Table: "employees", Column: "id"}},
		{Name: "hired", Type: ir.TypeDate},
		{Name: "active", Type: ir.TypeBoolean},
	}, schema.Tables[0].Columns)
	assert.Empty(t, schema.Tables[0].Rows)
}

func TestCompileScenario_CoercesRowValues(t *testing.T) {
	v := compileCUE(t, `
		scenario: hr: table: employees: {
			columns: [
				{name: "id", type: "integer"},
				{name: "salary", type: "decimal"},
				{name: "hired", type: "date"},
				{name: "active", type: "boolean"},
				{name: "manager_id", type: "integer", nullable: true},
			]
			rows: [
				{id: 1, salary: 5000, hired: "2021-03-04", active: 1, manager_id: null},
				[2, 4200.5, "2022-11-30", false, 1],
			]
		}
	`)

	schema, err := CompileScenario(v.LookupPath(cue.ParsePath("scenario.hr")))
	require.NoError(t, err)

	rows := schema.Tables[0].Rows
	require.Len(t, rows, 2)
	assert.Equal(t, ir.Row{
		"id":         ir.Int(1),
		"salary":     ir.Decimal(5000),
		"hired":      ir.Date{Year: 2021, Month: 3, Day: 4},
		"active":     ir.Bool(true),
		"manager_id": ir.Null{},
	}, rows[0])
	assert.Equal(t, ir.Row{
		"id":         ir.Int(2),
		"salary":     ir.Decimal(4200.5),
		"hired":      ir.Date{Year: 2022, Month: 11, Day: 30},
		"active":     ir.Bool(false),
		"manager_id": ir.Int(1),
	}, rows[1])
}

func TestCompileScenario_KeepsValuesThatDoNotFit(t *testing.T) {
	v := compileCUE(t, `
		scenario: s: table: t: {
			columns: [{name: "n", type: "integer"}]
			rows: [{n: "seven", extra: true}]
		}
	`)

	schema, err := CompileScenario(v.LookupPath(cue.ParsePath("scenario.s")))
	require.NoError(t, err)
	assert.Equal(t, ir.Row{"n": ir.Text("seven"), "extra": ir.Bool(true)}, schema.Tables[0].Rows[0])
}

func TestCompileScenario_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		msg   string
	}{
		{
			name:  "no tables",
			src:   `scenario: s: description: "empty"`,
			field: "table",
			msg:   "at least one table is required",
		},
		{
			name:  "no columns",
			src:   `scenario: s: table: t: rows: []`,
			field: "table.t.columns",
			msg:   "table columns are required",
		},
		{
			name:  "column without type",
			src:   `scenario: s: table: t: columns: [{name: "id"}]`,
			field: "table.t.columns.id.type",
			msg:   "type is required",
		},
		{
			name:  "reference without column",
			src:   `scenario: s: table: t: columns: [{name: "x", type: "integer", references: {table: "u"}}]`,
			field: "table.t.columns.x.references.column",
			msg:   "column is required",
		},
		{
			name: "short positional row",
			src: `scenario: s: table: t: {
				columns: [{name: "a", type: "integer"}, {name: "b", type: "integer"}]
				rows: [[1]]
			}`,
			field: "table.t.rows[0]",
			msg:   "positional row has 1 values, table has 2 columns",
		},
		{
			name:  "scalar row",
			src:   `scenario: s: table: t: { columns: [{name: "a", type: "integer"}], rows: [5] }`,
			field: "table.t.rows[0]",
			msg:   "row must be a struct or a list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileScenarios(compileCUE(t, tt.src))
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Equal(t, tt.msg, ce.Message)
		})
	}
}

func TestCompileScenario_WrongKind(t *testing.T) {
	v := compileCUE(t, `scenario: s: table: t: columns: [{name: 42, type: "integer"}]`)

	_, err := CompileScenarios(v)
	require.Error(t, err)
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "table", Message: "at least one table is required"}
	assert.Equal(t, "table: at least one table is required", err.Error())
}
