package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/testutil"
)

func TestLoadSchema_RoundTrip(t *testing.T) {
	want := testutil.SchoolSchema()
	s := materialize(t, want)

	got, err := s.LoadSchema(context.Background(), "school")
	require.NoError(t, err)

	assert.Equal(t, "school", got.Name)
	assert.Equal(t, want.Tables, got.Tables)
}

func TestLoadSchema_TypedValues(t *testing.T) {
	want := &ir.Schema{Name: "events", Tables: []ir.Table{{
		Name: "events",
		Columns: []ir.Column{
			{Name: "id", Type: ir.TypeInteger, PrimaryKey: true},
			{Name: "day", Type: ir.TypeDate},
			{Name: "done", Type: ir.TypeBoolean},
			{Name: "note", Type: ir.TypeVarchar, Nullable: true},
			{Name: "score", Type: ir.TypeDecimal, Nullable: true},
		},
		Rows: []ir.Row{
			{"id": ir.Int(1), "day": ir.Date{Year: 2024, Month: time.March, Day: 1}, "done": ir.Bool(true), "note": ir.Text("kickoff"), "score": ir.Decimal(0.5)},
			{"id": ir.Int(2), "day": ir.Date{Year: 2024, Month: time.March, Day: 9}, "done": ir.Bool(false), "note": ir.Null{}, "score": ir.Null{}},
		},
	}}}

	s := materialize(t, want)
	got, err := s.LoadSchema(context.Background(), "events")
	require.NoError(t, err)
	assert.Equal(t, want.Tables, got.Tables)
}

func TestLoadSchema_AbsentCellsBecomeNull(t *testing.T) {
	schema := &ir.Schema{Name: "sparse", Tables: []ir.Table{{
		Name: "t",
		Columns: []ir.Column{
			{Name: "id", Type: ir.TypeInteger, PrimaryKey: true},
			{Name: "x", Type: ir.TypeText, Nullable: true},
		},
		Rows: []ir.Row{{"id": ir.Int(1)}},
	}}}

	s := materialize(t, schema)
	got, err := s.LoadSchema(context.Background(), "sparse")
	require.NoError(t, err)
	assert.Equal(t, []ir.Row{{"id": ir.Int(1), "x": ir.Null{}}}, got.Tables[0].Rows)
}

func TestLoadSchema_HandWrittenDatabase(t *testing.T) {
	s, _ := createTestStore(t)
	_, err := s.DB().Exec(`
		CREATE TABLE teams (code CHAR(3) PRIMARY KEY, label CLOB);
		CREATE TABLE players (
			num INT NOT NULL,
			team CHAR(3) REFERENCES teams,
			height DOUBLE PRECISION,
			joined TIMESTAMP,
			misc
		);
		INSERT INTO teams VALUES ('abc', 'Alphas');
		INSERT INTO players VALUES (7, 'abc', 1.8, '2020-05-06 10:00:00', 'x');
	`)
	require.NoError(t, err)

	got, err := s.LoadSchema(context.Background(), "league")
	require.NoError(t, err)
	require.Equal(t, []string{"teams", "players"}, got.TableNames())

	players, ok := got.Table("players")
	require.True(t, ok)
	assert.Equal(t, []ir.Column{
		{Name: "num", Type: ir.TypeInteger},
		{Name: "team", Type: ir.TypeText, Nullable: true, ForeignKey: &ir.ForeignKey{Table: "teams", Column: "code"}},
		{Name: "height", Type: ir.TypeDecimal, Nullable: true},
		{Name: "joined", Type: ir.TypeDate, Nullable: true},
		{Name: "misc", Type: ir.TypeText, Nullable: true},
	}, players.Columns)

	assert.Equal(t, []ir.Row{{
		"num":    ir.Int(7),
		"team":   ir.Text("abc"),
		"height": ir.Decimal(1.8),
		"joined": ir.Date{Year: 2020, Month: time.May, Day: 6},
		"misc":   ir.Text("x"),
	}}, players.Rows)
}

func TestLoadSchema_Empty(t *testing.T) {
	s, _ := createTestStore(t)

	got, err := s.LoadSchema(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, got.Tables)
}

func TestWriteSchema_ForeignKeysEnforced(t *testing.T) {
	schema := testutil.SchoolSchema()
	schema.Tables[1].Rows = append(schema.Tables[1].Rows,
		ir.Row{"id": ir.Int(12), "student_id": ir.Int(99), "amount": ir.Decimal(1)})

	s, _ := createTestStore(t)
	err := s.WriteSchema(context.Background(), schema)
	require.Error(t, err)

	// The failed write leaves no tables behind.
	got, err := s.LoadSchema(context.Background(), "school")
	require.NoError(t, err)
	assert.Empty(t, got.Tables)
}

func TestWriteSchema_ReferencedTablesFirst(t *testing.T) {
	// orders is declared before the table it references.
	schema := testutil.SchoolSchema()
	schema.Tables[0], schema.Tables[1] = schema.Tables[1], schema.Tables[0]

	s := materialize(t, schema)
	got, err := s.LoadSchema(context.Background(), "school")
	require.NoError(t, err)
	assert.Equal(t, []string{"students", "orders"}, got.TableNames())
}

func TestCreateTableSQL(t *testing.T) {
	table := &ir.Table{
		Name: "enrollments",
		Columns: []ir.Column{
			{Name: "student_id", Type: ir.TypeInteger, PrimaryKey: true, ForeignKey: &ir.ForeignKey{Table: "students", Column: "id"}},
			{Name: "course", Type: ir.TypeVarchar, PrimaryKey: true},
			{Name: "grade", Type: ir.TypeDecimal, Nullable: true},
			{Name: "passed", Type: ir.TypeBoolean},
		},
	}

	want := "CREATE TABLE \"enrollments\" (\n" +
		"\t\"student_id\" INTEGER REFERENCES \"students\"(\"id\"),\n" +
		"\t\"course\" VARCHAR,\n" +
		"\t\"grade\" DECIMAL,\n" +
		"\t\"passed\" BOOLEAN NOT NULL,\n" +
		"\tPRIMARY KEY (\"student_id\", \"course\")\n" +
		")"
	assert.Equal(t, want, createTableSQL(table))
}

func TestColumnTypeOf(t *testing.T) {
	tests := []struct {
		decl string
		want ir.ColumnType
	}{
		{"INTEGER", ir.TypeInteger},
		{"bigint", ir.TypeInteger},
		{"VARCHAR(40)", ir.TypeVarchar},
		{"NVARCHAR", ir.TypeVarchar},
		{"CHAR(3)", ir.TypeText},
		{"TEXT", ir.TypeText},
		{"CLOB", ir.TypeText},
		{"DATE", ir.TypeDate},
		{"datetime", ir.TypeDate},
		{"BOOLEAN", ir.TypeBoolean},
		{"REAL", ir.TypeDecimal},
		{"DOUBLE PRECISION", ir.TypeDecimal},
		{"NUMERIC(10, 2)", ir.TypeDecimal},
		{"DECIMAL", ir.TypeDecimal},
		{"", ir.TypeText},
		{"BLOB", ir.TypeText},
	}
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			assert.Equal(t, tt.want, ColumnTypeOf(tt.decl))
		})
	}
}
