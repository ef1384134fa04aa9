package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/testutil"
)

// refSchema builds a row-less schema where each entry maps a table to the
// tables its foreign keys reference.
func refSchema(tables [][2]string) *ir.Schema {
	s := &ir.Schema{Name: "refs"}
	index := make(map[string]int)

	for _, pair := range tables {
		name, ref := pair[0], pair[1]
		i, ok := index[name]
		if !ok {
			s.Tables = append(s.Tables, ir.Table{
				Name:    name,
				Columns: []ir.Column{{Name: "id", Type: ir.TypeInteger, PrimaryKey: true}},
			})
			i = len(s.Tables) - 1
			index[name] = i
		}
		if ref == "" {
			continue
		}
		s.Tables[i].Columns = append(s.Tables[i].Columns, ir.Column{
			Name:       ref + "_id",
			Type:       ir.TypeInteger,
			ForeignKey: &ir.ForeignKey{Table: ref, Column: "id"},
		})
	}
	return s
}

// TestAnalyzeCycles_DAG tests that a directed acyclic graph produces no warnings.
func TestAnalyzeCycles_DAG(t *testing.T) {
	warnings := AnalyzeCycles(testutil.SchoolSchema())
	assert.Empty(t, warnings, "DAG should produce no cycle warnings")
	assert.NotNil(t, warnings)
}

func TestAnalyzeCycles_TwoTableCycle(t *testing.T) {
	s := refSchema([][2]string{
		{"a", "b"},
		{"b", "a"},
	})

	warnings := AnalyzeCycles(s)
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, []string{"a", "b", "a"}, warnings[0].Path)
		assert.Equal(t, "warning", warnings[0].Level)
		assert.Equal(t, "Foreign key cycle: a → b → a", warnings[0].Message)
	}
}

func TestAnalyzeCycles_ThreeTableCycle(t *testing.T) {
	s := refSchema([][2]string{
		{"a", "b"},
		{"b", "c"},
		{"c", "a"},
	})

	warnings := AnalyzeCycles(s)
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, []string{"a", "b", "c", "a"}, warnings[0].Path)
	}
}

func TestAnalyzeCycles_SelfReferenceIsInfo(t *testing.T) {
	s := refSchema([][2]string{
		{"employees", "employees"},
	})

	warnings := AnalyzeCycles(s)
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, []string{"employees", "employees"}, warnings[0].Path)
		assert.Equal(t, "info", warnings[0].Level)
	}
}

func TestAnalyzeCycles_IgnoresDanglingReference(t *testing.T) {
	s := refSchema([][2]string{
		{"a", "missing"},
	})
	assert.Empty(t, AnalyzeCycles(s))
}

func TestLoadOrder_ReferencedTablesFirst(t *testing.T) {
	s := refSchema([][2]string{
		{"order_items", "orders"},
		{"order_items", "products"},
		{"orders", "customers"},
		{"products", ""},
		{"customers", ""},
	})

	order := LoadOrder(s)
	assert.Len(t, order, 4)

	pos := make(map[string]int)
	for i, n := range order {
		pos[n] = i
	}
	assert.Less(t, pos["orders"], pos["order_items"])
	assert.Less(t, pos["products"], pos["order_items"])
	assert.Less(t, pos["customers"], pos["orders"])
}

func TestLoadOrder_KeepsDeclarationOrderWhenIndependent(t *testing.T) {
	s := refSchema([][2]string{
		{"c", ""},
		{"a", ""},
		{"b", ""},
	})
	assert.Equal(t, []string{"c", "a", "b"}, LoadOrder(s))
}

func TestLoadOrder_School(t *testing.T) {
	s := testutil.SchoolSchema()
	s.Tables[0], s.Tables[1] = s.Tables[1], s.Tables[0]

	assert.Equal(t, []string{"students", "orders"}, LoadOrder(s))
}

func TestLoadOrder_CycleMembersInDeclarationOrder(t *testing.T) {
	s := refSchema([][2]string{
		{"x", ""},
		{"b", "a"},
		{"a", "b"},
	})
	assert.Equal(t, []string{"x", "b", "a"}, LoadOrder(s))
}
