package testutil

import "github.com/roach88/querylab/internal/ir"

// SchoolSchema returns a fresh copy of the two-table lesson schema used
// throughout the tests.
//
//	students(id integer pk, name text, age integer)
//	  (1, "Ana", 22) (2, "Ben", 19) (3, "Cleo", 25)
//	orders(id integer pk, student_id integer fk students.id, amount decimal)
//	  (10, 1, 12.5) (11, 3, 7)
func SchoolSchema() *ir.Schema {
	return &ir.Schema{
		Name:        "school",
		Description: "Students and the orders they placed at the campus shop.",
		Tables: []ir.Table{
			{
				Name: "students",
				Columns: []ir.Column{
					{Name: "id", Type: ir.TypeInteger, PrimaryKey: true},
					{Name: "name", Type: ir.TypeText},
					{Name: "age", Type: ir.TypeInteger},
				},
				Rows: []ir.Row{
					{"id": ir.Int(1), "name": ir.Text("Ana"), "age": ir.Int(22)},
					{"id": ir.Int(2), "name": ir.Text("Ben"), "age": ir.Int(19)},
					{"id": ir.Int(3), "name": ir.Text("Cleo"), "age": ir.Int(25)},
				},
			},
			{
				Name: "orders",
				Columns: []ir.Column{
					{Name: "id", Type: ir.TypeInteger, PrimaryKey: true},
					{
						Name:       "student_id",
						Type:       ir.TypeInteger,
						ForeignKey: &ir.ForeignKey{Table: "students", Column: "id"},
					},
					{Name: "amount", Type: ir.TypeDecimal},
				},
				Rows: []ir.Row{
					{"id": ir.Int(10), "student_id": ir.Int(1), "amount": ir.Decimal(12.5)},
					{"id": ir.Int(11), "student_id": ir.Int(3), "amount": ir.Decimal(7)},
				},
			},
		},
	}
}

// SchoolCUE is SchoolSchema written as a CUE scenario file.
const SchoolCUE = `
scenario: school: {
	description: "Students and the orders they placed at the campus shop."
	table: students: {
		columns: [
			{name: "id", type: "integer", primary_key: true},
			{name: "name", type: "text"},
			{name: "age", type: "integer"},
		]
		rows: [
			{id: 1, name: "Ana", age: 22},
			{id: 2, name: "Ben", age: 19},
			{id: 3, name: "Cleo", age: 25},
		]
	}
	table: orders: {
		columns: [
			{name: "id", type: "integer", primary_key: true},
			{name: "student_id", type: "integer", references: {table: "students", column: "id"}},
			{name: "amount", type: "decimal"},
		]
		rows: [
			{id: 10, student_id: 1, amount: 12.5},
			{id: 11, student_id: 3, amount: 7},
		]
	}
}
`
