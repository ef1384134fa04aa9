package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/querylab/internal/engine"
	"github.com/roach88/querylab/internal/ir"
)

// AssertionError is returned when an expectation fails.
// It includes enough context to show the learner what differed.
type AssertionError struct {
	Field    string // Expect field that failed, e.g. "rows[2]"
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: expected %s", e.Field, e.Expected)
	fmt.Fprintf(&buf, ", got %s", e.Actual)
	return buf.String()
}

// EvaluateExpect checks a query result against an exercise's expectations.
// Returns one error per failed expectation, in the order the fields are
// declared on Expect.
//
// An outcome mismatch (success versus failure) is reported alone: nothing
// else about a wrong outcome is meaningful.
func EvaluateExpect(res engine.Result, expect Expect) []error {
	if err := assertOutcome(res, expect); err != nil {
		return []error{err}
	}

	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if !res.Success {
		add(assertErrorCode(res, expect))
		add(assertErrorContains(res, expect))
		return errs
	}

	add(assertRowCount(res, expect))
	add(assertColumns(res, expect))
	errs = append(errs, assertRows(res, expect)...)
	return errs
}

func assertOutcome(res engine.Result, expect Expect) error {
	want := expect.WantSuccess()
	if res.Success == want {
		return nil
	}
	if want {
		return &AssertionError{
			Field:    "success",
			Expected: "the query to succeed",
			Actual:   fmt.Sprintf("%s: %s", res.Code, res.Error),
		}
	}
	return &AssertionError{
		Field:    "success",
		Expected: "the query to fail",
		Actual:   fmt.Sprintf("%d row(s)", res.RowCount),
	}
}

func assertErrorCode(res engine.Result, expect Expect) error {
	if expect.ErrorCode == "" || string(res.Code) == expect.ErrorCode {
		return nil
	}
	return &AssertionError{
		Field:    "error_code",
		Expected: expect.ErrorCode,
		Actual:   string(res.Code),
	}
}

func assertErrorContains(res engine.Result, expect Expect) error {
	if expect.ErrorContains == "" || strings.Contains(res.Error, expect.ErrorContains) {
		return nil
	}
	return &AssertionError{
		Field:    "error_contains",
		Expected: fmt.Sprintf("message containing %q", expect.ErrorContains),
		Actual:   fmt.Sprintf("%q", res.Error),
	}
}

func assertRowCount(res engine.Result, expect Expect) error {
	if expect.RowCount == nil || res.RowCount == *expect.RowCount {
		return nil
	}
	return &AssertionError{
		Field:    "row_count",
		Expected: fmt.Sprintf("%d", *expect.RowCount),
		Actual:   fmt.Sprintf("%d", res.RowCount),
	}
}

func assertColumns(res engine.Result, expect Expect) error {
	if expect.Columns == nil || slices.Equal(res.Columns, expect.Columns) {
		return nil
	}
	return &AssertionError{
		Field:    "columns",
		Expected: fmt.Sprintf("%v", expect.Columns),
		Actual:   fmt.Sprintf("%v", res.Columns),
	}
}

// assertRows compares expected rows with actual rows by display form.
func assertRows(res engine.Result, expect Expect) []error {
	if expect.Rows == nil {
		return nil
	}

	want := make([]string, len(expect.Rows))
	for i, r := range expect.Rows {
		key, err := expectedRowKey(r)
		if err != nil {
			return []error{fmt.Errorf("expect.rows[%d]: %w", i, err)}
		}
		want[i] = key
	}

	got := make([]string, len(res.Rows))
	for i, r := range res.Rows {
		got[i] = rowKey(r)
	}

	if expect.WantOrdered() {
		return compareOrdered(want, got)
	}
	return compareUnordered(want, got)
}

func compareOrdered(want, got []string) []error {
	if len(want) != len(got) {
		return []error{&AssertionError{
			Field:    "rows",
			Expected: fmt.Sprintf("%d row(s)", len(want)),
			Actual:   fmt.Sprintf("%d row(s)", len(got)),
		}}
	}

	var errs []error
	for i := range want {
		if want[i] != got[i] {
			errs = append(errs, &AssertionError{
				Field:    fmt.Sprintf("rows[%d]", i),
				Expected: want[i],
				Actual:   got[i],
			})
		}
	}
	return errs
}

// compareUnordered compares rows as multisets. Each missing row and each
// unexpected row is reported once per surplus occurrence.
func compareUnordered(want, got []string) []error {
	counts := make(map[string]int)
	for _, k := range want {
		counts[k]++
	}
	for _, k := range got {
		counts[k]--
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, k := range keys {
		for n := counts[k]; n > 0; n-- {
			errs = append(errs, &AssertionError{Field: "rows", Expected: k, Actual: "no such row"})
		}
		for n := counts[k]; n < 0; n++ {
			errs = append(errs, &AssertionError{Field: "rows", Expected: "no such row", Actual: k})
		}
	}
	return errs
}

// rowKey renders a row as {k: v, ...} with sorted keys and display-form
// values, so two rows with the same key set and displayed values compare
// equal.
func rowKey(r ir.Row) string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		v := r[k]
		if v == nil {
			v = ir.Null{}
		}
		fmt.Fprintf(&b, "%s: %s", k, v.String())
	}
	b.WriteString("}")
	return b.String()
}

func expectedRowKey(m map[string]any) (string, error) {
	row := make(ir.Row, len(m))
	for k, raw := range m {
		v, err := ir.FromGo(raw)
		if err != nil {
			return "", fmt.Errorf("key %q: %w", k, err)
		}
		row[k] = v
	}
	return rowKey(row), nil
}
