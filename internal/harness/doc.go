// Package harness grades SQL exercises against compiled lesson scenarios.
//
// # Exercise Format
//
// Exercises are defined in YAML files with the following structure:
//
//	name: adults_by_age
//	description: "List students aged 20 or older, oldest first."
//	scenario: school
//	query: SELECT name, age FROM students WHERE age >= 20 ORDER BY age DESC
//	expect:
//	  columns: [name, age]
//	  rows:
//	    - {name: Cleo, age: 25}
//	    - {name: Ana, age: 22}
//
// An exercise may instead expect a failure:
//
//	expect:
//	  success: false
//	  error_code: UNKNOWN_TABLE
//	  error_contains: teachers
//
// Unknown fields are rejected so typos surface at load time.
//
// # Expectations
//
//   - success: expected outcome (defaults to true unless error_code is set)
//   - error_code, error_contains: checked on failures
//   - row_count, columns: checked on successes
//   - rows: compared by display form; "ordered: false" compares as a multiset
//
// # Deterministic Grading
//
// Each graded answer can be captured as a canonical JSON snapshot (see
// Snapshot) and compared against a golden file. Snapshots exclude timing
// and run IDs, so identical answers produce identical golden files.
//
// # Usage
//
//	ex, err := harness.LoadExercise("exercises/adults_by_age.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ex, schemas)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
