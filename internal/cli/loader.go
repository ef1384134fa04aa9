package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/querylab/internal/compiler"
	"github.com/roach88/querylab/internal/ir"
	"github.com/roach88/querylab/internal/store"
)

// LoadMode controls how errors are handled during scenario loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll compiles every scenario and collects all errors.
	LoadModeCollectAll
)

// LoadResult contains the scenarios compiled from a CUE directory.
type LoadResult struct {
	Schemas   []*ir.Schema
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during scenario loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the CUE source line of the error, or 0 when unknown.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// LoadScenarios loads and compiles CUE scenarios from a directory or a
// single .cue file.
//
// A nil result means nothing could be compiled at all (missing path, CUE
// syntax errors). In LoadModeCollectAll a non-nil result may come with
// errors for the scenarios that failed.
func LoadScenarios(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema path: %v", err)}}
	}

	var (
		value     cue.Value
		fileCount int
	)
	if info.IsDir() {
		var loadErr *LoadError
		value, fileCount, loadErr = loadDir(path)
		if loadErr != nil {
			return nil, []error{loadErr}
		}
	} else {
		if filepath.Ext(path) != ".cue" {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a CUE file: %s", path)}}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", path, err)}}
		}
		value = cuecontext.New().CompileBytes(data, cue.Filename(path))
		fileCount = 1
	}

	if err := value.Err(); err != nil {
		return nil, []error{convertCompileError(err, "build", ErrCodeBuildFailed)}
	}

	result := &LoadResult{CUEValue: value, FileCount: fileCount}

	if !value.LookupPath(cue.ParsePath("scenario")).Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoScenarios, Message: "no scenarios found (expected a top-level \"scenario\" field)"}}
	}

	if mode == LoadModeFailFast {
		schemas, err := compiler.CompileScenarios(value)
		if err != nil {
			return result, []error{convertCompileError(err, "scenario", ErrCodeGeneric)}
		}
		result.Schemas = schemas
	} else {
		var errs []error
		result.Schemas, errs = compileEach(value)
		if len(errs) > 0 {
			return result, errs
		}
	}

	if len(result.Schemas) == 0 {
		return result, []error{&LoadError{Code: ErrCodeNoScenarios, Message: "no scenarios found"}}
	}
	return result, nil
}

// compileEach compiles every scenario independently so one broken
// scenario does not hide the errors of the others.
func compileEach(value cue.Value) ([]*ir.Schema, []error) {
	iter, err := value.LookupPath(cue.ParsePath("scenario")).Fields()
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating scenarios: %v", err)}}
	}

	var (
		schemas []*ir.Schema
		errs    []error
	)
	for iter.Next() {
		s, err := compiler.CompileScenario(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "scenario."+iter.Label(), ErrCodeGeneric))
			continue
		}
		schemas = append(schemas, s)
	}
	return schemas, errs
}

// loadDir loads the CUE package in dir.
func loadDir(dir string) (cue.Value, int, *LoadError) {
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, 0, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	return cuecontext.New().BuildInstance(inst), len(cueFiles), nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with
// position info. fallback is used for errors that carry no field.
func convertCompileError(err error, context, fallback string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := MapFieldToErrorCode(compileErr.Field)
		if code == ErrCodeGeneric {
			code = fallback
		}
		return &LoadError{
			Code:    code,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    fallback,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoScenarios = "E008" // No scenario defined
	ErrCodeMalformed   = "E009" // Scenario shape is wrong (row or column layout)
)

// MapFieldToErrorCode maps a compiler error field to an error code.
//
// Fields look like "table", "table.students.columns.age.type" or
// "table.students.rows[2]".
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "table":
		return compiler.ErrNoTables
	case field == "value":
		return compiler.ErrTypeMismatch
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.Contains(field, ".references"):
		return compiler.ErrDanglingRef
	case strings.HasSuffix(field, ".type"):
		return compiler.ErrInvalidFieldType
	case strings.HasSuffix(field, ".name"):
		return compiler.ErrEmptyName
	case strings.HasSuffix(field, ".columns"):
		return compiler.ErrNoColumns
	case strings.Contains(field, ".rows["):
		return ErrCodeMalformed
	default:
		return ErrCodeGeneric
	}
}

// sourceOptions selects where a command reads its lesson tables from.
type sourceOptions struct {
	SQLite   bool
	Scenario string
	Seed     string
}

// loadSchema resolves one schema from a CUE path or a SQLite file, then
// applies a Parquet seed when one is given.
func loadSchema(ctx context.Context, path string, src sourceOptions) (*ir.Schema, error) {
	var schemas []*ir.Schema
	if src.SQLite {
		s, err := loadSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		schemas = []*ir.Schema{s}
	} else {
		result, errs := LoadScenarios(path, LoadModeFailFast)
		if len(errs) > 0 {
			return nil, errs[0]
		}
		schemas = result.Schemas
	}

	schema, err := pickScenario(schemas, src.Scenario)
	if err != nil {
		return nil, err
	}

	if src.Seed == "" {
		return schema, nil
	}
	seed, err := store.ReadSeed(src.Seed)
	if err != nil {
		return nil, err
	}
	return seed.Apply(schema)
}

// loadSQLite reads a SQLite file as a schema named after the file.
func loadSQLite(ctx context.Context, path string) (*ir.Schema, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return st.LoadSchema(ctx, name)
}

// pickScenario selects a scenario by name. An empty name is accepted when
// exactly one scenario is loaded.
func pickScenario(schemas []*ir.Schema, name string) (*ir.Schema, error) {
	available := make([]string, len(schemas))
	for i, s := range schemas {
		if s.Name == name {
			return s, nil
		}
		available[i] = s.Name
	}

	if name == "" {
		if len(schemas) == 1 {
			return schemas[0], nil
		}
		return nil, fmt.Errorf("%d scenarios loaded (%s); choose one with --scenario",
			len(schemas), strings.Join(available, ", "))
	}
	return nil, fmt.Errorf("scenario %q not found (available: %s)", name, strings.Join(available, ", "))
}
