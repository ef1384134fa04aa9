package store

import (
	"encoding/json"
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/roach88/querylab/internal/ir"
)

// ParquetRow is one record of a seed file: a table name and one row of
// that table as canonical JSON.
type ParquetRow struct {
	TableName string `parquet:"name=table_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	DataJSON  string `parquet:"name=data_json, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Seed holds the rows read from a seed file, grouped by table.
type Seed struct {
	// Tables lists table names in the order they first appear in the file.
	Tables []string
	Rows   map[string][]ir.Row
}

// WriteSeed writes every row of the schema to a Parquet seed file, table by
// table in declaration order. Existing files are overwritten.
// A table with no rows contributes no records, so it is absent from the
// seed when read back.
func WriteSeed(path string, schema *ir.Schema) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create seed file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(ParquetRow), 4)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, t := range schema.Tables {
		for i, row := range t.Rows {
			data, err := ir.MarshalCanonical(row)
			if err != nil {
				return fmt.Errorf("%s.rows[%d]: %w", t.Name, i, err)
			}
			if err := pw.Write(&ParquetRow{TableName: t.Name, DataJSON: string(data)}); err != nil {
				return fmt.Errorf("failed to write %s.rows[%d]: %w", t.Name, i, err)
			}
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to flush seed file: %w", err)
	}
	return nil
}

// ReadSeed reads a Parquet seed file.
func ReadSeed(path string) (*Seed, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(ParquetRow), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	seed := &Seed{Rows: make(map[string][]ir.Row)}

	numRows := int(pr.GetNumRows())
	if numRows == 0 {
		return seed, nil
	}

	records := make([]ParquetRow, numRows)
	if err := pr.Read(&records); err != nil {
		return nil, fmt.Errorf("failed to read seed rows: %w", err)
	}

	for i, rec := range records {
		var row ir.Row
		if err := json.Unmarshal([]byte(rec.DataJSON), &row); err != nil {
			return nil, fmt.Errorf("seed record %d (%s): %w", i, rec.TableName, err)
		}
		if _, seen := seed.Rows[rec.TableName]; !seen {
			seed.Tables = append(seed.Tables, rec.TableName)
		}
		seed.Rows[rec.TableName] = append(seed.Rows[rec.TableName], row)
	}
	return seed, nil
}

// Apply returns a copy of schema whose tables named in the seed carry the
// seed's rows instead of their own. Values are coerced to column types the
// same way compiled scenarios are. Tables the seed does not mention keep
// their rows; a seed table missing from the schema is an error.
// A seed cannot empty a table: tables are only named by their rows.
func (sd *Seed) Apply(schema *ir.Schema) (*ir.Schema, error) {
	out := schema
	for _, name := range sd.Tables {
		table, ok := out.Table(name)
		if !ok {
			return nil, fmt.Errorf("seed table %q not found in schema %q", name, schema.Name)
		}
		rows := make([]ir.Row, len(sd.Rows[name]))
		for i, r := range sd.Rows[name] {
			rows[i] = table.ConformRow(r)
		}

		var err error
		if out, err = out.WithRows(name, rows); err != nil {
			return nil, err
		}
	}
	return out, nil
}
