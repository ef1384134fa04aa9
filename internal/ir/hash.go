package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainResult = "querylab/result/v1"
	DomainSchema = "querylab/schema/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ResultHash fingerprints a result set. Column order and row order both
// contribute, so two results hash equal only if a learner would see the
// same grid.
func ResultHash(columns []string, rows []Row) (string, error) {
	cols := make([]any, len(columns))
	for i, c := range columns {
		cols[i] = c
	}
	data := make([]any, len(rows))
	for i, r := range rows {
		data[i] = r
	}

	canonical, err := MarshalCanonical(map[string]any{
		"columns": cols,
		"rows":    data,
	})
	if err != nil {
		return "", fmt.Errorf("ResultHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainResult, canonical), nil
}

// SchemaHash fingerprints a schema's tables, columns and rows.
// Table declaration order does not affect the hash; row order does.
func SchemaHash(s *Schema) (string, error) {
	tables := make(map[string]any, len(s.Tables))
	for _, name := range sortedTableNames(s) {
		t, _ := s.Table(name)

		cols := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			col := map[string]any{
				"name":        c.Name,
				"type":        string(c.Type),
				"primary_key": c.PrimaryKey,
				"nullable":    c.Nullable,
			}
			if c.ForeignKey != nil {
				col["foreign_key"] = map[string]any{
					"table":  c.ForeignKey.Table,
					"column": c.ForeignKey.Column,
				}
			}
			cols[i] = col
		}

		rows := make([]any, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = r
		}

		tables[t.Name] = map[string]any{
			"columns": cols,
			"rows":    rows,
		}
	}

	canonical, err := MarshalCanonical(map[string]any{
		"name":   s.Name,
		"tables": tables,
	})
	if err != nil {
		return "", fmt.Errorf("SchemaHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainSchema, canonical), nil
}

// MustResultHash is like ResultHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustResultHash(columns []string, rows []Row) string {
	h, err := ResultHash(columns, rows)
	if err != nil {
		panic(err)
	}
	return h
}
