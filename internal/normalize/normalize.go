// Package normalize maps raw CVM bulk-file rows onto the canonical
// record shapes. Column names changed across eras of the portal; the
// alias tables below absorb those renames so callers never branch on a
// format version. Rows whose key fields (CNPJ or date) cannot be parsed
// are dropped and counted, never fatal.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/quantbr/fundsdb/internal/cvm"
	"github.com/quantbr/fundsdb/internal/model"
)

// Alias tables: canonical field name -> accepted header spellings, in
// priority order. Supporting a new era means appending spellings here.
var (
	quotaAliases = map[string][]string{
		"CNPJ_FUNDO":    {"CNPJ_FUNDO", "CNPJ_FUNDO_CLASSE"},
		"DT_COMPTC":     {"DT_COMPTC"},
		"VL_QUOTA":      {"VL_QUOTA"},
		"VL_PATRIM_LIQ": {"VL_PATRIM_LIQ"},
		"VL_TOTAL":      {"VL_TOTAL"},
		"NR_COTST":      {"NR_COTST"},
	}

	fundAliases = map[string][]string{
		"CNPJ_FUNDO":   {"CNPJ_FUNDO", "CNPJ_FUNDO_CLASSE"},
		"DENOM_SOCIAL": {"DENOM_SOCIAL"},
		"SIT":          {"SIT"},
		"CLASSE":       {"CLASSE"},
		"GESTOR":       {"GESTOR"},
	}
)

// Report summarizes one table's normalization.
type Report struct {
	RowsIn      int
	RowsKept    int
	RowsDropped int
}

// Merge accumulates another table's report into r.
func (r *Report) Merge(o Report) {
	r.RowsIn += o.RowsIn
	r.RowsKept += o.RowsKept
	r.RowsDropped += o.RowsDropped
}

// fieldIndex resolves each canonical field to a column position in the
// header, -1 when no alias matches (absent in this era).
func fieldIndex(header []string, aliases map[string][]string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}

	idx := make(map[string]int, len(aliases))
	for canonical, names := range aliases {
		idx[canonical] = -1
		for _, name := range names {
			if i, ok := pos[name]; ok {
				idx[canonical] = i
				break
			}
		}
	}
	return idx
}

func field(row []string, idx map[string]int, name string) string {
	i := idx[name]
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// floatField parses a numeric column, zero when absent or unparseable.
// Absent optional values are data, not errors.
func floatField(row []string, idx map[string]int, name string) float64 {
	s := field(row, idx, name)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func intField(row []string, idx map[string]int, name string) int {
	s := field(row, idx, name)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

// Quotas maps one daily-report table to canonical quota records.
func Quotas(tbl *cvm.RawTable) ([]model.Quota, Report) {
	idx := fieldIndex(tbl.Header, quotaAliases)
	rep := Report{RowsIn: len(tbl.Rows)}

	quotas := make([]model.Quota, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		cnpj, err := model.NormalizeCNPJ(field(row, idx, "CNPJ_FUNDO"))
		if err != nil {
			rep.RowsDropped++
			continue
		}
		date, err := time.Parse("2006-01-02", field(row, idx, "DT_COMPTC"))
		if err != nil {
			rep.RowsDropped++
			continue
		}

		quotas = append(quotas, model.Quota{
			CNPJ:         cnpj,
			Date:         date.UTC(),
			QuotaValue:   floatField(row, idx, "VL_QUOTA"),
			NetAssets:    floatField(row, idx, "VL_PATRIM_LIQ"),
			TotalAssets:  floatField(row, idx, "VL_TOTAL"),
			Shareholders: intField(row, idx, "NR_COTST"),
		})
		rep.RowsKept++
	}

	return quotas, rep
}

// Funds maps a registry table to canonical fund records. When a CNPJ
// appears more than once (one row per share class in newer registries)
// the last row wins, matching the upsert semantics of the store.
func Funds(tbl *cvm.RawTable) ([]model.Fund, Report) {
	idx := fieldIndex(tbl.Header, fundAliases)
	rep := Report{RowsIn: len(tbl.Rows)}

	funds := make([]model.Fund, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		cnpj, err := model.NormalizeCNPJ(field(row, idx, "CNPJ_FUNDO"))
		if err != nil {
			rep.RowsDropped++
			continue
		}

		funds = append(funds, model.Fund{
			CNPJ:    cnpj,
			Name:    field(row, idx, "DENOM_SOCIAL"),
			Status:  field(row, idx, "SIT"),
			Class:   field(row, idx, "CLASSE"),
			Manager: field(row, idx, "GESTOR"),
		})
		rep.RowsKept++
	}

	return funds, rep
}
