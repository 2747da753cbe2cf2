// Package dataset loads the raw market data tables the document preparer
// consumes: rate and claims tables as CSV, regulatory filings as JSON.
// Columns are resolved by header name so extra columns are tolerated.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cvk03/-Market-intelligence-agent/internal/prepare"
)

// LoadRates reads the rate table from a CSV file.
func LoadRates(path string) ([]prepare.RateRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rates csv: %w", err)
	}
	defer f.Close()

	rows, err := readAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rates csv %s: %w", path, err)
	}

	records := make([]prepare.RateRecord, 0, len(rows))
	for i, row := range rows {
		rate, err := row.float("monthly_rate")
		if err != nil {
			return nil, fmt.Errorf("rates csv row %d: %w", i+1, err)
		}
		deductible, err := row.float("deductible")
		if err != nil {
			return nil, fmt.Errorf("rates csv row %d: %w", i+1, err)
		}
		coverage, err := row.float("coverage_amount")
		if err != nil {
			return nil, fmt.Errorf("rates csv row %d: %w", i+1, err)
		}
		records = append(records, prepare.RateRecord{
			Provider:       row.get("provider"),
			State:          row.get("state"),
			InsuranceType:  row.get("insurance_type"),
			MonthlyRate:    rate,
			Deductible:     deductible,
			CoverageAmount: coverage,
		})
	}
	return records, nil
}

// LoadClaims reads the claims table from a CSV file.
func LoadClaims(path string) ([]prepare.ClaimRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open claims csv: %w", err)
	}
	defer f.Close()

	rows, err := readAll(f)
	if err != nil {
		return nil, fmt.Errorf("read claims csv %s: %w", path, err)
	}

	records := make([]prepare.ClaimRecord, 0, len(rows))
	for i, row := range rows {
		amount, err := row.float("claim_amount")
		if err != nil {
			return nil, fmt.Errorf("claims csv row %d: %w", i+1, err)
		}
		settlement, err := row.float("settlement_days")
		if err != nil {
			return nil, fmt.Errorf("claims csv row %d: %w", i+1, err)
		}
		records = append(records, prepare.ClaimRecord{
			Provider:       row.get("provider"),
			State:          row.get("state"),
			InsuranceType:  row.get("insurance_type"),
			ClaimAmount:    amount,
			SettlementDays: settlement,
		})
	}
	return records, nil
}

// LoadFilings reads regulatory filings from a JSON file. A missing file is
// not an error: filings are optional input.
func LoadFilings(path string) ([]prepare.RegulatoryFiling, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read filings json: %w", err)
	}

	var filings []prepare.RegulatoryFiling
	if err := json.Unmarshal(data, &filings); err != nil {
		return nil, fmt.Errorf("parse filings json %s: %w", path, err)
	}
	return filings, nil
}

// row is one CSV record with header-based field access.
type row struct {
	header map[string]int
	fields []string
}

func (r row) get(name string) string {
	idx, ok := r.header[name]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return r.fields[idx]
}

func (r row) float(name string) (float64, error) {
	raw := r.get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing column %q", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return v, nil
}

func readAll(r io.Reader) ([]row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv: header row required")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[name] = i
	}

	rows := make([]row, 0, len(records)-1)
	for _, fields := range records[1:] {
		rows = append(rows, row{header: header, fields: fields})
	}
	return rows, nil
}
