// Package coverage parses coverage reports into the percentages the
// coverage rule evaluator compares against its threshold. Supported formats:
// "go" (go tool cover -func output), "lcov" (lcov tracefiles), "cobertura"
// (Cobertura XML), and "json-summary" (Istanbul summary JSON).
package coverage

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/iterguard/iterguard/pkg/models"
)

// Metrics holds the percentages extracted from one report, keyed by scope.
// Formats that don't carry a scope simply omit it.
type Metrics struct {
	pcts map[models.CoverageScope]float64
}

// Percent returns the percentage for the given scope and whether the report
// carried that scope at all.
func (m Metrics) Percent(scope models.CoverageScope) (float64, bool) {
	v, ok := m.pcts[scope]
	return v, ok
}

// Scopes returns which scopes the report carried.
func (m Metrics) Scopes() []models.CoverageScope {
	var out []models.CoverageScope
	for _, s := range []models.CoverageScope{models.CoverageLines, models.CoverageBranches, models.CoverageFunctions, models.CoverageStatements} {
		if _, ok := m.pcts[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ParseFile reads and parses the report at path in the declared format.
func ParseFile(path, format string) (Metrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metrics{}, fmt.Errorf("read coverage report: %w", err)
	}
	return Parse(data, format)
}

// Parse parses report content in the declared format.
func Parse(data []byte, format string) (Metrics, error) {
	switch format {
	case "go":
		return parseGoFunc(data)
	case "lcov":
		return parseLcov(data)
	case "cobertura":
		return parseCobertura(data)
	case "json-summary":
		return parseJSONSummary(data)
	default:
		return Metrics{}, fmt.Errorf("unknown coverage format %q", format)
	}
}

// parseGoFunc parses `go tool cover -func` output. The final line reads
// "total:  (statements)  82.1%".
func parseGoFunc(data []byte) (Metrics, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	var total string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "total:") {
			total = line
		}
	}
	if total == "" {
		return Metrics{}, fmt.Errorf("go coverage report has no total line")
	}

	fields := strings.Fields(total)
	pctStr := fields[len(fields)-1]
	pct, err := strconv.ParseFloat(strings.TrimSuffix(pctStr, "%"), 64)
	if err != nil {
		return Metrics{}, fmt.Errorf("parse go coverage total %q: %w", pctStr, err)
	}

	return Metrics{pcts: map[models.CoverageScope]float64{
		models.CoverageStatements: pct,
		models.CoverageLines:      pct,
	}}, nil
}

// parseLcov parses an lcov tracefile, summing LF/LH, FNF/FNH, and BRF/BRH
// counters across all records.
func parseLcov(data []byte) (Metrics, error) {
	var linesFound, linesHit int64
	var fnsFound, fnsHit int64
	var brsFound, brsHit int64
	sawRecord := false

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "LF":
			linesFound += n
			sawRecord = true
		case "LH":
			linesHit += n
		case "FNF":
			fnsFound += n
		case "FNH":
			fnsHit += n
		case "BRF":
			brsFound += n
		case "BRH":
			brsHit += n
		}
	}
	if !sawRecord {
		return Metrics{}, fmt.Errorf("lcov report has no LF records")
	}

	pcts := make(map[models.CoverageScope]float64)
	if linesFound > 0 {
		pcts[models.CoverageLines] = 100 * float64(linesHit) / float64(linesFound)
	}
	if fnsFound > 0 {
		pcts[models.CoverageFunctions] = 100 * float64(fnsHit) / float64(fnsFound)
	}
	if brsFound > 0 {
		pcts[models.CoverageBranches] = 100 * float64(brsHit) / float64(brsFound)
	}
	return Metrics{pcts: pcts}, nil
}

// coberturaReport models the root attributes of a Cobertura XML report.
type coberturaReport struct {
	XMLName    xml.Name `xml:"coverage"`
	LineRate   float64  `xml:"line-rate,attr"`
	BranchRate float64  `xml:"branch-rate,attr"`
}

func parseCobertura(data []byte) (Metrics, error) {
	var report coberturaReport
	if err := xml.Unmarshal(data, &report); err != nil {
		return Metrics{}, fmt.Errorf("parse cobertura report: %w", err)
	}
	// Cobertura rates are 0-1 fractions.
	return Metrics{pcts: map[models.CoverageScope]float64{
		models.CoverageLines:    100 * report.LineRate,
		models.CoverageBranches: 100 * report.BranchRate,
	}}, nil
}

// jsonSummary models the Istanbul coverage-summary "total" block.
type jsonSummary struct {
	Total map[string]struct {
		Pct float64 `json:"pct"`
	} `json:"total"`
}

func parseJSONSummary(data []byte) (Metrics, error) {
	var summary jsonSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return Metrics{}, fmt.Errorf("parse json-summary report: %w", err)
	}
	if len(summary.Total) == 0 {
		return Metrics{}, fmt.Errorf("json-summary report has no total block")
	}

	pcts := make(map[models.CoverageScope]float64)
	for key, v := range summary.Total {
		switch key {
		case "lines":
			pcts[models.CoverageLines] = v.Pct
		case "branches":
			pcts[models.CoverageBranches] = v.Pct
		case "functions":
			pcts[models.CoverageFunctions] = v.Pct
		case "statements":
			pcts[models.CoverageStatements] = v.Pct
		}
	}
	return Metrics{pcts: pcts}, nil
}
