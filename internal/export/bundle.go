package export

import (
	"fmt"
	"path/filepath"

	"revbot/internal/core"
)

// Artifacts is everything a finished replay leaves on disk.
type Artifacts struct {
	Trades     []core.TradeRecord
	Reversals  []core.ReversalRecord
	Equity     []core.EquityPoint
	ReportHTML []byte
	Title      string
}

// WriteBundle writes the ledgers, the equity chart, and the report under
// dir, then zips them as <name>.zip. Returns the zip path.
func WriteBundle(dir, name string, a Artifacts) (string, error) {
	if err := EnsureDir(dir); err != nil {
		return "", err
	}

	tradesPath := filepath.Join(dir, name+"_trades.csv")
	if err := WriteTradesCSV(tradesPath, a.Trades); err != nil {
		return "", fmt.Errorf("export trades: %w", err)
	}
	revsPath := filepath.Join(dir, name+"_reversals.csv")
	if err := WriteReversalsCSV(revsPath, a.Reversals); err != nil {
		return "", fmt.Errorf("export reversals: %w", err)
	}
	equityPath := filepath.Join(dir, name+"_equity.csv")
	if err := WriteEquityCSV(equityPath, a.Equity); err != nil {
		return "", fmt.Errorf("export equity: %w", err)
	}

	svg := EquitySVG(900, 300, a.Equity, EquityMarkers(a.Equity, a.Trades), a.Title)
	svgPath, err := WriteFile(dir, name+"_equity.svg", svg)
	if err != nil {
		return "", fmt.Errorf("export chart: %w", err)
	}

	files := map[string]string{
		filepath.Base(tradesPath): tradesPath,
		filepath.Base(revsPath):   revsPath,
		filepath.Base(equityPath): equityPath,
		filepath.Base(svgPath):    svgPath,
	}
	if len(a.ReportHTML) > 0 {
		reportPath, err := WriteFile(dir, name+"_report.html", a.ReportHTML)
		if err != nil {
			return "", fmt.Errorf("export report: %w", err)
		}
		files[filepath.Base(reportPath)] = reportPath
	}

	zipPath := filepath.Join(dir, name+".zip")
	if err := ZipFiles(zipPath, files); err != nil {
		return "", fmt.Errorf("export zip: %w", err)
	}
	return zipPath, nil
}
