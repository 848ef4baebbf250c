package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"StockCast/internal/domain/models"
	"StockCast/internal/domain/repository"
	applogger "StockCast/pkg/logger"
)

var csvHeader = []string{"Date", "Open", "High", "Low", "Close", "Volume"}

var _ repository.MirrorWriter = (*FileMirror)(nil)

// FileMirror writes the raw daily document and a CSV rendering per symbol.
type FileMirror struct {
	dir    string
	logger *applogger.Logger
}

// NewFileMirror creates the json/ and csv/ subdirectories under dir.
func NewFileMirror(dir string, lgr *applogger.Logger) (*FileMirror, error) {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	for _, sub := range []string{"json", "csv"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create mirror dir: %w", err)
		}
	}
	return &FileMirror{dir: dir, logger: lgr}, nil
}

func (m *FileMirror) JSONPath(symbol string) string {
	return filepath.Join(m.dir, "json", strings.ToUpper(symbol)+"_daily.json")
}

func (m *FileMirror) CSVPath(symbol string) string {
	return filepath.Join(m.dir, "csv", strings.ToUpper(symbol)+"_daily.csv")
}

// Write replaces both mirrors for symbol. Bars are written in the order given.
func (m *FileMirror) Write(symbol string, raw []byte, bars []models.PriceBar) error {
	if err := m.Remove(symbol); err != nil {
		return err
	}
	jsonPath, csvPath := m.JSONPath(symbol), m.CSVPath(symbol)

	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return fmt.Errorf("write json mirror: %w", err)
	}
	if err := writeCSV(csvPath, bars); err != nil {
		return fmt.Errorf("write csv mirror: %w", err)
	}
	m.logger.Debug("Mirrors written",
		applogger.String("symbol", symbol),
		applogger.Int("bars", len(bars)),
	)
	return nil
}

// Remove deletes both mirrors for symbol. Missing files are not an error.
func (m *FileMirror) Remove(symbol string) error {
	for _, p := range []string{m.JSONPath(symbol), m.CSVPath(symbol)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

func writeCSV(path string, bars []models.PriceBar) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return err
	}
	for _, b := range bars {
		row := []string{
			b.Date.Format(models.DateLayout),
			decimal.NewFromFloat(b.Open).StringFixed(2),
			decimal.NewFromFloat(b.High).StringFixed(2),
			decimal.NewFromFloat(b.Low).StringFixed(2),
			decimal.NewFromFloat(b.Close).StringFixed(2),
			decimal.NewFromInt(b.Volume).StringFixed(0),
		}
		if err := w.Write(row); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
