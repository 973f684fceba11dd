// Package export builds the downloadable xlsx documents for cash history
// and period reports.
package export

import (
	"bytes"
	"fmt"

	"callcentre-bot/internal/db"
	"callcentre-bot/internal/models"

	"github.com/xuri/excelize/v2"
)

type sheetWriter struct {
	file  *excelize.File
	sheet string
	row   int
}

func newSheetWriter() *sheetWriter {
	return &sheetWriter{file: excelize.NewFile()}
}

func (w *sheetWriter) addSheet(name string) error {
	// Excel caps sheet names at 31 chars.
	if len(name) > 31 {
		name = name[:31]
	}
	if w.sheet == "" {
		w.file.SetSheetName("Sheet1", name)
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}
	w.sheet = name
	w.row = 1
	return nil
}

func (w *sheetWriter) writeHeader(columns []string) error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, col); err != nil {
			return err
		}
	}
	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.row)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.row)
		_ = w.file.SetCellStyle(w.sheet, startCell, endCell, style)
	}
	w.row++
	return nil
}

func (w *sheetWriter) writeRow(values []interface{}) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, val); err != nil {
			return err
		}
	}
	w.row++
	return nil
}

func (w *sheetWriter) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.file.Write(&buf); err != nil {
		return nil, err
	}
	if err := w.file.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CashHistory renders ledger lines into a single-sheet workbook.
func CashHistory(entries []models.CashEntry) ([]byte, error) {
	w := newSheetWriter()
	if err := w.addSheet("История кассы"); err != nil {
		return nil, err
	}
	header := []string{"Дата", "Тип", "Сумма", "Город", "Назначение", "Примечание", "Кто создал"}
	if err := w.writeHeader(header); err != nil {
		return nil, err
	}
	for _, e := range entries {
		row := []interface{}{
			e.CreatedAt.Format("02.01.2006 15:04"),
			e.Type, e.Amount, e.City, e.PaymentPurpose, e.Note, e.CreatedBy,
		}
		if err := w.writeRow(row); err != nil {
			return nil, err
		}
	}
	return w.bytes()
}

// CityReports renders period aggregates, one sheet per city.
func CityReports(reports []db.CityReport) ([]byte, error) {
	w := newSheetWriter()
	header := []string{"Показатель", "Значение"}
	for _, r := range reports {
		if err := w.addSheet(r.City); err != nil {
			return nil, err
		}
		if err := w.writeHeader(header); err != nil {
			return nil, err
		}
		rows := [][]interface{}{
			{"Всего заявок", r.Total},
			{"Готово", r.Done},
			{"Отказ", r.Refused},
			{"Модерн", r.Modern},
			{"Оборот (чистыми)", r.Turnover},
			{"Средний чек", r.AvgCheck()},
			{"Сдача мастеров", r.Payroll},
		}
		for _, row := range rows {
			if err := w.writeRow(row); err != nil {
				return nil, err
			}
		}
	}
	return w.bytes()
}

// MasterReports renders the per-master period table.
func MasterReports(reports []db.MasterReport) ([]byte, error) {
	w := newSheetWriter()
	if err := w.addSheet("По мастерам"); err != nil {
		return nil, err
	}
	header := []string{"Мастер", "Готово", "Отказ", "Оборот", "Сдача"}
	if err := w.writeHeader(header); err != nil {
		return nil, err
	}
	for _, r := range reports {
		row := []interface{}{r.Name, r.Done, r.Refused, r.Turnover, r.Payroll}
		if err := w.writeRow(row); err != nil {
			return nil, err
		}
	}
	return w.bytes()
}
