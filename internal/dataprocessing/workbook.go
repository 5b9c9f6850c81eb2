package dataprocessing

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"gridpulse/internal/decoding"
	apperrors "gridpulse/internal/errors"
	"gridpulse/pkg/contracts/domain"
)

// WorkbookEncoding is reported in ParseMeta for spreadsheet sources.
const WorkbookEncoding = "XLSX"

// zipMagic prefixes every .xlsx container.
var zipMagic = []byte("PK\x03\x04")

// IsWorkbook reports whether raw looks like an .xlsx container.
func IsWorkbook(raw []byte) bool {
	return bytes.HasPrefix(raw, zipMagic)
}

// ParseWorkbook reads the first sheet of an .xlsx workbook laid out like the
// CSV report and parses it. Cell text is already Unicode so no encoding
// resolution happens, but the sheet still passes the content checks.
func (p *Parser) ParseWorkbook(raw []byte) (*domain.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeFormat, "failed to open workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewFormatError("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeFormat, "failed to read sheet "+sheet, err)
	}

	p.logger.Debug("workbook sheet loaded",
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)))

	if err := decoding.CheckText(sheetText(rows)); err != nil {
		return nil, err
	}

	ds, err := p.ParseRows(rows)
	if err != nil {
		return nil, err
	}
	ds.Meta.Encoding = WorkbookEncoding
	return ds, nil
}

// ParseAny routes raw bytes to the workbook or text path by content.
func (p *Parser) ParseAny(raw []byte) (*domain.Dataset, error) {
	if IsWorkbook(raw) {
		return p.ParseWorkbook(raw)
	}
	return p.ParseFile(raw)
}

// sheetText renders rows as comma-joined lines for the content checks.
func sheetText(rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.String()
}
