package service

import (
	"context"
	"fmt"
	"io"

	"github.com/tntan04/quan-ly-mua-sam/internal/dto"
	"github.com/tntan04/quan-ly-mua-sam/internal/infra"

	"github.com/xuri/excelize/v2"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// PDFRenderer draws tabular reports.
type PDFRenderer interface {
	Render(w io.Writer, t infra.PDFTable) error
}

// Export is a generated report file. WriteTo streams it.
type Export struct {
	FileName    string
	ContentType string
	WriteTo     func(w io.Writer) error
}

func (s *reportService) ExportUsage(ctx context.Context, actor Actor, department, format string) (*Export, error) {
	usage, err := s.inventory.DepartmentUsage(ctx, actor, department)
	if err != nil {
		return nil, err
	}

	headers := []string{"STT", "Tên hàng hóa", "Đơn vị tính", "Số lượng", "Thành tiền"}
	rows := make([][]string, len(usage.Items))
	for i, it := range usage.Items {
		rows[i] = []string{fmt.Sprint(i + 1), it.Name, it.Unit, fmt.Sprint(it.Quantity), it.Value.StringFixed(0)}
	}
	title := "BÁO CÁO SỬ DỤNG TÀI SẢN"
	subtitle := fmt.Sprintf("Khoa/phòng: %s. Ngày lập: %s", usage.Department, reportStamp())
	footer := "Tổng giá trị: " + usage.TotalValue.StringFixed(0)

	switch format {
	case "pdf":
		if s.pdf == nil {
			return nil, validationErr("Máy chủ chưa hỗ trợ xuất PDF")
		}
		table := infra.PDFTable{
			Title:    title,
			Subtitle: subtitle,
			Headers:  headers,
			Widths:   []float64{15, 120, 35, 35, 60},
			Rows:     rows,
			Footer:   footer,
		}
		return &Export{
			FileName:    "bao-cao-su-dung.pdf",
			ContentType: contentTypePDF,
			WriteTo:     func(w io.Writer) error { return s.pdf.Render(w, table) },
		}, nil
	case "", "xlsx":
		f, err := buildWorkbook("Sử dụng", title, subtitle, headers, []float64{6, 50, 15, 12, 20}, rows, footer)
		if err != nil {
			return nil, err
		}
		return &Export{
			FileName:    "bao-cao-su-dung.xlsx",
			ContentType: contentTypeXLSX,
			WriteTo:     func(w io.Writer) error { defer f.Close(); return f.Write(w) },
		}, nil
	default:
		return nil, validationErr("Định dạng xuất không hỗ trợ")
	}
}

func (s *reportService) ExportDossiers(ctx context.Context, actor Actor, filter dto.DossierReportFilter) (*Export, error) {
	report, err := s.DossierReport(ctx, actor, filter)
	if err != nil {
		return nil, err
	}

	headers := []string{"STT", "Tên hồ sơ", "Phương thức", "Đơn vị", "Ngày lập", "Trạng thái", "Giá trị"}
	rows := make([][]string, len(report.Dossiers))
	for i, d := range report.Dossiers {
		rows[i] = []string{
			fmt.Sprint(i + 1), d.Name, d.ProcurementMethod, d.TargetUnitName,
			d.Date, d.Status, d.TotalValue.StringFixed(0),
		}
	}
	subtitle := fmt.Sprintf("Năm %d. Ngày lập: %s", report.Year, reportStamp())
	f, err := buildWorkbook("Hồ sơ", "BÁO CÁO HỒ SƠ MUA SẮM", subtitle, headers,
		[]float64{6, 45, 40, 30, 12, 14, 18}, rows, "Tổng giá trị: "+report.TotalValue.StringFixed(0))
	if err != nil {
		return nil, err
	}
	return &Export{
		FileName:    fmt.Sprintf("bao-cao-ho-so-%d.xlsx", report.Year),
		ContentType: contentTypeXLSX,
		WriteTo:     func(w io.Writer) error { defer f.Close(); return f.Write(w) },
	}, nil
}

// buildWorkbook lays out a titled table on a single sheet.
func buildWorkbook(sheet, title, subtitle string, headers []string, widths []float64, rows [][]string, footer string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	footerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	f.SetCellValue(sheet, "A1", title)
	f.SetCellStyle(sheet, "A1", "A1", titleStyle)
	f.SetCellValue(sheet, "A2", subtitle)

	const headerRow = 4
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s%d", col, headerRow)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	for r, row := range rows {
		for c, v := range row {
			col, _ := excelize.ColumnNumberToName(c + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, headerRow+1+r), v)
		}
	}
	footerRow := headerRow + len(rows) + 2
	f.SetCellValue(sheet, fmt.Sprintf("A%d", footerRow), footer)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", footerRow), fmt.Sprintf("A%d", footerRow), footerStyle)

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
	return f, nil
}
