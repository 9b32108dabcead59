package history

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	shotsSheet   = "Shots"
)

var shotHeaders = []string{"Seq", "By", "Target", "X", "Y", "Result", "At"}

// ExportShots renders a match as a workbook with a summary sheet and the shot
// journal.
func ExportShots(m MatchRecord) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", summarySheet)
	summary := [][2]interface{}{
		{"Session", m.SessionID},
		{"Role", m.Role},
		{"Outcome", m.Outcome},
		{"Message", m.Message},
		{"Opponent", m.Peer},
		{"Field", fmt.Sprintf("%dx%d", m.Width, m.Height)},
		{"Started", formatTime(m.StartedAt)},
		{"Finished", formatTime(m.FinishedAt)},
		{"Shots", len(m.Shots)},
	}
	for i, row := range summary {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), row[0])
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), row[1])
	}
	f.SetColWidth(summarySheet, "A", "A", 12)
	f.SetColWidth(summarySheet, "B", "B", 40)

	if _, err := f.NewSheet(shotsSheet); err != nil {
		return nil, fmt.Errorf("failed to create shots sheet: %w", err)
	}
	for i, header := range shotHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(shotsSheet, cell, header)
	}
	for i, s := range m.Shots {
		row := i + 2
		f.SetCellValue(shotsSheet, fmt.Sprintf("A%d", row), s.Seq)
		f.SetCellValue(shotsSheet, fmt.Sprintf("B%d", row), s.By)
		f.SetCellValue(shotsSheet, fmt.Sprintf("C%d", row), s.Label)
		f.SetCellValue(shotsSheet, fmt.Sprintf("D%d", row), s.X)
		f.SetCellValue(shotsSheet, fmt.Sprintf("E%d", row), s.Y)
		f.SetCellValue(shotsSheet, fmt.Sprintf("F%d", row), s.Result)
		f.SetCellValue(shotsSheet, fmt.Sprintf("G%d", row), formatTime(s.At))
	}
	f.SetColWidth(shotsSheet, "G", "G", 22)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return &buf, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
