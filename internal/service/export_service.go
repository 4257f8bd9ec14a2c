package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/skolara-api/internal/models"
	appErrors "github.com/noah-isme/skolara-api/pkg/errors"
	"github.com/noah-isme/skolara-api/pkg/export"
)

// ExportFormat identifies a supported export encoding.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered bytes plus metadata for the HTTP layer.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders class timetables to downloadable documents.
type ExportService struct {
	timetables *TimetableService
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	maxRows    int
	logger     *zap.Logger
}

// NewExportService instantiates ExportService.
func NewExportService(timetables *TimetableService, maxRows int, logger *zap.Logger) *ExportService {
	if maxRows <= 0 {
		maxRows = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		timetables: timetables,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		maxRows:    maxRows,
		logger:     logger,
	}
}

// ClassTimetable renders one class timetable in the requested format.
func (s *ExportService) ClassTimetable(ctx context.Context, tenantID, classID, termID string, format ExportFormat) (*ExportResult, error) {
	periods, err := s.timetables.ClassTimetable(ctx, tenantID, classID, termID)
	if err != nil {
		return nil, err
	}
	if len(periods) > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("timetable exceeds export limit of %d rows", s.maxRows))
	}

	dataset := timetableDataset(periods)
	title := "class timetable"
	if len(periods) > 0 {
		title = fmt.Sprintf("timetable %s", periods[0].ClassName)
	}

	switch format {
	case FormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: exportFilename(classID, termID, "csv")}, nil
	case FormatPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: exportFilename(classID, termID, "pdf")}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func timetableDataset(periods []models.PeriodDetail) export.Dataset {
	headers := []string{"Day", "Start", "End", "Subject", "Teacher"}
	rows := make([]map[string]string, 0, len(periods))
	for _, p := range periods {
		rows = append(rows, map[string]string{
			"Day":     string(p.DayOfWeek),
			"Start":   p.StartTime,
			"End":     p.EndTime,
			"Subject": p.SubjectName,
			"Teacher": p.TeacherName,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func exportFilename(classID, termID, ext string) string {
	return strings.ToLower(fmt.Sprintf("timetable_%s_%s.%s", classID, termID, ext))
}
