package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jae-tennis/scan-pipeline/internal/entity"
)

// RosterSource is what the exporter needs from the reconciler.
type RosterSource interface {
	List(ctx context.Context) ([]entity.ParticipantRecord, error)
}

// Service produces XLSX bytes for the roster, for organizers who want a
// printable participant list.
type Service struct {
	roster RosterSource
	logger *slog.Logger
}

func NewService(roster RosterSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{roster: roster, logger: logger}
}

// ExportRosterXLSX returns an XLSX workbook of the current roster.
func (s *Service) ExportRosterXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	recs, err := s.roster.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("build roster: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Participants"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defIdx, _ := f.GetSheetIndex("Sheet1"); defIdx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Nom",
		"Prenom",
		"Licence",
		"Annee",
		"Classement",
		"Club",
		"Statut",
		"Identite verifiee",
		"Image",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.Nom)
		write(2, r.Prenom)
		write(3, r.LicenceNo)
		write(4, r.AnneeValidite)
		write(5, r.Classement)
		write(6, r.Club)
		write(7, r.Statut)
		if r.IDChecked {
			write(8, "oui")
		} else {
			write(8, "non")
		}
		write(9, r.ImageURL)
		row++
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.roster.ok",
		"rows", len(recs),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
