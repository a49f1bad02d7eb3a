package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jae-tennis/scan-pipeline/internal/entity"
)

type staticRoster []entity.ParticipantRecord

func (s staticRoster) List(context.Context) ([]entity.ParticipantRecord, error) {
	return s, nil
}

func TestExportRosterXLSX(t *testing.T) {
	svc := NewService(staticRoster{
		{Nom: "MARTIN", Prenom: "Lea", LicenceNo: "1234567", Classement: "30/1", IDChecked: true},
		{Nom: "DUPONT", Prenom: "Marc", LicenceNo: "987654C", IDChecked: false},
	}, nil)

	b, err := svc.ExportRosterXLSX(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, b)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue("Participants", "A1")
	require.NoError(t, err)
	require.Equal(t, "Nom", v)

	v, err = f.GetCellValue("Participants", "A2")
	require.NoError(t, err)
	require.Equal(t, "MARTIN", v)

	v, err = f.GetCellValue("Participants", "H2")
	require.NoError(t, err)
	require.Equal(t, "oui", v)

	v, err = f.GetCellValue("Participants", "H3")
	require.NoError(t, err)
	require.Equal(t, "non", v)
}

func TestExportEmptyRoster(t *testing.T) {
	svc := NewService(staticRoster{}, nil)
	b, err := svc.ExportRosterXLSX(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, b, "an empty roster still yields a workbook with headers")
}
