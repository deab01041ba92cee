package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"commenergy-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	draft, original []domain.CommunityContract
	gotSource       string
}

func (f *fakeRows) Rows(ctx context.Context, sess domain.Session, communityID, source string) ([]domain.CommunityContract, error) {
	f.gotSource = source
	if source == "original" {
		return f.original, nil
	}
	return f.draft, nil
}

type fakeCommunities struct {
	name string
	err  error
}

func (f *fakeCommunities) Get(ctx context.Context, sess domain.Session, communityID string) (*domain.Community, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Community{ID: communityID, Name: f.name}, nil
}

var exportNow = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

func TestExport_CSVFromDraft(t *testing.T) {
	rows := &fakeRows{draft: []domain.CommunityContract{consumption("a", "CUPS-A", ptr(0.5))}}
	svc := &Service{Rows: rows, Communities: &fakeCommunities{name: "Comunitat Solar Alzira"}, Now: func() time.Time { return exportNow }}

	f, err := svc.Export(context.Background(), domain.Session{}, "com-1", FormatCSV, "")
	require.NoError(t, err)
	assert.Equal(t, "draft", rows.gotSource)
	assert.Equal(t, "text/csv;charset=utf-8", f.ContentType)
	assert.Equal(t, "comunitat-solar-alzira_sharings_20260506-070809.csv", f.Name)
	assert.Contains(t, string(f.Body), "50.00%")
}

func TestExport_TXTFromOriginal(t *testing.T) {
	rows := &fakeRows{original: []domain.CommunityContract{generation("g", "CAU"), consumption("a", "CUPS-A", ptr(0.5))}}
	svc := &Service{Rows: rows, Communities: &fakeCommunities{err: errors.New("down")}, Now: func() time.Time { return exportNow }}

	f, err := svc.Export(context.Background(), domain.Session{}, "com-1", FormatTXT, "original")
	require.NoError(t, err)
	assert.Equal(t, "text/plain;charset=utf-8", f.ContentType)
	assert.Equal(t, "com-1_sharings_20260506-070809.txt", f.Name)
	assert.Equal(t, "CAU;0,000000\nCUPS-A;0,500000\n", string(f.Body))
}

func TestExport_Errors(t *testing.T) {
	rows := &fakeRows{draft: []domain.CommunityContract{generation("g1", "A"), generation("g2", "B")}}
	svc := &Service{Rows: rows}

	_, err := svc.Export(context.Background(), domain.Session{}, "com-1", "pdf", "")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, err = svc.Export(context.Background(), domain.Session{}, "com-1", FormatTXT, "")
	assert.ErrorIs(t, err, ErrMultipleGenerationContracts)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "comunitat-d-energia", slug("  Comunitat d'Energia!! "))
	assert.Equal(t, "community", slug("***"))
}
