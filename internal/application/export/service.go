package export

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"commenergy-backend/internal/application/sharing"
	"commenergy-backend/internal/domain"

	"github.com/rs/zerolog/log"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatTXT = "txt"
)

// RowSource yields the draft or original rows of a community.
type RowSource interface {
	Rows(ctx context.Context, sess domain.Session, communityID, source string) ([]domain.CommunityContract, error)
}

// CommunityLookup resolves the community name used in file names.
type CommunityLookup interface {
	Get(ctx context.Context, sess domain.Session, communityID string) (*domain.Community, error)
}

// File is a rendered export ready to be sent as an attachment.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

type Service struct {
	Rows        RowSource
	Communities CommunityLookup // optional
	Now         func() time.Time
}

// Export renders the rows of a community. source is "draft" or "original".
func (s *Service) Export(ctx context.Context, sess domain.Session, communityID, format, source string) (*File, error) {
	if source == "" {
		source = sharing.SourceDraft
	}
	if format != FormatCSV && format != FormatTXT {
		return nil, ErrUnknownFormat
	}
	rows, err := s.Rows.Rows(ctx, sess, communityID, source)
	if err != nil {
		return nil, err
	}
	file, err := Render(rows, format)
	if err != nil {
		return nil, err
	}
	file.Name = Filename(s.communityName(ctx, sess, communityID), format, s.now())
	log.Info().
		Str("community_id", communityID).
		Str("format", format).
		Str("source", source).
		Int("rows", len(rows)).
		Msg("export: rendered")
	return file, nil
}

// Render formats rows without naming the file.
func Render(rows []domain.CommunityContract, format string) (*File, error) {
	switch format {
	case FormatCSV:
		b, err := CSV(rows)
		if err != nil {
			return nil, err
		}
		return &File{ContentType: "text/csv;charset=utf-8", Body: b}, nil
	case FormatTXT:
		b, err := TXT(rows)
		if err != nil {
			return nil, err
		}
		return &File{ContentType: "text/plain;charset=utf-8", Body: b}, nil
	}
	return nil, ErrUnknownFormat
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) communityName(ctx context.Context, sess domain.Session, communityID string) string {
	if s.Communities == nil {
		return communityID
	}
	c, err := s.Communities.Get(ctx, sess, communityID)
	if err != nil || c == nil || c.Name == "" {
		return communityID
	}
	return c.Name
}

// Filename builds "<community>_sharings_<timestamp>.<ext>".
func Filename(community, format string, now time.Time) string {
	return fmt.Sprintf("%s_sharings_%s.%s", slug(community), now.UTC().Format("20060102-150405"), format)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "community"
	}
	return out
}
