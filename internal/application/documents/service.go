package documents

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"commenergy-backend/internal/domain"
	"commenergy-backend/internal/infrastructure/cache"
	"commenergy-backend/internal/infrastructure/commenergyapi"

	"github.com/rs/zerolog/log"
)

var (
	ErrFileRequired    = errors.New("A file is required")
	ErrFileTooLarge    = errors.New("File exceeds the maximum upload size")
	ErrDocumentIDEmpty = errors.New("Document id is required")
)

// RemoteAPI is the part of the remote API serving community documents.
type RemoteAPI interface {
	ListDocuments(ctx context.Context, token, communityID string) ([]domain.Document, error)
	UploadDocument(ctx context.Context, token string, in commenergyapi.DocumentUpload) (*domain.Document, error)
	DeleteDocument(ctx context.Context, token, documentID string) error
}

// Upload is a file received from the dashboard.
type Upload struct {
	FileName string
	Size     int64
	Type     string
	Content  io.Reader
}

// Service passes documents through to the remote API. Files are never stored here.
type Service struct {
	API      RemoteAPI
	Cache    *cache.Cache
	MaxBytes int64
}

func documentsKey(communityID string) cache.Key {
	return cache.Key{Entity: cache.EntityDocuments, ID: communityID}
}

func (s *Service) List(ctx context.Context, sess domain.Session, communityID string) ([]domain.Document, error) {
	return cache.GetOrLoad(ctx, s.Cache, sess.User.ID, documentsKey(communityID),
		func(ctx context.Context) ([]domain.Document, error) {
			return s.API.ListDocuments(ctx, sess.Token, communityID)
		})
}

func (s *Service) Upload(ctx context.Context, sess domain.Session, communityID string, up Upload) (*domain.Document, error) {
	if up.Content == nil || up.Size == 0 {
		return nil, ErrFileRequired
	}
	if s.MaxBytes > 0 && up.Size > s.MaxBytes {
		return nil, ErrFileTooLarge
	}
	docType, err := domain.ParseDocumentType(strings.ToUpper(strings.TrimSpace(up.Type)))
	if err != nil {
		return nil, err
	}
	name := filepath.Base(up.FileName)
	doc, err := s.API.UploadDocument(ctx, sess.Token, commenergyapi.DocumentUpload{
		CommunityID: communityID,
		Type:        docType,
		FileName:    name,
		Content:     io.LimitReader(up.Content, up.Size),
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, communityID)
	log.Info().Str("community_id", communityID).Str("type", string(docType)).Int64("size", up.Size).Msg("documents: uploaded")
	return doc, nil
}

func (s *Service) Delete(ctx context.Context, sess domain.Session, communityID, documentID string) error {
	if documentID == "" {
		return ErrDocumentIDEmpty
	}
	if err := s.API.DeleteDocument(ctx, sess.Token, documentID); err != nil {
		return err
	}
	s.invalidate(ctx, communityID)
	log.Info().Str("community_id", communityID).Str("document_id", documentID).Msg("documents: deleted")
	return nil
}

func (s *Service) invalidate(ctx context.Context, communityID string) {
	if err := s.Cache.Invalidate(ctx, documentsKey(communityID)); err != nil {
		log.Warn().Err(err).Str("community_id", communityID).Msg("documents: cache invalidation failed")
	}
}
