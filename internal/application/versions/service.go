package versions

import (
	"context"
	"errors"
	"strings"
	"time"

	"commenergy-backend/internal/application/sharing"
	"commenergy-backend/internal/domain"
	"commenergy-backend/internal/infrastructure/cache"

	"github.com/rs/zerolog/log"
)

const maxNameLength = 100

var (
	ErrNameRequired     = errors.New("Version name is required")
	ErrNameTooLong      = errors.New("Version name must be at most 100 characters")
	ErrNoSharings       = errors.New("A version needs at least one sharing tied to a community contract")
	ErrVersionIDMissing = errors.New("Version id is required")
)

// RemoteAPI is the part of the remote API the version lifecycle needs.
type RemoteAPI interface {
	ListSharingVersions(ctx context.Context, token, communityID string) ([]domain.SharingVersion, error)
	CreateSharingVersion(ctx context.Context, token string, in domain.SharingVersion) (*domain.SharingVersion, error)
	SetProductionVersion(ctx context.Context, token, versionID string) error
	DeleteSharingVersion(ctx context.Context, token, versionID string) error
}

// DraftRows gives access to the current draft of a community.
type DraftRows interface {
	Rows(ctx context.Context, sess domain.Session, communityID, source string) ([]domain.CommunityContract, error)
}

// ShareInput is one allocation of a version being created.
type ShareInput struct {
	CommunityContractID string  `json:"communityContractId"`
	Share               float64 `json:"share" validate:"gte=0,lte=1"`
}

// CreateInput describes a new version. When Sharings is nil the shares of the
// caller's current draft are used.
type CreateInput struct {
	Name                string       `json:"name" validate:"required,max=100"`
	IsProductionVersion bool         `json:"isProductionVersion"`
	Sharings            []ShareInput `json:"sharings" validate:"omitempty,dive"`
}

// Service creates, promotes and deletes sharing versions. Versions are
// snapshots: a change of shares is always a new version.
type Service struct {
	API    RemoteAPI
	Cache  *cache.Cache
	Drafts DraftRows
	Now    func() time.Time
	NewID  func() string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return sharing.NewV7()
}

// InvalidationKeys are the cache entries stale after a version mutation.
func InvalidationKeys(communityID string) []cache.Key {
	return []cache.Key{
		{Entity: cache.EntitySharingVersions, ID: communityID},
		{Entity: cache.EntityCommunityContracts, ID: communityID},
	}
}

func (s *Service) List(ctx context.Context, sess domain.Session, communityID string) ([]domain.SharingVersion, error) {
	return cache.GetOrLoad(ctx, s.Cache, sess.User.ID,
		cache.Key{Entity: cache.EntitySharingVersions, ID: communityID},
		func(ctx context.Context) ([]domain.SharingVersion, error) {
			return s.API.ListSharingVersions(ctx, sess.Token, communityID)
		})
}

// Create submits a brand-new version with fresh sharing ids in one request.
func (s *Service) Create(ctx context.Context, sess domain.Session, communityID string, in CreateInput) (*domain.SharingVersion, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if len([]rune(name)) > maxNameLength {
		return nil, ErrNameTooLong
	}

	shares := in.Sharings
	if shares == nil && s.Drafts != nil {
		rows, err := s.Drafts.Rows(ctx, sess, communityID, sharing.SourceDraft)
		if err != nil {
			return nil, err
		}
		shares = FromRows(rows)
	}

	now := s.now()
	v := BuildVersion(s.newID(), communityID, name, in.IsProductionVersion, shares, now, s.newID)
	if len(v.Sharings) == 0 {
		return nil, ErrNoSharings
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	created, err := s.API.CreateSharingVersion(ctx, sess.Token, v)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, communityID)
	log.Info().
		Str("community_id", communityID).
		Str("version_id", created.ID).
		Int("sharings", len(created.Sharings)).
		Msg("versions: created")
	return created, nil
}

// BuildVersion assembles a version snapshot. Shares without a community
// contract are dropped; every sharing gets a new id pointing at versionID.
func BuildVersion(versionID, communityID, name string, isProduction bool, shares []ShareInput, now time.Time, newID func() string) domain.SharingVersion {
	v := domain.SharingVersion{
		ID:                  versionID,
		CommunityID:         communityID,
		Name:                name,
		IsProductionVersion: isProduction,
		Sharings:            make([]domain.Sharing, 0, len(shares)),
		CreatedDate:         now,
		UpdatedDate:         now,
	}
	for _, sh := range shares {
		if sh.CommunityContractID == "" {
			continue
		}
		share := sh.Share
		v.Sharings = append(v.Sharings, domain.Sharing{
			ID:                  newID(),
			CommunityContractID: sh.CommunityContractID,
			Share:               &share,
			VersionID:           versionID,
			CreatedDate:         now,
			UpdatedDate:         now,
		})
	}
	return v
}

// FromRows collects the shares of a contract list.
func FromRows(rows []domain.CommunityContract) []ShareInput {
	out := make([]ShareInput, 0, len(rows))
	for _, row := range rows {
		if row.Sharing == nil || row.Sharing.Share == nil {
			continue
		}
		out = append(out, ShareInput{
			CommunityContractID: row.Sharing.CommunityContractID,
			Share:               *row.Sharing.Share,
		})
	}
	return out
}

// SetProduction marks a version as the production one. Demoting the previous
// production version is left to the remote API.
func (s *Service) SetProduction(ctx context.Context, sess domain.Session, communityID, versionID string) error {
	if versionID == "" {
		return ErrVersionIDMissing
	}
	if err := s.API.SetProductionVersion(ctx, sess.Token, versionID); err != nil {
		return err
	}
	s.invalidate(ctx, communityID)
	log.Info().Str("community_id", communityID).Str("version_id", versionID).Msg("versions: set as production")
	return nil
}

func (s *Service) Delete(ctx context.Context, sess domain.Session, communityID, versionID string) error {
	if versionID == "" {
		return ErrVersionIDMissing
	}
	if err := s.API.DeleteSharingVersion(ctx, sess.Token, versionID); err != nil {
		return err
	}
	s.invalidate(ctx, communityID)
	log.Info().Str("community_id", communityID).Str("version_id", versionID).Msg("versions: deleted")
	return nil
}

func (s *Service) invalidate(ctx context.Context, communityID string) {
	if err := s.Cache.Invalidate(ctx, InvalidationKeys(communityID)...); err != nil {
		log.Warn().Err(err).Str("community_id", communityID).Msg("versions: cache invalidation failed")
	}
}
