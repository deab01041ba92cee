package communities

import (
	"context"

	"commenergy-backend/internal/domain"
	"commenergy-backend/internal/infrastructure/cache"
)

// RemoteAPI is the read side of the remote API for communities.
type RemoteAPI interface {
	ListCommunities(ctx context.Context, token string) ([]domain.Community, error)
	GetCommunity(ctx context.Context, token, communityID string) (*domain.Community, error)
	ListCommunityContracts(ctx context.Context, token, communityID string) ([]domain.CommunityContract, error)
	GetTermsAgreement(ctx context.Context, token, id string) (*domain.TermsAgreement, error)
}

// Service serves cached community reads scoped to the calling user.
type Service struct {
	API   RemoteAPI
	Cache *cache.Cache
}

func (s *Service) List(ctx context.Context, sess domain.Session) ([]domain.Community, error) {
	return cache.GetOrLoad(ctx, s.Cache, sess.User.ID,
		cache.Key{Entity: cache.EntityCommunities, ID: "all"},
		func(ctx context.Context) ([]domain.Community, error) {
			return s.API.ListCommunities(ctx, sess.Token)
		})
}

func (s *Service) Get(ctx context.Context, sess domain.Session, communityID string) (*domain.Community, error) {
	return cache.GetOrLoad(ctx, s.Cache, sess.User.ID,
		cache.Key{Entity: cache.EntityCommunity, ID: communityID},
		func(ctx context.Context) (*domain.Community, error) {
			return s.API.GetCommunity(ctx, sess.Token, communityID)
		})
}

func (s *Service) Contracts(ctx context.Context, sess domain.Session, communityID string) ([]domain.CommunityContract, error) {
	return cache.GetOrLoad(ctx, s.Cache, sess.User.ID,
		cache.Key{Entity: cache.EntityCommunityContracts, ID: communityID},
		func(ctx context.Context) ([]domain.CommunityContract, error) {
			return s.API.ListCommunityContracts(ctx, sess.Token, communityID)
		})
}

// TermsAgreement returns nil when the agreement does not exist.
func (s *Service) TermsAgreement(ctx context.Context, sess domain.Session, id string) (*domain.TermsAgreement, error) {
	if id == "" {
		return nil, nil
	}
	return s.API.GetTermsAgreement(ctx, sess.Token, id)
}
