package commenergyapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"commenergy-backend/internal/domain"
)

// LoginResult is the answer of POST /auth/login.
type LoginResult struct {
	Token string          `json:"token"`
	User  domain.AuthUser `json:"user"`
}

func (r *LoginResult) Validate() error {
	if r.Token == "" {
		return errors.New("token is required")
	}
	if r.User.ID == "" {
		return errors.New("user id is required")
	}
	return nil
}

// Login exchanges credentials for a bearer token. A 401 here means bad
// credentials, not an expired session.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	in := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", in, &out, "login"); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, &DeserializationError{Entity: "login", Err: errors.New("empty body")}
	}
	return &out, nil
}

// ForgotPassword asks the remote API to send a password reset email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	err := c.doJSON(ctx, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": email}, nil, "forgot password")
	if errors.Is(err, ErrNotFound) {
		return ErrEmailNotFound
	}
	return err
}

func (c *Client) ListCommunities(ctx context.Context, token string) ([]domain.Community, error) {
	var out []domain.Community
	if err := c.doJSON(ctx, http.MethodGet, "/communities", token, nil, &out, "communities"); err != nil {
		return nil, err
	}
	return out, validateEach("communities", out)
}

func (c *Client) GetCommunity(ctx context.Context, token, communityID string) (*domain.Community, error) {
	var out domain.Community
	if err := c.doJSON(ctx, http.MethodGet, "/communities/"+url.PathEscape(communityID), token, nil, &out, "community"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCommunityContracts(ctx context.Context, token, communityID string) ([]domain.CommunityContract, error) {
	var out []domain.CommunityContract
	path := "/communities/" + url.PathEscape(communityID) + "/community-contracts"
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out, "community contracts"); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.CommunityContract{}
	}
	return out, validateEach("community contracts", out)
}

// SharingUpdate is the payload of one row of a bulk sharing update.
type SharingUpdate struct {
	ID                  string  `json:"id"`
	Share               float64 `json:"share"`
	CommunityContractID string  `json:"communityContractId"`
	VersionID           string  `json:"versionId"`
}

func (c *Client) UpdateSharing(ctx context.Context, token string, in SharingUpdate) error {
	return c.doJSON(ctx, http.MethodPut, "/sharings/"+url.PathEscape(in.ID), token, in, nil, "sharing")
}

// FeeUpdate carries the community fee fields of a community contract.
type FeeUpdate struct {
	CommunityFee           *float64              `json:"communityFee"`
	CommunityFeePeriodType *domain.FeePeriodType `json:"communityFeePeriodType"`
}

func (c *Client) UpdateCommunityContractFee(ctx context.Context, token, communityContractID string, in FeeUpdate) error {
	return c.doJSON(ctx, http.MethodPatch, "/community-contracts/"+url.PathEscape(communityContractID), token, in, nil, "community contract")
}

func (c *Client) ListSharingVersions(ctx context.Context, token, communityID string) ([]domain.SharingVersion, error) {
	var out []domain.SharingVersion
	path := "/communities/" + url.PathEscape(communityID) + "/sharing-versions"
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &out, "sharing versions"); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.SharingVersion{}
	}
	return out, validateEach("sharing versions", out)
}

// CreateSharingVersion submits a full version with its sharings in one request.
// When the remote API answers without a body the submitted version is returned.
func (c *Client) CreateSharingVersion(ctx context.Context, token string, in domain.SharingVersion) (*domain.SharingVersion, error) {
	out := in
	if err := c.doJSON(ctx, http.MethodPost, "/sharing-versions", token, in, &out, "sharing version"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetProductionVersion(ctx context.Context, token, versionID string) error {
	return c.doJSON(ctx, http.MethodPatch, "/sharing-versions/"+url.PathEscape(versionID)+"/production", token, nil, nil, "sharing version")
}

func (c *Client) DeleteSharingVersion(ctx context.Context, token, versionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/sharing-versions/"+url.PathEscape(versionID), token, nil, nil, "sharing version")
}

// GetTermsAgreement returns nil without error when the agreement does not exist.
func (c *Client) GetTermsAgreement(ctx context.Context, token, id string) (*domain.TermsAgreement, error) {
	var out domain.TermsAgreement
	err := c.doJSON(ctx, http.MethodGet, "/terms-agreements/"+url.PathEscape(id), token, nil, &out, "terms agreement")
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
