package sharing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"commenergy-backend/internal/domain"
	"commenergy-backend/internal/infrastructure/cache"
	"commenergy-backend/internal/infrastructure/commenergyapi"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

var (
	ErrNothingToCommit = errors.New("No changes to commit")
	ErrCommitNotOwned  = errors.New("Only the author of a commit can retry it")
	ErrRetryStale      = errors.New("The draft changed since this commit was sent, commit the draft again")
)

// Draft sources accepted by Rows.
const (
	SourceDraft    = "draft"
	SourceOriginal = "original"
)

// RemoteAPI is the part of the remote API the sharing workflow needs.
type RemoteAPI interface {
	ListCommunityContracts(ctx context.Context, token, communityID string) ([]domain.CommunityContract, error)
	UpdateSharing(ctx context.Context, token string, in commenergyapi.SharingUpdate) error
	UpdateCommunityContractFee(ctx context.Context, token, communityContractID string, in commenergyapi.FeeUpdate) error
}

// Service runs the draft / diff / commit workflow of sharing coefficients.
type Service struct {
	API         RemoteAPI
	Cache       *cache.Cache
	Drafts      DraftRepository
	Commits     CommitRepository // optional; without it commits are not auditable
	Concurrency int
	Now         func() time.Time
	NewID       func() string
}

// CommitResult is the outcome of a commit or a retry.
type CommitResult struct {
	Commit *domain.SharingCommit `json:"commit"`
	Draft  *DraftView            `json:"draft,omitempty"`
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
	return NewV7()
}

// NewV7 returns a time-ordered UUID string.
func NewV7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func (s *Service) concurrency() int {
	if s.Concurrency < 1 {
		return 1
	}
	return s.Concurrency
}

// InvalidationKeys are the cache entries stale after a sharing mutation.
func InvalidationKeys(communityID string) []cache.Key {
	return []cache.Key{
		{Entity: cache.EntityCommunityContracts, ID: communityID},
		{Entity: cache.EntityCommunity, ID: communityID},
	}
}

// Original returns the server-truth community contract list (read-through cache).
func (s *Service) Original(ctx context.Context, sess domain.Session, communityID string) ([]domain.CommunityContract, error) {
	return cache.GetOrLoad(ctx, s.Cache, sess.User.ID,
		cache.Key{Entity: cache.EntityCommunityContracts, ID: communityID},
		func(ctx context.Context) ([]domain.CommunityContract, error) {
			return s.API.ListCommunityContracts(ctx, sess.Token, communityID)
		})
}

// current loads the stored draft, replacing it wholesale when the original
// changed since it was seeded.
func (s *Service) current(ctx context.Context, sess domain.Session, communityID string, original []domain.CommunityContract) (*Draft, error) {
	d, err := s.Drafts.Load(ctx, sess.ID, communityID)
	if err != nil {
		return nil, err
	}
	if d == nil || d.BaseFingerprint != Fingerprint(original) {
		if d != nil {
			log.Info().Str("community_id", communityID).Msg("sharing: original changed, draft resynchronized")
		}
		d = NewDraft(communityID, original)
	}
	return d, nil
}

// Rows returns the draft or the original rows of a community.
func (s *Service) Rows(ctx context.Context, sess domain.Session, communityID, source string) ([]domain.CommunityContract, error) {
	original, err := s.Original(ctx, sess, communityID)
	if err != nil {
		return nil, err
	}
	if source == SourceOriginal {
		return original, nil
	}
	d, err := s.current(ctx, sess, communityID, original)
	if err != nil {
		return nil, err
	}
	return d.Rows, nil
}

// Draft returns the current draft of a community with its diff.
func (s *Service) Draft(ctx context.Context, sess domain.Session, communityID string) (*DraftView, error) {
	original, err := s.Original(ctx, sess, communityID)
	if err != nil {
		return nil, err
	}
	d, err := s.current(ctx, sess, communityID, original)
	if err != nil {
		return nil, err
	}
	return BuildView(d, original), nil
}

func (s *Service) mutate(ctx context.Context, sess domain.Session, communityID string, fn func(d *Draft) error) (*DraftView, error) {
	original, err := s.Original(ctx, sess, communityID)
	if err != nil {
		return nil, err
	}
	d, err := s.current(ctx, sess, communityID, original)
	if err != nil {
		return nil, err
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	if err := s.Drafts.Save(ctx, sess.ID, d); err != nil {
		return nil, err
	}
	return BuildView(d, original), nil
}

func (s *Service) EditSharing(ctx context.Context, sess domain.Session, communityID, ccID string, share float64) (*DraftView, error) {
	return s.mutate(ctx, sess, communityID, func(d *Draft) error {
		return d.EditSharing(ccID, share, s.now(), s.newID)
	})
}

func (s *Service) EditFee(ctx context.Context, sess domain.Session, communityID, ccID string, fee *float64, period *domain.FeePeriodType) (*DraftView, error) {
	return s.mutate(ctx, sess, communityID, func(d *Draft) error {
		return d.EditFee(ccID, fee, period, s.now())
	})
}

// Reset discards the stored draft.
func (s *Service) Reset(ctx context.Context, sess domain.Session, communityID string) (*DraftView, error) {
	if err := s.Drafts.Delete(ctx, sess.ID, communityID); err != nil {
		return nil, err
	}
	return s.Draft(ctx, sess, communityID)
}

// Commit sends one update per changed row, all concurrently, and waits for
// every request. A failed row neither cancels nor rolls back the others; the
// per-row outcome is recorded and failed rows stay in the draft.
func (s *Service) Commit(ctx context.Context, sess domain.Session, communityID string) (*CommitResult, error) {
	original, err := s.Original(ctx, sess, communityID)
	if err != nil {
		return nil, err
	}
	d, err := s.current(ctx, sess, communityID, original)
	if err != nil {
		return nil, err
	}
	changes := d.Changes(original)
	if len(changes) == 0 {
		return nil, ErrNothingToCommit
	}
	rows, err := commitRows(changes)
	if err != nil {
		return nil, err
	}

	commit := &domain.SharingCommit{
		CommunityID: communityID,
		UserID:      sess.User.ID,
		Status:      domain.CommitPending,
		Total:       len(rows),
		Rows:        rows,
	}
	if s.Commits != nil {
		if err := s.Commits.Create(ctx, commit); err != nil {
			return nil, err
		}
	} else {
		commit.CommitID = uuid.New()
	}

	all := make([]int, len(commit.Rows))
	for i := range all {
		all[i] = i
	}
	return s.run(ctx, sess, communityID, commit, all, d)
}

// Retry re-sends the failed rows of a previous commit. Only the commit's author
// may retry, and only while the draft still holds the values that failed.
func (s *Service) Retry(ctx context.Context, sess domain.Session, communityID string, commitID uuid.UUID) (*CommitResult, error) {
	commit, err := s.GetCommit(ctx, communityID, commitID)
	if err != nil {
		return nil, err
	}
	if commit.UserID != sess.User.ID {
		return nil, ErrCommitNotOwned
	}
	var failed []int
	for i := range commit.Rows {
		if commit.Rows[i].Status == domain.RowFailed {
			failed = append(failed, i)
		}
	}
	if len(failed) == 0 {
		return &CommitResult{Commit: commit}, nil
	}

	original, err := s.Original(ctx, sess, communityID)
	if err != nil {
		return nil, err
	}
	d, err := s.current(ctx, sess, communityID, original)
	if err != nil {
		return nil, err
	}
	pending, err := commitRows(d.Changes(original))
	if err != nil {
		return nil, err
	}
	for _, i := range failed {
		if !stillPending(pending, commit.Rows[i]) {
			log.Info().
				Str("commit_id", commit.CommitID.String()).
				Str("community_contract_id", commit.Rows[i].CommunityContractID).
				Msg("sharing: retry refused, draft edited since commit")
			return nil, ErrRetryStale
		}
	}
	return s.run(ctx, sess, communityID, commit, failed, d)
}

// stillPending reports whether the draft would send the same request for row today.
func stillPending(pending []domain.SharingCommitRow, row domain.SharingCommitRow) bool {
	for _, p := range pending {
		if p.CommunityContractID == row.CommunityContractID && p.Kind == row.Kind {
			return samePayload(p.Payload, row.Payload)
		}
	}
	return false
}

func samePayload(a, b []byte) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func (s *Service) GetCommit(ctx context.Context, communityID string, commitID uuid.UUID) (*domain.SharingCommit, error) {
	if s.Commits == nil {
		return nil, ErrCommitNotFound
	}
	return s.Commits.Get(ctx, communityID, commitID)
}

func (s *Service) run(ctx context.Context, sess domain.Session, communityID string, commit *domain.SharingCommit, indexes []int, prev *Draft) (*CommitResult, error) {
	errs := s.send(ctx, sess.Token, commit.Rows, indexes)
	unauthorized := false
	for _, err := range errs {
		if errors.Is(err, commenergyapi.ErrUnauthorized) {
			unauthorized = true
		}
	}
	finalize(commit)
	if s.Commits != nil {
		if err := s.Commits.Update(ctx, commit); err != nil {
			log.Error().Err(err).Str("commit_id", commit.CommitID.String()).Msg("sharing: failed to record commit outcome")
		}
	}
	log.Info().
		Str("community_id", communityID).
		Str("commit_id", commit.CommitID.String()).
		Int("sent", len(indexes)).
		Int("failed", commit.Failed).
		Str("status", commit.Status).
		Msg("sharing: commit finished")

	if unauthorized {
		return &CommitResult{Commit: commit}, commenergyapi.ErrUnauthorized
	}
	if err := s.Cache.Invalidate(ctx, InvalidationKeys(communityID)...); err != nil {
		log.Warn().Err(err).Str("community_id", communityID).Msg("sharing: cache invalidation failed")
	}
	view := s.rebase(ctx, sess, communityID, prev, commit.Rows)
	return &CommitResult{Commit: commit, Draft: view}, nil
}

// send issues the requests of the selected rows concurrently and waits for all.
func (s *Service) send(ctx context.Context, token string, rows []domain.SharingCommitRow, indexes []int) []error {
	errs := make([]error, len(indexes))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency())
	for n, i := range indexes {
		n, row := n, &rows[i]
		g.Go(func() error {
			err := s.apply(ctx, token, row)
			row.Attempts++
			if err != nil {
				row.Status = domain.RowFailed
				row.Error = err.Error()
				errs[n] = err
				log.Warn().Err(err).Str("community_contract_id", row.CommunityContractID).Str("kind", row.Kind).Msg("sharing: row update failed")
				return nil
			}
			row.Status = domain.RowSucceeded
			row.Error = ""
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func (s *Service) apply(ctx context.Context, token string, row *domain.SharingCommitRow) error {
	switch row.Kind {
	case domain.RowKindSharing:
		var in commenergyapi.SharingUpdate
		if err := json.Unmarshal(row.Payload, &in); err != nil {
			return fmt.Errorf("decode sharing payload: %w", err)
		}
		return s.API.UpdateSharing(ctx, token, in)
	case domain.RowKindFee:
		var in commenergyapi.FeeUpdate
		if err := json.Unmarshal(row.Payload, &in); err != nil {
			return fmt.Errorf("decode fee payload: %w", err)
		}
		return s.API.UpdateCommunityContractFee(ctx, token, row.CommunityContractID, in)
	}
	return fmt.Errorf("unknown row kind %q", row.Kind)
}

// rebase reseeds the draft from the refreshed original and puts back the
// edits of rows that failed.
func (s *Service) rebase(ctx context.Context, sess domain.Session, communityID string, prev *Draft, rows []domain.SharingCommitRow) *DraftView {
	fresh, err := s.Original(ctx, sess, communityID)
	if err != nil {
		log.Warn().Err(err).Str("community_id", communityID).Msg("sharing: refetch after commit failed")
		_ = s.Drafts.Delete(ctx, sess.ID, communityID)
		return nil
	}
	d := NewDraft(communityID, fresh)
	if prev != nil {
		d.Reapply(pendingChanges(prev, rows))
	}
	d.UpdatedAt = s.now()
	if err := s.Drafts.Save(ctx, sess.ID, d); err != nil {
		log.Warn().Err(err).Str("community_id", communityID).Msg("sharing: saving rebased draft failed")
	}
	return BuildView(d, fresh)
}

func pendingChanges(prev *Draft, rows []domain.SharingCommitRow) []Change {
	byID := make(map[string]*Change)
	var order []string
	for _, r := range rows {
		if r.Status != domain.RowFailed {
			continue
		}
		src := findRow(prev.Rows, r.CommunityContractID)
		if src == nil {
			continue
		}
		ch, ok := byID[r.CommunityContractID]
		if !ok {
			ch = &Change{Row: *src}
			byID[r.CommunityContractID] = ch
			order = append(order, r.CommunityContractID)
		}
		switch r.Kind {
		case domain.RowKindSharing:
			ch.Share = true
		case domain.RowKindFee:
			ch.Fee = true
		}
	}
	out := make([]Change, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out
}

// commitRows maps changes to update payloads: {id, share, communityContractId,
// versionId} for shares, the fee fields for fees.
func commitRows(changes []Change) ([]domain.SharingCommitRow, error) {
	var rows []domain.SharingCommitRow
	for _, ch := range changes {
		if ch.Share {
			sh := ch.Row.Sharing
			b, err := json.Marshal(commenergyapi.SharingUpdate{
				ID:                  sh.ID,
				Share:               *sh.Share,
				CommunityContractID: ch.Row.ID,
				VersionID:           sh.VersionID,
			})
			if err != nil {
				return nil, err
			}
			rows = append(rows, domain.SharingCommitRow{
				Position:            len(rows),
				CommunityContractID: ch.Row.ID,
				Kind:                domain.RowKindSharing,
				Payload:             datatypes.JSON(b),
				Status:              domain.RowPending,
			})
		}
		if ch.Fee {
			b, err := json.Marshal(commenergyapi.FeeUpdate{
				CommunityFee:           ch.Row.CommunityFee,
				CommunityFeePeriodType: ch.Row.CommunityFeePeriodType,
			})
			if err != nil {
				return nil, err
			}
			rows = append(rows, domain.SharingCommitRow{
				Position:            len(rows),
				CommunityContractID: ch.Row.ID,
				Kind:                domain.RowKindFee,
				Payload:             datatypes.JSON(b),
				Status:              domain.RowPending,
			})
		}
	}
	return rows, nil
}

func finalize(c *domain.SharingCommit) {
	c.Failed = 0
	for _, r := range c.Rows {
		if r.Status != domain.RowSucceeded {
			c.Failed++
		}
	}
	switch {
	case c.Failed == 0:
		c.Status = domain.CommitSucceeded
	case c.Failed == len(c.Rows):
		c.Status = domain.CommitFailed
	default:
		c.Status = domain.CommitPartial
	}
}
