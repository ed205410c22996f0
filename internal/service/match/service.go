package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/bvilove/datebot/internal/app"
	"github.com/bvilove/datebot/internal/cache"
	"github.com/bvilove/datebot/internal/db"
	"github.com/bvilove/datebot/internal/logger"
	"github.com/bvilove/datebot/internal/matching"
	"github.com/bvilove/datebot/internal/repository"
)

// ErrMatchInProgress is returned while another RequestMatch for the same
// requester holds the grace lock. Callers may retry.
var ErrMatchInProgress = fmt.Errorf("match already in progress: %w", cache.ErrLockHeld)

var errCandidateMismatch = errors.New("selected candidate rejected by criteria")

const (
	defaultPageSize = 5
	maxPageSize     = 50
)

// Status is the kind of outcome of RequestMatch.
type Status string

const (
	StatusFound         Status = "found"
	StatusNoneAvailable Status = "none_available"
)

// Outcome is the result of one RequestMatch. Dating and Partner are set only
// when Status is StatusFound. Resumed marks an existing undecided pairing
// returned instead of a new one.
type Outcome struct {
	Status  Status
	Dating  *db.Dating
	Partner *db.User
	Resumed bool
}

// Profile is a user with their media.
type Profile struct {
	User   *db.User
	Images []db.Image
}

// Service is the match selector: it finds partners, records reactions and
// serves the profile store to the conversation layer.
type Service struct {
	appCtx  *app.AppContext
	users   *repository.UserRepository
	datings *repository.DatingRepository
	images  *repository.ImageRepository
}

// NewService creates a new match service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		users:   repository.NewUserRepository(appCtx.DB),
		datings: repository.NewDatingRepository(appCtx.DB),
		images:  repository.NewImageRepository(appCtx.DB),
	}
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, s.appCtx.Logger)
}

func (s *Service) windows() matching.Windows {
	return matching.Windows{
		Activity: s.appCtx.Config.Match.ActivityWindow,
		Cooldown: s.appCtx.Config.Match.RepeatCooldown,
	}
}

// RequestMatch finds the next partner for requesterID.
//
// Behavior:
//   - Fails with repository.ErrUserNotFound for an unknown requester.
//   - Refreshes the requester's last activity; a failure there is only logged.
//   - Returns the requester's undecided pairing, if any, with Resumed set.
//   - Otherwise picks a random candidate passing every matching filter and
//     records the new Dating in the same transaction.
//   - No candidate is StatusNoneAvailable, not an error.
//
// Concurrent calls for one requester are serialized by a short Redis lock
// (ErrMatchInProgress) and by locking the requester row in the transaction.
func (s *Service) RequestMatch(ctx context.Context, requesterID int64) (*Outcome, error) {
	log := s.log(ctx).With("requester", requesterID)
	log.Debug("RequestMatch called")

	if _, err := s.users.Get(ctx, requesterID); err != nil {
		return nil, err
	}

	now := s.appCtx.Now()
	if err := s.users.TouchActivity(ctx, requesterID, now); err != nil {
		log.Warn("failed to refresh activity", "err", err)
	}

	// fast path: undecided pairing, no lock needed
	pending, err := s.resume(ctx, s.users, s.datings, requesterID)
	if err != nil || pending != nil {
		return pending, err
	}

	rc := s.appCtx.RedisCache
	release, err := rc.AcquireLock(ctx, rc.KeyForMatchLock(requesterID), s.appCtx.Config.Match.GraceWindow)
	switch {
	case errors.Is(err, cache.ErrLockHeld):
		log.Debug("RequestMatch already running")
		return nil, ErrMatchInProgress
	case err != nil:
		// the transaction below stays correct without the lock
		log.Warn("failed to take match lock", "err", err)
	default:
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release match lock", "err", err)
			}
		}()
	}

	var out *Outcome
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, datings := s.users.WithTx(tx), s.datings.WithTx(tx)

		requester, err := users.GetForUpdate(ctx, requesterID)
		if err != nil {
			return err
		}

		// re-check under the row lock
		if out, err = s.resume(ctx, users, datings, requesterID); err != nil || out != nil {
			return err
		}

		crit, err := matching.Build(requester, now, s.windows())
		if err != nil {
			return err
		}

		partner, err := datings.FindCandidate(ctx, crit)
		if err != nil {
			return err
		}
		if partner == nil {
			out = &Outcome{Status: StatusNoneAvailable}
			return nil
		}

		// the query and the in-memory predicates must agree on the pick
		last, err := datings.LastPairedAt(ctx, requesterID, partner.ID)
		if err != nil {
			return err
		}
		if rejected := crit.Rejections(matching.Candidate{User: partner, LastPairedAt: last}); len(rejected) > 0 {
			return fmt.Errorf("%w: user %d fails %v", errCandidateMismatch, partner.ID, rejected)
		}

		dating, err := datings.Create(ctx, requesterID, partner.ID, now)
		if err != nil {
			return err
		}
		out = &Outcome{Status: StatusFound, Dating: dating, Partner: partner}
		return nil
	})
	if err != nil {
		log.Error("RequestMatch failed", "err", err)
		return nil, err
	}

	log.Debug("RequestMatch result", "status", out.Status, "resumed", out.Resumed)
	return out, nil
}

// resume returns the requester's undecided pairing as an Outcome, or nil.
func (s *Service) resume(
	ctx context.Context,
	users *repository.UserRepository,
	datings *repository.DatingRepository,
	requesterID int64,
) (*Outcome, error) {
	pending, err := datings.FindPending(ctx, requesterID)
	if err != nil || pending == nil {
		return nil, err
	}
	partner, err := users.Get(ctx, pending.PartnerID)
	if err != nil {
		return nil, err
	}
	return &Outcome{Status: StatusFound, Dating: pending, Partner: partner, Resumed: true}, nil
}

// SetInitiatorReaction records the initiator's like or dislike. A repeated
// call overwrites the earlier reaction.
func (s *Service) SetInitiatorReaction(ctx context.Context, datingID int64, liked bool) (*db.Dating, error) {
	s.log(ctx).Debug("SetInitiatorReaction called", "dating", datingID, "liked", liked)

	d, err := s.datings.SetInitiatorReaction(ctx, datingID, liked)
	if err != nil {
		return nil, err
	}
	s.invalidateLikes(ctx, d.PartnerID)
	return d, nil
}

// SetPartnerReaction records the partner's answer. Callers are expected to
// ask only after the initiator liked; this is not enforced.
func (s *Service) SetPartnerReaction(ctx context.Context, datingID int64, liked bool) (*db.Dating, error) {
	s.log(ctx).Debug("SetPartnerReaction called", "dating", datingID, "liked", liked)

	d, err := s.datings.SetPartnerReaction(ctx, datingID, liked)
	if err != nil {
		return nil, err
	}
	s.invalidateLikes(ctx, d.PartnerID)
	return d, nil
}

// RecordInitiatorMessage stores the id of the message that showed the
// partner to the initiator.
func (s *Service) RecordInitiatorMessage(ctx context.Context, datingID, messageID int64) error {
	return s.datings.SetInitiatorMessage(ctx, datingID, messageID)
}

func (s *Service) invalidateLikes(ctx context.Context, userID int64) {
	if err := s.appCtx.RedisCache.InvalidateIncomingLikes(ctx, userID); err != nil {
		s.log(ctx).Warn("failed to invalidate like counter", "user", userID, "err", err)
	}
}

// CountIncomingLikes returns how many likes userID has not answered yet.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:incoming:userID).
//  2. On cache miss or Redis failure, falls back to DB via repository.
//  3. On DB fetch, updates Redis with LIKES_COUNT_TTL.
func (s *Service) CountIncomingLikes(ctx context.Context, userID int64) (int64, error) {
	log := s.log(ctx)
	ttl := s.appCtx.Config.Match.LikesCountTTL

	n, ok, err := s.appCtx.RedisCache.GetIncomingLikes(ctx, userID, ttl)
	if err != nil {
		log.Warn("like counter cache read failed", "user", userID, "err", err)
	}
	if ok {
		return n, nil
	}

	// fallback: DB
	n, err = s.datings.CountIncomingLikes(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.appCtx.RedisCache.SetIncomingLikes(ctx, userID, n, ttl); err != nil {
		log.Warn("like counter cache write failed", "user", userID, "err", err)
	}
	return n, nil
}

// ListIncomingLikes pages through likes userID has not answered yet,
// newest first.
func (s *Service) ListIncomingLikes(ctx context.Context, userID int64, token *string, limit int) ([]db.Dating, *string, error) {
	return s.datings.ListIncomingLikes(ctx, userID, token, pageSize(limit))
}

// ListMutual pages through mutual matches of userID on either side.
func (s *Service) ListMutual(ctx context.Context, userID int64, token *string, limit int) ([]db.Dating, *string, error) {
	return s.datings.ListMutual(ctx, userID, token, pageSize(limit))
}

func pageSize(limit int) int {
	switch {
	case limit <= 0:
		return defaultPageSize
	case limit > maxPageSize:
		return maxPageSize
	}
	return limit
}

// GetProfile loads a user with their media.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	images, err := s.images.ListImages(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: u, Images: images}, nil
}

// UpsertProfile creates or patches a profile.
func (s *Service) UpsertProfile(ctx context.Context, p repository.ProfilePatch) (*db.User, error) {
	s.log(ctx).Debug("UpsertProfile called", "user", p.ID)
	return s.users.Upsert(ctx, p, s.appCtx.Now())
}

// ReplaceImages swaps the user's media set.
func (s *Service) ReplaceImages(ctx context.Context, userID int64, refs []repository.ImageRef) ([]db.Image, error) {
	return s.images.ReplaceImages(ctx, userID, refs)
}

// Deactivate hides the user from matching, e.g. after they blocked the bot.
func (s *Service) Deactivate(ctx context.Context, userID int64) error {
	s.log(ctx).Info("deactivating user", "user", userID)
	return s.users.Deactivate(ctx, userID)
}
