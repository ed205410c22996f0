package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bvilove/datebot/internal/db"
	"github.com/bvilove/datebot/internal/matching"
	"github.com/bvilove/datebot/internal/utils/pagination"
)

// DatingRepository provides data access methods for the Dating model.
// It encapsulates all queries related to pairings and their reactions.
type DatingRepository struct {
	db *gorm.DB
}

// NewDatingRepository creates a new repository bound to the given DB connection.
func NewDatingRepository(database *gorm.DB) *DatingRepository {
	return &DatingRepository{db: database}
}

// WithTx returns a copy bound to tx.
func (r *DatingRepository) WithTx(tx *gorm.DB) *DatingRepository {
	return &DatingRepository{db: tx}
}

// Get loads a dating by id.
func (r *DatingRepository) Get(ctx context.Context, id int64) (*db.Dating, error) {
	var d db.Dating
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrDatingNotFound, id)
		}
		return nil, err
	}
	return &d, nil
}

// FindPending returns the newest dating the user initiated and has not
// reacted to yet, or nil when there is none.
func (r *DatingRepository) FindPending(ctx context.Context, initiatorID int64) (*db.Dating, error) {
	var datings []db.Dating
	err := r.db.WithContext(ctx).
		Where("initiator_id = ? AND initiator_reaction IS NULL", initiatorID).
		Order("time DESC, id DESC").
		Limit(1).
		Find(&datings).Error
	if err != nil {
		return nil, err
	}
	if len(datings) == 0 {
		return nil, nil
	}
	return &datings[0], nil
}

// FindCandidate picks one user satisfying crit uniformly at random, or nil
// when the pool is empty.
func (r *DatingRepository) FindCandidate(ctx context.Context, crit *matching.Criteria) (*db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Table("users u").
		Select("u.*").
		Scopes(crit.Scope).
		Order(db.RandomOrder(r.db)).
		Limit(1).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// Create inserts a new pairing made at the given time, stored as UTC
// milliseconds like every other timestamp.
func (r *DatingRepository) Create(ctx context.Context, initiatorID, partnerID int64, at time.Time) (*db.Dating, error) {
	d := db.Dating{
		InitiatorID: initiatorID,
		PartnerID:   partnerID,
		Time:        at.UTC().Truncate(time.Millisecond),
	}
	if err := r.db.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// SetInitiatorReaction records the initiator's like/dislike.
// A second call overwrites the first.
func (r *DatingRepository) SetInitiatorReaction(ctx context.Context, id int64, liked bool) (*db.Dating, error) {
	return r.update(ctx, id, "initiator_reaction", liked)
}

// SetPartnerReaction records the partner's answer. Whether the initiator
// liked first is left to the caller.
func (r *DatingRepository) SetPartnerReaction(ctx context.Context, id int64, liked bool) (*db.Dating, error) {
	return r.update(ctx, id, "partner_reaction", liked)
}

// SetInitiatorMessage stores the opaque message reference shown to the
// initiator.
func (r *DatingRepository) SetInitiatorMessage(ctx context.Context, id int64, msgID int64) error {
	_, err := r.update(ctx, id, "initiator_msg_id", msgID)
	return err
}

func (r *DatingRepository) update(ctx context.Context, id int64, column string, value any) (*db.Dating, error) {
	res := r.db.WithContext(ctx).Model(&db.Dating{}).
		Where("id = ?", id).
		Update(column, value)
	if res.Error != nil {
		return nil, res.Error
	}
	// MySQL counts changed rows only, so a repeated value reports 0 here;
	// Get tells a missing row apart.
	return r.Get(ctx, id)
}

// LastPairedAt returns when initiator was last paired with partner, or nil.
func (r *DatingRepository) LastPairedAt(ctx context.Context, initiatorID, partnerID int64) (*time.Time, error) {
	var datings []db.Dating
	err := r.db.WithContext(ctx).
		Where("initiator_id = ? AND partner_id = ?", initiatorID, partnerID).
		Order("time DESC").
		Limit(1).
		Find(&datings).Error
	if err != nil || len(datings) == 0 {
		return nil, err
	}
	return &datings[0].Time, nil
}

// incomingLikes are likes addressed to the user still awaiting an answer.
func (r *DatingRepository) incomingLikes(ctx context.Context, userID int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("datings d").
		Where("d.partner_id = ? AND d.initiator_reaction = ? AND d.partner_reaction IS NULL", userID, true)
}

// ListIncomingLikes returns datings whose initiator liked userID and which
// userID has not answered yet.
//
// Behavior:
//   - Ordered by time DESC, id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.ListIncomingLikes(ctx, 42, nil, 20) // first 20 people waiting on user 42
func (r *DatingRepository) ListIncomingLikes(
	ctx context.Context,
	userID int64,
	paginationToken *string,
	limit int,
) ([]db.Dating, *string, error) {
	return r.page(r.incomingLikes(ctx, userID), paginationToken, limit)
}

// CountIncomingLikes returns how many likes userID has not answered.
// Used in conjunction with Redis cache (DB is fallback).
func (r *DatingRepository) CountIncomingLikes(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.incomingLikes(ctx, userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListMutual returns datings where both sides liked each other and userID is
// either side, newest first.
func (r *DatingRepository) ListMutual(
	ctx context.Context,
	userID int64,
	paginationToken *string,
	limit int,
) ([]db.Dating, *string, error) {
	q := r.db.WithContext(ctx).
		Table("datings d").
		Where("(d.initiator_id = ? OR d.partner_id = ?)", userID, userID).
		Where("d.initiator_reaction = ? AND d.partner_reaction = ?", true, true)
	return r.page(q, paginationToken, limit)
}

// page applies the (time, id) cursor and builds the next token.
func (r *DatingRepository) page(query *gorm.DB, paginationToken *string, limit int) ([]db.Dating, *string, error) {
	var datings []db.Dating

	// decode cursor if provided
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query = query.Order("d.time DESC, d.id DESC").Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := cursor.Time()
		query = query.Where(
			"(d.time < ? OR (d.time = ? AND d.id < ?))",
			ts, ts, cursor.DatingID,
		)
	}

	if err := query.Find(&datings).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(datings) > limit {
		last := datings[limit-1]
		token, err := pagination.Encode(pagination.At(last.ID, last.Time))
		if err != nil {
			return nil, nil, err
		}
		nextToken = &token
		datings = datings[:limit]
	}

	return datings, nextToken, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
