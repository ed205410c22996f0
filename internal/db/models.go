package db

import (
	"time"

	"github.com/bvilove/datebot/internal/preference"
)

// User is one student profile, keyed by the messaging-platform chat id.
//
// Bit-set columns (Subjects, SubjectsFilter, DatingPurpose) hold the raw
// preference encodings; decode them through the preference package.
//
// Indexes:
//   - idx_users_active_activity(active, last_activity)
//     Narrows the candidate pool before the per-row predicates run.
//   - idx_users_graduation_year(graduation_year)
//     Serves the grade window range scan.
//
// Defaults live in the repository, not in column tags: gorm skips zero
// values that have a default tag, which would make Active=false and
// grade filters of 0 unwritable on create.
type User struct {
	ID              int64                     `gorm:"primaryKey;autoIncrement:false"`
	Name            string                    `gorm:"size:64;not null"`
	Gender          preference.Gender         `gorm:"size:8;not null"`
	GenderFilter    *preference.Gender        `gorm:"size:8"`
	About           string                    `gorm:"size:4096;not null"`
	Active          bool                      `gorm:"not null;index:idx_users_active_activity,priority:1"`
	LastActivity    time.Time                 `gorm:"not null;index:idx_users_active_activity,priority:2"`
	GraduationYear  int16                     `gorm:"not null;index:idx_users_graduation_year"`
	GradeUpFilter   int16                     `gorm:"not null"`
	GradeDownFilter int16                     `gorm:"not null"`
	Subjects        int32                     `gorm:"not null"`
	SubjectsFilter  int32                     `gorm:"not null"`
	DatingPurpose   int16                     `gorm:"not null"`
	City            *preference.LocationCode  `gorm:"index:idx_users_city"`
	LocationFilter  preference.LocationFilter `gorm:"size:16;not null"`
	CreatedAt       time.Time                 `gorm:"autoCreateTime"`
	UpdatedAt       time.Time                 `gorm:"autoUpdateTime"`
}

// Dating is one proposed pairing shown to the initiator.
//
// Reactions are tri-state: nil = undecided, true = like, false = dislike.
// PartnerReaction is only meaningful once InitiatorReaction is true.
//
// Indexes:
//   - idx_datings_initiator_partner_time(initiator_id, partner_id, time)
//     Serves the anti-repeat NOT EXISTS check and the pending-decision lookup.
//   - idx_datings_partner_reactions(partner_id, initiator_reaction, partner_reaction)
//     Serves the "who liked me" listing and counter.
type Dating struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	InitiatorID       int64     `gorm:"not null;index:idx_datings_initiator_partner_time,priority:1"`
	PartnerID         int64     `gorm:"not null;index:idx_datings_initiator_partner_time,priority:2;index:idx_datings_partner_reactions,priority:1"`
	Time              time.Time `gorm:"autoCreateTime;not null;index:idx_datings_initiator_partner_time,priority:3"`
	InitiatorMsgID    *int64
	InitiatorReaction *bool `gorm:"index:idx_datings_partner_reactions,priority:2"`
	PartnerReaction   *bool `gorm:"index:idx_datings_partner_reactions,priority:3"`
}

type ImageKind string

const (
	ImageKindImage ImageKind = "image"
	ImageKindVideo ImageKind = "video"
)

// Image is a media reference attached to a profile. Only the platform file
// id is stored; the bytes stay with the messaging platform.
type Image struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	UserID     int64     `gorm:"not null;index"`
	TelegramID string    `gorm:"size:255;not null"`
	Kind       ImageKind `gorm:"size:8;not null"`
	Position   int       `gorm:"not null"`
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{&User{}, &Dating{}, &Image{}}
}
