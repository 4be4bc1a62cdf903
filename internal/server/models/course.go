package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course levels.
const (
	LevelBeginner = "Beginner"
	LevelMedium   = "Medium"
	LevelAdvance  = "Advance"
)

// Course is a sellable set of lectures owned by its creator.
type Course struct {
	ID           string              `json:"id"`
	CreatorID    string              `json:"-"`
	Title        string              `json:"courseTitle"`
	Subtitle     string              `json:"subTitle"`
	Description  string              `json:"description"`
	Category     string              `json:"category"`
	Level        string              `json:"courseLevel"`
	Price        decimal.NullDecimal `json:"coursePrice"`
	ThumbnailURL string              `json:"courseThumbnail"`
	IsPublished  bool                `json:"isPublished"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`

	Creator          *UserSummary   `json:"creator,omitempty"`
	Lectures         []*Lecture     `json:"lectures"`
	EnrolledStudents []*UserSummary `json:"enrolledStudents"`
}

// CourseUpdate carries a partial course edit. Nil fields are left unchanged.
type CourseUpdate struct {
	Title        *string
	Subtitle     *string
	Description  *string
	Category     *string
	Level        *string
	Price        *decimal.Decimal
	ThumbnailURL *string
}

// IsEmpty reports whether the update changes nothing.
func (u *CourseUpdate) IsEmpty() bool {
	return u.Title == nil && u.Subtitle == nil && u.Description == nil &&
		u.Category == nil && u.Level == nil && u.Price == nil && u.ThumbnailURL == nil
}
