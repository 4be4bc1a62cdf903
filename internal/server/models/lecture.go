package models

import "time"

// Lecture is a single video in a course curriculum. Position orders the
// lectures of one course.
type Lecture struct {
	ID            string    `json:"id"`
	CourseID      *string   `json:"courseId,omitempty"`
	Position      int       `json:"position"`
	Title         string    `json:"lectureTitle"`
	VideoURL      string    `json:"videoUrl"`
	PublicID      string    `json:"publicId"`
	IsPreviewFree bool      `json:"isPreviewFree"`
	CreatedAt     time.Time `json:"createdAt"`
}

// LectureUpdate carries a partial lecture edit. Nil fields are left unchanged.
type LectureUpdate struct {
	Title         *string
	VideoURL      *string
	PublicID      *string
	IsPreviewFree *bool
}
