package models

import "time"

// Session is the single live login of a user.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	AccessTokenID  string    `json:"accessTokenId"`
	RefreshTokenID string    `json:"refreshTokenId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Media is a stored object returned by uploads.
type Media struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}
