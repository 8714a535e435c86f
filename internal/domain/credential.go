package domain

import "time"

// ShopCredential maps a shop domain to the generated unique ID that other stores use to pull from it
type ShopCredential struct {
	ID          string    `json:"id"`
	Shop        string    `json:"shop"`
	AccessToken string    `json:"accessToken"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
