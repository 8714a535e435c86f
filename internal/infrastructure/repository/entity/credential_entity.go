package entity

import (
	"time"

	"shopify-customer-sync/internal/domain"
)

// MongoCredentialDoc represents a shop credential in MongoDB.
// The document is keyed by shop domain; id is the shareable unique ID.
type MongoCredentialDoc struct {
	Shop        string    `bson:"_id"`
	ID          string    `bson:"id"`
	ShopDomain  string    `bson:"shop"`
	AccessToken string    `bson:"accessToken"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// MongoCredentialDocFromDomain converts a domain credential to a MongoDB document
func MongoCredentialDocFromDomain(c *domain.ShopCredential) *MongoCredentialDoc {
	return &MongoCredentialDoc{
		Shop:        c.Shop,
		ID:          c.ID,
		ShopDomain:  c.Shop,
		AccessToken: c.AccessToken,
		UpdatedAt:   c.UpdatedAt,
	}
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoCredentialDoc) ToDomain() *domain.ShopCredential {
	shop := d.ShopDomain
	if shop == "" {
		shop = d.Shop
	}
	return &domain.ShopCredential{
		ID:          d.ID,
		Shop:        shop,
		AccessToken: d.AccessToken,
		UpdatedAt:   d.UpdatedAt,
	}
}

// FirestoreCredentialDoc represents a shop credential in Firestore.
// updatedAt is kept as an ISO-8601 string so existing documents stay readable.
type FirestoreCredentialDoc struct {
	ID          string `firestore:"id"`
	Shop        string `firestore:"shop"`
	AccessToken string `firestore:"accessToken"`
	UpdatedAt   string `firestore:"updatedAt"`
}

// FirestoreCredentialDocFromDomain converts a domain credential to a Firestore document
func FirestoreCredentialDocFromDomain(c *domain.ShopCredential) *FirestoreCredentialDoc {
	return &FirestoreCredentialDoc{
		ID:          c.ID,
		Shop:        c.Shop,
		AccessToken: c.AccessToken,
		UpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ToDomain converts the Firestore document to a domain entity.
// An unparseable timestamp is left zero.
func (d *FirestoreCredentialDoc) ToDomain() *domain.ShopCredential {
	updatedAt, _ := time.Parse(time.RFC3339Nano, d.UpdatedAt)
	return &domain.ShopCredential{
		ID:          d.ID,
		Shop:        d.Shop,
		AccessToken: d.AccessToken,
		UpdatedAt:   updatedAt,
	}
}
