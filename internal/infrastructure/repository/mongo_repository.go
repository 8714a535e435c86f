package repository

import (
	"context"
	"fmt"

	"shopify-customer-sync/internal/domain"
	"shopify-customer-sync/internal/infrastructure/repository/entity"
	"shopify-customer-sync/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection holds one document per shop
const DefaultCollection = "shopify_stores"

// MongoCredentialRepository implements CredentialRepository using MongoDB
type MongoCredentialRepository struct {
	collection *mongo.Collection
}

// NewMongoCredentialRepository creates a new MongoDB credential repository
func NewMongoCredentialRepository(db *mongo.Database, collection string) *MongoCredentialRepository {
	if collection == "" {
		collection = DefaultCollection
	}
	return &MongoCredentialRepository{
		collection: db.Collection(collection),
	}
}

var _ ports.CredentialRepository = (*MongoCredentialRepository)(nil)

// EnsureIndexes creates the unique index on the shareable id
func (r *MongoCredentialRepository) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create id index: %w", err)
	}
	return nil
}

// Save creates or overwrites the credential of a shop
func (r *MongoCredentialRepository) Save(ctx context.Context, credential *domain.ShopCredential) error {
	doc := entity.MongoCredentialDocFromDomain(credential)

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": credential.Shop}
	update := bson.M{"$set": bson.M{
		"id":          doc.ID,
		"shop":        doc.ShopDomain,
		"accessToken": doc.AccessToken,
		"updatedAt":   doc.UpdatedAt,
	}}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save shop credential: %w", err)
	}

	return nil
}

// GetByShop retrieves a credential by shop domain
func (r *MongoCredentialRepository) GetByShop(ctx context.Context, shop string) (*domain.ShopCredential, error) {
	return r.findOne(ctx, bson.M{"_id": shop})
}

// GetByID retrieves a credential by its unique ID
func (r *MongoCredentialRepository) GetByID(ctx context.Context, id string) (*domain.ShopCredential, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

func (r *MongoCredentialRepository) findOne(ctx context.Context, filter bson.M) (*domain.ShopCredential, error) {
	var doc entity.MongoCredentialDoc

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop credential: %w", err)
	}

	return doc.ToDomain(), nil
}
