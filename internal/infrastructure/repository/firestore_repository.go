package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"shopify-customer-sync/internal/domain"
	"shopify-customer-sync/internal/infrastructure/repository/entity"
	"shopify-customer-sync/internal/ports"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig selects the Firebase project and its credentials.
// A service account can be given inline (ClientEmail + PrivateKey) or as a file; with neither,
// application default credentials are used.
type FirestoreConfig struct {
	ProjectID       string
	ClientEmail     string
	PrivateKey      string
	CredentialsFile string
}

// NewFirestoreClient initializes the Firebase app and returns its Firestore client.
// Call it once at startup and share the client; it is safe for concurrent use.
func NewFirestoreClient(ctx context.Context, cfg FirestoreConfig) (*firestore.Client, error) {
	var opts []option.ClientOption
	switch {
	case cfg.ClientEmail != "" && cfg.PrivateKey != "":
		creds, err := serviceAccountJSON(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentialsJSON(creds))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firestore client: %w", err)
	}

	return client, nil
}

// serviceAccountJSON assembles a service account key from env-provided fields.
// Private keys pasted into env files usually carry literal \n sequences.
func serviceAccountJSON(cfg FirestoreConfig) ([]byte, error) {
	key := map[string]string{
		"type":         "service_account",
		"project_id":   cfg.ProjectID,
		"client_email": cfg.ClientEmail,
		"private_key":  strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n"),
		"token_uri":    "https://oauth2.googleapis.com/token",
	}
	b, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("failed to encode service account: %w", err)
	}
	return b, nil
}

// FirestoreCredentialRepository implements CredentialRepository using Firestore.
// Documents are keyed by shop domain.
type FirestoreCredentialRepository struct {
	collection *firestore.CollectionRef
}

// NewFirestoreCredentialRepository creates a new Firestore credential repository
func NewFirestoreCredentialRepository(client *firestore.Client, collection string) *FirestoreCredentialRepository {
	if collection == "" {
		collection = DefaultCollection
	}
	return &FirestoreCredentialRepository{
		collection: client.Collection(collection),
	}
}

var _ ports.CredentialRepository = (*FirestoreCredentialRepository)(nil)

// Save creates or overwrites the credential of a shop
func (r *FirestoreCredentialRepository) Save(ctx context.Context, credential *domain.ShopCredential) error {
	doc := entity.FirestoreCredentialDocFromDomain(credential)
	if _, err := r.collection.Doc(credential.Shop).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to save shop credential: %w", err)
	}
	return nil
}

// GetByShop retrieves a credential by shop domain
func (r *FirestoreCredentialRepository) GetByShop(ctx context.Context, shop string) (*domain.ShopCredential, error) {
	snap, err := r.collection.Doc(shop).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop credential: %w", err)
	}

	var doc entity.FirestoreCredentialDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode shop credential: %w", err)
	}
	return doc.ToDomain(), nil
}

// GetByID retrieves the first credential carrying the unique ID
func (r *FirestoreCredentialRepository) GetByID(ctx context.Context, id string) (*domain.ShopCredential, error) {
	snaps, err := r.collection.Where("id", "==", id).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query shop credential: %w", err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	var doc entity.FirestoreCredentialDoc
	if err := snaps[0].DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode shop credential: %w", err)
	}
	return doc.ToDomain(), nil
}
