package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/MrEthical07/tokenvault"
	"github.com/MrEthical07/tokenvault/token"
)

// Store implements tokenvault.Store on a single MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ tokenvault.Store = (*Store)(nil)

// document is the persisted shape of a token record. The kind is stored by
// name so records stay readable in shell sessions and migrations.
type document struct {
	Token     string    `bson:"token"`
	OwnerID   string    `bson:"owner_id"`
	Kind      string    `bson:"kind"`
	ExpiresAt time.Time `bson:"expires_at"`
	Revoked   bool      `bson:"revoked"`
	CreatedAt time.Time `bson:"created_at"`
}

// New wraps an existing collection. The caller owns the client lifecycle.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// Connect dials MongoDB from cfg, ensures the indexes, and returns a store
// that owns the client. Close releases it.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	client, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// Close disconnects the client when the store owns one.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the unique token index, the owner+kind index backing
// bulk revocation, and the TTL index on expires_at. ExpireAfterSeconds of
// zero means MongoDB reaps a document as soon as expires_at passes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "kind", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create indexes: %w", tokenvault.ErrStoreUnavailable, err)
	}
	return nil
}

// Save inserts the record. The unique token index turns a replayed insert
// into ErrDuplicateToken.
func (s *Store) Save(ctx context.Context, record tokenvault.TokenRecord) error {
	_, err := s.coll.InsertOne(ctx, document{
		Token:     record.Token,
		OwnerID:   record.OwnerID,
		Kind:      record.Kind.String(),
		ExpiresAt: record.ExpiresAt.UTC(),
		Revoked:   record.Revoked,
		CreatedAt: time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return tokenvault.ErrDuplicateToken
	}
	if err != nil {
		return storeError("insert token", err)
	}
	return nil
}

// FindActive returns the record iff it exists for the kind and is not
// revoked.
func (s *Store) FindActive(ctx context.Context, tokenStr string, kind tokenvault.TokenKind) (tokenvault.TokenRecord, error) {
	var doc document
	err := s.coll.FindOne(ctx, activeFilter(tokenStr, kind)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return tokenvault.TokenRecord{}, tokenvault.ErrTokenNotFound
	}
	if err != nil {
		return tokenvault.TokenRecord{}, storeError("find token", err)
	}
	return toRecord(doc)
}

// Revoke flips the revoked flag. Repeat revocations match the document again
// and succeed.
func (s *Store) Revoke(ctx context.Context, tokenStr string) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "token", Value: tokenStr}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "revoked", Value: true}}}},
	)
	if err != nil {
		return storeError("revoke token", err)
	}
	if res.MatchedCount == 0 {
		return tokenvault.ErrTokenNotFound
	}
	return nil
}

// ConsumeAndDelete removes and returns the matching non-revoked record.
// findOneAndDelete is atomic per document, so only one of any number of
// concurrent consumers gets the record back.
func (s *Store) ConsumeAndDelete(ctx context.Context, tokenStr string, kind tokenvault.TokenKind) (tokenvault.TokenRecord, error) {
	var doc document
	err := s.coll.FindOneAndDelete(ctx, activeFilter(tokenStr, kind)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return tokenvault.TokenRecord{}, tokenvault.ErrTokenNotFound
	}
	if err != nil {
		return tokenvault.TokenRecord{}, storeError("consume token", err)
	}
	return toRecord(doc)
}

// RevokeAllForOwner bulk-revokes all live records for (ownerID, kind).
func (s *Store) RevokeAllForOwner(ctx context.Context, ownerID string, kind tokenvault.TokenKind) error {
	_, err := s.coll.UpdateMany(ctx,
		bson.D{
			{Key: "owner_id", Value: ownerID},
			{Key: "kind", Value: kind.String()},
			{Key: "revoked", Value: false},
		},
		bson.D{{Key: "$set", Value: bson.D{{Key: "revoked", Value: true}}}},
	)
	if err != nil {
		return storeError("revoke owner tokens", err)
	}
	return nil
}

// DeleteExpired removes records whose expiry predates now. With the TTL
// index active this mostly deletes nothing; it stays correct either way.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx,
		bson.D{{Key: "expires_at", Value: bson.D{{Key: "$lt", Value: now.UTC()}}}},
	)
	if err != nil {
		return 0, storeError("delete expired tokens", err)
	}
	return res.DeletedCount, nil
}

func activeFilter(tokenStr string, kind tokenvault.TokenKind) bson.D {
	return bson.D{
		{Key: "token", Value: tokenStr},
		{Key: "kind", Value: kind.String()},
		{Key: "revoked", Value: false},
	}
}

func toRecord(doc document) (tokenvault.TokenRecord, error) {
	kind, err := token.ParseKind(doc.Kind)
	if err != nil {
		return tokenvault.TokenRecord{}, storeError("decode token kind", err)
	}
	return tokenvault.TokenRecord{
		Token:     doc.Token,
		OwnerID:   doc.OwnerID,
		Kind:      kind,
		ExpiresAt: doc.ExpiresAt,
		Revoked:   doc.Revoked,
	}, nil
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", tokenvault.ErrStoreUnavailable, op, err)
}

func connectError(err error) error {
	if err == nil {
		return fmt.Errorf("%w: failed to connect to mongo", tokenvault.ErrStoreUnavailable)
	}
	return fmt.Errorf("%w: failed to connect to mongo: %w", tokenvault.ErrStoreUnavailable, err)
}
