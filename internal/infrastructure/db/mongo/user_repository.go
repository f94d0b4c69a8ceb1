package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/personar/profile-service/internal/core/domain"
)

const collectionUsers = "users"

// UserRepository stores profile documents in the users collection. Email and
// handle are kept unique by indexes created in EnsureIndexes.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

type userDoc struct {
	ID             string      `bson:"_id"`
	Email          string      `bson:"email"`
	Handle         string      `bson:"handle"`
	DisplayName    string      `bson:"display_name"`
	StatusText     string      `bson:"status_text,omitempty"`
	BioText        string      `bson:"bio_text,omitempty"`
	Location       string      `bson:"location,omitempty"`
	Link           string      `bson:"link"`
	CredentialHash string      `bson:"credential_hash,omitempty"`
	FaceVectors    [][]float32 `bson:"face_vectors"`
	CreatedAt      time.Time   `bson:"created_at"`
	UpdatedAt      time.Time   `bson:"updated_at"`
}

func toUserDoc(u *domain.UserRecord) userDoc {
	return userDoc{
		ID:             u.ID,
		Email:          u.Email,
		Handle:         u.Handle,
		DisplayName:    u.DisplayName,
		StatusText:     u.StatusText,
		BioText:        u.BioText,
		Location:       u.Location,
		Link:           u.Link,
		CredentialHash: u.CredentialHash,
		FaceVectors:    toRows(u.Embeddings),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (d *userDoc) toDomain() *domain.UserRecord {
	return &domain.UserRecord{
		ID:             d.ID,
		Email:          d.Email,
		Handle:         d.Handle,
		DisplayName:    d.DisplayName,
		StatusText:     d.StatusText,
		BioText:        d.BioText,
		Location:       d.Location,
		Link:           d.Link,
		CredentialHash: d.CredentialHash,
		Embeddings:     fromRows(d.FaceVectors),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func toRows(set domain.EmbeddingSet) [][]float32 {
	rows := make([][]float32, len(set))
	for i, v := range set {
		rows[i] = []float32(v)
	}
	return rows
}

func fromRows(rows [][]float32) domain.EmbeddingSet {
	set := make(domain.EmbeddingSet, len(rows))
	for i, r := range rows {
		set[i] = domain.Vector(r)
	}
	return set
}

// publicProjection hides the credential hash from read paths that feed
// client-facing views.
var publicProjection = bson.M{"credential_hash": 0}

// Insert stores a new record. A duplicate email or handle yields domain.ErrDuplicateKey.
func (r *UserRepository) Insert(ctx context.Context, u *domain.UserRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toUserDoc(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateKey
		}
		return classify("insert user", err)
	}
	return nil
}

// FindByEmail is the login path and therefore returns the credential hash.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByHandle(ctx context.Context, handle string) (*domain.UserRecord, error) {
	return r.findOne(ctx, bson.M{"handle": handle}, options.FindOne().SetProjection(publicProjection))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.UserRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(publicProjection))
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.UserRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.col.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, classify("find user", err)
	}
	return doc.toDomain(), nil
}

// UpdateFields sets only the fields present in patch. An empty patch is not
// sent to the server at all.
func (r *UserRepository) UpdateFields(ctx context.Context, id string, patch domain.ProfilePatch) error {
	if patch.IsEmpty() {
		return nil
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.DisplayName != nil {
		set["display_name"] = *patch.DisplayName
	}
	if patch.StatusText != nil {
		set["status_text"] = *patch.StatusText
	}
	if patch.BioText != nil {
		set["bio_text"] = *patch.BioText
	}
	if patch.Location != nil {
		set["location"] = *patch.Location
	}

	return r.update(ctx, id, set)
}

func (r *UserRepository) ReplaceEmbeddings(ctx context.Context, id string, set domain.EmbeddingSet) error {
	return r.update(ctx, id, bson.M{
		"face_vectors": toRows(set),
		"updated_at":   time.Now().UTC(),
	})
}

func (r *UserRepository) update(ctx context.Context, id string, set bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return classify("update user", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ForEachEnrollment streams the embedding set of every record.
func (r *UserRepository) ForEachEnrollment(ctx context.Context, fn func(id string, set domain.EmbeddingSet) error) error {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "face_vectors": 1}).
		SetSort(bson.D{{Key: "created_at", Value: 1}})

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return classify("scan enrollments", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc userDoc
		if err := cur.Decode(&doc); err != nil {
			return fmt.Errorf("decode enrollment: %w", err)
		}
		if err := fn(doc.ID, fromRows(doc.FaceVectors)); err != nil {
			return err
		}
	}
	return classify("scan enrollments", cur.Err())
}

// EnsureIndexes creates the unique secondary indexes on the users collection.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "handle", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}
	if _, err := r.col.Indexes().CreateMany(ctx, indexes); err != nil {
		return classify("create user indexes", err)
	}
	return nil
}
