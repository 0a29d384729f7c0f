package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"example.com/marathon/internal/domain"
)

type marathonDocument struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	Title                 string             `bson:"title"`
	Location              string             `bson:"location"`
	RunningDistance       string             `bson:"runningDistance"`
	Description           string             `bson:"description"`
	Image                 string             `bson:"image"`
	StartRegistrationDate string             `bson:"startRegistrationDate"`
	EndRegistrationDate   string             `bson:"endRegistrationDate"`
	MarathonStartDate     string             `bson:"marathonStartDate"`
	Email                 string             `bson:"email"`
	RegistrationCount     int                `bson:"registrationCount"`
	CreatedAt             time.Time          `bson:"createdAt"`
}

func (d marathonDocument) toDomain() domain.Marathon {
	return domain.Marathon{
		ID:                    d.ID.Hex(),
		Title:                 d.Title,
		Location:              d.Location,
		RunningDistance:       d.RunningDistance,
		Description:           d.Description,
		Image:                 d.Image,
		StartRegistrationDate: d.StartRegistrationDate,
		EndRegistrationDate:   d.EndRegistrationDate,
		MarathonStartDate:     d.MarathonStartDate,
		Email:                 d.Email,
		RegistrationCount:     d.RegistrationCount,
		CreatedAt:             d.CreatedAt,
	}
}

// ListMarathons implements domain.MarathonStore.
func (s *Store) ListMarathons(ctx context.Context, filter domain.MarathonFilter) ([]domain.Marathon, error) {
	query := bson.M{}
	if filter.Email != "" {
		query["email"] = filter.Email
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cur, err := s.marathons.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var docs []marathonDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]domain.Marathon, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// GetMarathon implements domain.MarathonStore.
func (s *Store) GetMarathon(ctx context.Context, id string) (*domain.Marathon, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, nil
	}
	var doc marathonDocument
	err := s.marathons.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m := doc.toDomain()
	return &m, nil
}

// InsertMarathon implements domain.MarathonStore.
func (s *Store) InsertMarathon(ctx context.Context, m domain.Marathon) (string, error) {
	doc := marathonDocument{
		ID:                    primitive.NewObjectID(),
		Title:                 m.Title,
		Location:              m.Location,
		RunningDistance:       m.RunningDistance,
		Description:           m.Description,
		Image:                 m.Image,
		StartRegistrationDate: m.StartRegistrationDate,
		EndRegistrationDate:   m.EndRegistrationDate,
		MarathonStartDate:     m.MarathonStartDate,
		Email:                 m.Email,
		RegistrationCount:     m.RegistrationCount,
		CreatedAt:             m.CreatedAt,
	}
	if _, err := s.marathons.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}

// UpdateMarathon implements domain.MarathonStore.
func (s *Store) UpdateMarathon(ctx context.Context, id string, patch domain.MarathonPatch) (domain.UpdateResult, error) {
	oid, ok := objectID(id)
	if !ok {
		return domain.UpdateResult{}, nil
	}
	res, err := s.marathons.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": patchDocument(patch)})
	if err != nil {
		return domain.UpdateResult{}, err
	}
	return domain.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

// DeleteMarathon implements domain.MarathonStore.
func (s *Store) DeleteMarathon(ctx context.Context, id string) (int64, error) {
	oid, ok := objectID(id)
	if !ok {
		return 0, nil
	}
	res, err := s.marathons.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// IncrementRegistrationCount implements domain.MarathonStore.
func (s *Store) IncrementRegistrationCount(ctx context.Context, id string) (bool, error) {
	oid, ok := objectID(id)
	if !ok {
		return false, nil
	}
	res, err := s.marathons.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$inc": bson.M{"registrationCount": 1}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func patchDocument(p domain.MarathonPatch) bson.M {
	set := bson.M{}
	put := func(key string, v *string) {
		if v != nil {
			set[key] = *v
		}
	}
	put("title", p.Title)
	put("location", p.Location)
	put("runningDistance", p.RunningDistance)
	put("description", p.Description)
	put("image", p.Image)
	put("startRegistrationDate", p.StartRegistrationDate)
	put("endRegistrationDate", p.EndRegistrationDate)
	put("marathonStartDate", p.MarathonStartDate)
	return set
}

func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}
