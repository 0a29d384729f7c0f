package mongodb

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"example.com/marathon/internal/domain"
)

type applicationDocument struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	MarathonID        string             `bson:"marathonID"`
	Title             string             `bson:"title"`
	MarathonStartDate string             `bson:"marathonStartDate"`
	Email             string             `bson:"email"`
	FirstName         string             `bson:"firstName"`
	LastName          string             `bson:"lastName"`
	ContactNumber     string             `bson:"contactNumber"`
	AdditionalInfo    string             `bson:"additionalInfo"`
	RegisterCount     int                `bson:"registerCount"`
	CreatedAt         time.Time          `bson:"createdAt"`
}

// ListApplications implements domain.ApplicationStore.
func (s *Store) ListApplications(ctx context.Context, filter domain.ApplicationFilter) ([]domain.Application, error) {
	query := bson.M{}
	if filter.Email != "" {
		query["email"] = filter.Email
	}
	if filter.Title != "" {
		query["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Title), Options: "i"}
	}

	cur, err := s.applications.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []applicationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]domain.Application, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.Application{
			ID:                d.ID.Hex(),
			MarathonID:        d.MarathonID,
			Title:             d.Title,
			MarathonStartDate: d.MarathonStartDate,
			Email:             d.Email,
			FirstName:         d.FirstName,
			LastName:          d.LastName,
			ContactNumber:     d.ContactNumber,
			AdditionalInfo:    d.AdditionalInfo,
			RegisterCount:     d.RegisterCount,
			CreatedAt:         d.CreatedAt,
		})
	}
	return out, nil
}

// InsertApplication implements domain.ApplicationStore.
func (s *Store) InsertApplication(ctx context.Context, a domain.Application) (string, error) {
	doc := applicationDocument{
		ID:                primitive.NewObjectID(),
		MarathonID:        a.MarathonID,
		Title:             a.Title,
		MarathonStartDate: a.MarathonStartDate,
		Email:             a.Email,
		FirstName:         a.FirstName,
		LastName:          a.LastName,
		ContactNumber:     a.ContactNumber,
		AdditionalInfo:    a.AdditionalInfo,
		RegisterCount:     a.RegisterCount,
		CreatedAt:         a.CreatedAt,
	}
	if _, err := s.applications.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}
