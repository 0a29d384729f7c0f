package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"example.com/marathon/internal/domain"
)

type dailyRecordDocument struct {
	Day      string  `bson:"day"`
	Distance float64 `bson:"distance"`
	Time     float64 `bson:"time"`
	Speed    float64 `bson:"speed"`
	Year     int     `bson:"year"`
	Month    int     `bson:"month"`
}

type runningLogDocument struct {
	ID        primitive.ObjectID    `bson:"_id,omitempty"`
	UserID    string                `bson:"userId"`
	DailyData []dailyRecordDocument `bson:"dailyData"`
}

// FindRunningLog implements domain.RunningLogStore.
func (s *Store) FindRunningLog(ctx context.Context, userID string) (*domain.UserRunningLog, error) {
	var doc runningLogDocument
	err := s.runningData.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	log := domain.UserRunningLog{
		UserID:    doc.UserID,
		DailyData: make([]domain.DailyRecord, 0, len(doc.DailyData)),
	}
	for _, d := range doc.DailyData {
		log.DailyData = append(log.DailyData, domain.DailyRecord(d))
	}
	return &log, nil
}

// InsertRunningLog implements domain.RunningLogStore.
func (s *Store) InsertRunningLog(ctx context.Context, log domain.UserRunningLog) error {
	_, err := s.runningData.InsertOne(ctx, runningLogDocument{
		UserID:    log.UserID,
		DailyData: toRecordDocuments(log.DailyData),
	})
	return err
}

// ReplaceDailyData implements domain.RunningLogStore.
func (s *Store) ReplaceDailyData(ctx context.Context, userID string, dailyData []domain.DailyRecord) error {
	res, err := s.runningData.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"dailyData": toRecordDocuments(dailyData)}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("running log for %q disappeared before update", userID)
	}
	return nil
}

func toRecordDocuments(records []domain.DailyRecord) []dailyRecordDocument {
	out := make([]dailyRecordDocument, 0, len(records))
	for _, r := range records {
		out = append(out, dailyRecordDocument(r))
	}
	return out
}
