package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"psichat_server/core/domain"
	"psichat_server/core/port/out"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB Deep Analysis Adapter
// =============================================================================

const collectionDeepAnalyses = "deep_analyses"

// DeepAnalysisAdapter implements out.DeepAnalysisRepository using MongoDB.
type DeepAnalysisAdapter struct {
	collection *mongo.Collection
}

var _ out.DeepAnalysisRepository = (*DeepAnalysisAdapter)(nil)

// NewDeepAnalysisAdapter creates a new MongoDB deep analysis adapter.
func NewDeepAnalysisAdapter(db *mongo.Database) *DeepAnalysisAdapter {
	return &DeepAnalysisAdapter{collection: db.Collection(collectionDeepAnalyses)}
}

// EnsureIndexes creates the indexes the lookups rely on.
func (a *DeepAnalysisAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}

	if _, err := a.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create deep analysis indexes: %w", err)
	}
	return nil
}

// =============================================================================
// Document Model
// =============================================================================

// deepAnalysisDocument stores identifiers as strings so the archive stays
// readable from the mongo shell.
type deepAnalysisDocument struct {
	ID                         string                  `bson:"id"`
	UserID                     string                  `bson:"user_id"`
	AverageEmotionDistribution []domain.EmotionAverage `bson:"average_emotion_distribution"`
	AverageStyleDistribution   []domain.StyleAverage   `bson:"average_style_distribution"`
	EmotionTrends              []domain.EmotionTrend   `bson:"emotion_trends"`
	StyleTrends                []domain.StyleTrend     `bson:"style_trends"`
	Insights                   []string                `bson:"insights"`
	Recommendations            []string                `bson:"recommendations"`
	MessageCount               int                     `bson:"message_count"`
	AnalysisDate               time.Time               `bson:"analysis_date"`
	CreatedAt                  time.Time               `bson:"created_at"`
}

func toDocument(r *domain.DeepAnalysis) *deepAnalysisDocument {
	return &deepAnalysisDocument{
		ID:                         uuid.NewString(),
		UserID:                     r.UserID.String(),
		AverageEmotionDistribution: r.AverageEmotionDistribution,
		AverageStyleDistribution:   r.AverageStyleDistribution,
		EmotionTrends:              r.EmotionTrends,
		StyleTrends:                r.StyleTrends,
		Insights:                   r.Insights,
		Recommendations:            r.Recommendations,
		MessageCount:               r.MessageCount,
		AnalysisDate:               r.AnalysisDate,
		CreatedAt:                  r.CreatedAt,
	}
}

func (d *deepAnalysisDocument) toDomain() (*domain.DeepAnalysis, error) {
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q in deep analysis %s: %w", d.UserID, d.ID, err)
	}
	return &domain.DeepAnalysis{
		UserID:                     userID,
		AverageEmotionDistribution: d.AverageEmotionDistribution,
		AverageStyleDistribution:   d.AverageStyleDistribution,
		EmotionTrends:              d.EmotionTrends,
		StyleTrends:                d.StyleTrends,
		Insights:                   d.Insights,
		Recommendations:            d.Recommendations,
		MessageCount:               d.MessageCount,
		AnalysisDate:               d.AnalysisDate.UTC(),
		CreatedAt:                  d.CreatedAt.UTC(),
	}, nil
}

// =============================================================================
// Operations
// =============================================================================

// Save archives a report. Every run is kept.
func (a *DeepAnalysisAdapter) Save(ctx context.Context, report *domain.DeepAnalysis) error {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	if _, err := a.collection.InsertOne(ctx, toDocument(report)); err != nil {
		return fmt.Errorf("failed to save deep analysis: %w", err)
	}
	return nil
}

// GetLatestByUser returns the user's newest report, or nil.
func (a *DeepAnalysisAdapter) GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.DeepAnalysis, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var doc deepAnalysisDocument
	err := a.collection.FindOne(ctx, bson.M{"user_id": userID.String()}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest deep analysis: %w", err)
	}
	return doc.toDomain()
}
