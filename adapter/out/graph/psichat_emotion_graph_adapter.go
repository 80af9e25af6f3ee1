package graph

import (
	"context"
	"fmt"

	"psichat_server/core/domain"
	"psichat_server/core/port/out"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// =============================================================================
// Neo4j Emotion Graph Adapter
// =============================================================================

// EmotionGraphAdapter implements out.EmotionGraph using Neo4j.
//
//	(:User)-[:FELT {count, max_score}]->(:Emotion)
//	(:User)-[:COMMUNICATED {count}]->(:Style)
//	(:Emotion)-[:TRANSITION {user_id, count}]->(:Emotion)
type EmotionGraphAdapter struct {
	driver neo4j.DriverWithContext
	dbName string
}

var _ out.EmotionGraph = (*EmotionGraphAdapter)(nil)

// NewEmotionGraphAdapter creates a new Neo4j emotion graph adapter.
func NewEmotionGraphAdapter(driver neo4j.DriverWithContext, dbName string) *EmotionGraphAdapter {
	return &EmotionGraphAdapter{driver: driver, dbName: dbName}
}

// EnsureIndexes creates the constraints the MERGE patterns rely on.
func (a *EmotionGraphAdapter) EnsureIndexes(ctx context.Context) error {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: a.dbName})
	defer session.Close(ctx)

	queries := []string{
		`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.user_id IS UNIQUE`,
		`CREATE CONSTRAINT emotion_name_unique IF NOT EXISTS FOR (e:Emotion) REQUIRE e.name IS UNIQUE`,
		`CREATE CONSTRAINT style_name_unique IF NOT EXISTS FOR (s:Style) REQUIRE s.name IS UNIQUE`,
	}

	for _, query := range queries {
		if _, err := session.Run(ctx, query, nil); err != nil {
			return fmt.Errorf("failed to ensure graph constraint: %w", err)
		}
	}
	return nil
}

// recordAlertQuery counts the alert against the user's emotion and style and
// links it to the emotion of the user's previous alert.
const recordAlertQuery = `
	MERGE (u:User {user_id: $userID})
	WITH u, u.last_emotion AS previous
	MERGE (e:Emotion {name: $emotion})
	MERGE (u)-[f:FELT]->(e)
		ON CREATE SET f.count = 0, f.max_score = 0.0, f.first_at = $at
	SET f.count = f.count + 1,
		f.last_at = $at,
		f.max_score = CASE WHEN $score > f.max_score THEN $score ELSE f.max_score END
	MERGE (s:Style {name: $style})
	MERGE (u)-[c:COMMUNICATED]->(s)
		ON CREATE SET c.count = 0
	SET c.count = c.count + 1
	FOREACH (_ IN CASE WHEN previous IS NULL THEN [] ELSE [1] END |
		MERGE (p:Emotion {name: previous})
		MERGE (p)-[t:TRANSITION {user_id: $userID}]->(e)
			ON CREATE SET t.count = 0
		SET t.count = t.count + 1
	)
	SET u.last_emotion = $emotion, u.last_alert_at = $at
`

// RecordAlert adds an alert to the graph.
func (a *EmotionGraphAdapter) RecordAlert(ctx context.Context, alert *domain.AlertEvent) error {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: a.dbName,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, recordAlertQuery, alertParams(alert))
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to record alert in graph: %w", err)
	}
	return nil
}

func alertParams(alert *domain.AlertEvent) map[string]any {
	style := alert.Style
	if style == "" {
		style = domain.StyleNeutral
	}
	return map[string]any{
		"userID":  alert.UserID.String(),
		"emotion": string(alert.Emotion.Fold()),
		"style":   string(style.Fold()),
		"score":   alert.EmotionScore,
		"at":      alert.CreatedAt,
	}
}

// TopEmotions returns the user's most frequent alerting emotions.
func (a *EmotionGraphAdapter) TopEmotions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.EmotionCount, error) {
	session := a.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: a.dbName,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	query := `
		MATCH (:User {user_id: $userID})-[f:FELT]->(e:Emotion)
		RETURN e.name AS emotion, f.count AS count
		ORDER BY count DESC, emotion ASC
		LIMIT $limit
	`

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"userID": userID.String(),
			"limit":  int64(limit),
		})
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get top emotions: %w", err)
	}

	return emotionCounts(records.([]*neo4j.Record)), nil
}

func emotionCounts(records []*neo4j.Record) []domain.EmotionCount {
	counts := make([]domain.EmotionCount, 0, len(records))
	for _, record := range records {
		name := getStringValue(record, "emotion")
		if name == "" {
			continue
		}
		counts = append(counts, domain.EmotionCount{
			Emotion: domain.Emotion(name),
			Count:   getInt64Value(record, "count"),
		})
	}
	return counts
}

// =============================================================================
// Helper Functions
// =============================================================================

func getStringValue(record *neo4j.Record, key string) string {
	if val, ok := record.Get(key); ok && val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

func getInt64Value(record *neo4j.Record, key string) int64 {
	if val, ok := record.Get(key); ok && val != nil {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
