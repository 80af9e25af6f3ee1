package analysis

import (
	"context"
	"errors"
	"time"

	"psichat_server/core/domain"
	"psichat_server/core/port/in"
	"psichat_server/core/port/out"
	"psichat_server/pkg/apperr"
	"psichat_server/pkg/logger"

	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
	historyPreviewRunes = 100
)

// Service runs the engine against stored conversations and persists its readings.
type Service struct {
	engine    *Engine
	messages  out.MessageRepository
	analyses  out.AnalysisRepository
	reports   out.DeepAnalysisRepository
	deepLimit int
}

var _ in.AnalysisService = (*Service)(nil)

// NewService creates an analysis service. reports may be nil, in which case
// deep analyses are computed but not archived.
func NewService(
	engine *Engine,
	messages out.MessageRepository,
	analyses out.AnalysisRepository,
	reports out.DeepAnalysisRepository,
	deepLimit int,
) *Service {
	if deepLimit <= 0 {
		deepLimit = DefaultDeepLimit
	}
	return &Service{
		engine:    engine,
		messages:  messages,
		analyses:  analyses,
		reports:   reports,
		deepLimit: deepLimit,
	}
}

// ForMessages returns the stored analyses of the given messages keyed by message id.
func (s *Service) ForMessages(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID]*domain.AnalysisRecord, error) {
	records, err := s.analyses.ListByMessages(ctx, messageIDs)
	if err != nil {
		return nil, apperr.DatabaseError("list analyses by message", err)
	}
	return records, nil
}

// Engine returns the underlying scoring engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// AnalyzeText reads a message without storing anything.
func (s *Service) AnalyzeText(ctx context.Context, text string, history []string) (*domain.AnalysisResult, error) {
	return s.engine.Analyze(ctx, text, history), nil
}

// AnalyzeContext reads a conversation window for accumulated risk.
func (s *Service) AnalyzeContext(ctx context.Context, history []string) (*domain.ContextSummary, error) {
	if len(history) == 0 {
		return nil, apperr.MissingField("history")
	}
	return s.engine.AnalyzeChatContext(ctx, history), nil
}

// EvaluatePriority grades an already classified reading.
func (s *Service) EvaluatePriority(req *in.PriorityRequest) domain.Priority {
	risk := req.ContextRisk
	if risk == "" {
		risk = domain.RiskNormal
	}
	return EvaluatePriority(req.Emotion, req.EmotionScore, req.Style, req.StyleScore, risk)
}

// CheckAlert runs the alert detector on an already classified reading.
func (s *Service) CheckAlert(req *in.PriorityRequest) (bool, string) {
	return CheckCombinedAlert(req.Emotion, req.EmotionScore, req.Style, req.StyleScore)
}

// AnalyzeComplete reads a message with its guidance. When the user already sent
// this exact text, the reading is stored against that message.
func (s *Service) AnalyzeComplete(ctx context.Context, userID uuid.UUID, text string, history []string) (*domain.CompleteAnalysis, error) {
	complete := s.engine.AnalyzeComplete(ctx, text, history)

	msg, err := s.messages.FindLatestByText(ctx, userID, text)
	if err != nil {
		return nil, apperr.DatabaseError("find message", err)
	}
	if msg == nil {
		return complete, nil
	}

	if err := s.Save(ctx, msg, complete.AnalysisResult); err != nil {
		return nil, err
	}
	return complete, nil
}

// Save stores a reading against a message, replacing any previous one.
func (s *Service) Save(ctx context.Context, msg *domain.Message, result *domain.AnalysisResult) error {
	record := &domain.AnalysisRecord{
		MessageID:   msg.ID,
		MessageText: msg.Text,
		Result:      result,
		CreatedAt:   time.Now(),
	}
	if err := s.analyses.Upsert(ctx, record); err != nil {
		return apperr.DatabaseError("save analysis", err)
	}
	return nil
}

// LastAnalysis rebuilds the complete reading of the user's newest analysed message.
func (s *Service) LastAnalysis(ctx context.Context, userID uuid.UUID) (*domain.CompleteAnalysis, error) {
	record, err := s.analyses.GetLatestByUser(ctx, userID)
	if err != nil {
		return nil, apperr.DatabaseError("get last analysis", err)
	}
	if record == nil || record.Result == nil {
		return nil, apperr.NotFound("previous analysis")
	}

	result := *record.Result
	result.Text = record.MessageText

	complete := Complete(&result)
	complete.MessageText = record.MessageText
	analysedAt := record.CreatedAt
	complete.AnalysisDate = &analysedAt
	return complete, nil
}

// History lists the user's recent readings with message previews.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.AnalysisHistoryItem, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := s.analyses.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperr.DatabaseError("list analyses", err)
	}

	items := make([]*domain.AnalysisHistoryItem, 0, len(records))
	for _, rec := range records {
		if rec.Result == nil {
			continue
		}
		items = append(items, &domain.AnalysisHistoryItem{
			ID:           rec.ID,
			Emotion:      rec.Result.Emotion,
			EmotionScore: rec.Result.EmotionScore,
			Style:        rec.Result.Style,
			StyleScore:   rec.Result.StyleScore,
			Priority:     rec.Result.Priority,
			Alert:        rec.Result.Alert,
			CreatedAt:    rec.CreatedAt,
			MessageText:  Preview(rec.MessageText, historyPreviewRunes),
		})
	}
	return items, nil
}

// DeepAnalysis aggregates the user's most recent messages and archives the report.
func (s *Service) DeepAnalysis(ctx context.Context, userID uuid.UUID) (*domain.DeepAnalysis, error) {
	msgs, err := s.messages.ListRecent(ctx, userID, domain.SenderUser, s.deepLimit)
	if err != nil {
		return nil, apperr.DatabaseError("list messages", err)
	}
	if len(msgs) == 0 {
		return nil, apperr.EmptyHistory("no messages to analyze")
	}

	inputs := make([]domain.DeepInput, len(msgs))
	for i, m := range msgs {
		inputs[i] = domain.DeepInput{Text: m.Text, CreatedAt: m.CreatedAt}
	}

	report, err := s.engine.DeepAnalyze(ctx, inputs)
	if err != nil {
		if errors.Is(err, ErrEmptyBatch) {
			return nil, apperr.EmptyHistory("no messages to analyze")
		}
		return nil, apperr.AnalysisError("deep", err)
	}
	report.UserID = userID
	report.CreatedAt = time.Now()

	if s.reports != nil {
		if err := s.reports.Save(ctx, report); err != nil {
			logger.WithError(err).Warn("[AnalysisService] failed to archive deep analysis for %s", userID)
		}
	}
	return report, nil
}

// LastDeepAnalysis returns the newest archived deep analysis of the user.
func (s *Service) LastDeepAnalysis(ctx context.Context, userID uuid.UUID) (*domain.DeepAnalysis, error) {
	if s.reports == nil {
		return nil, apperr.NotFound("deep analysis")
	}
	report, err := s.reports.GetLatestByUser(ctx, userID)
	if err != nil {
		return nil, apperr.DatabaseError("get deep analysis", err)
	}
	if report == nil {
		return nil, apperr.NotFound("deep analysis")
	}
	return report, nil
}

// Preview cuts text to n runes and marks the cut with "...".
func Preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
