// Package chat runs the tutor conversation: every user message is read by the
// analysis engine, answered by the language model and stored with its reading.
package chat

import (
	"context"
	"strings"
	"time"

	"psichat_server/core/domain"
	"psichat_server/core/port/in"
	"psichat_server/core/port/out"
	"psichat_server/core/service/analysis"
	"psichat_server/pkg/apperr"
	"psichat_server/pkg/logger"

	"github.com/google/uuid"
)

// DefaultHistoryTurns is how many earlier exchanges shape a reply.
const DefaultHistoryTurns = 3

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Service answers user messages.
type Service struct {
	analysis  *analysis.Service
	messages  out.MessageRepository
	generator out.ReplyGenerator
	alerts    out.AlertPublisher
	turns     int
	now       func() time.Time
}

var _ in.ChatService = (*Service)(nil)

// NewService creates a chat service. alerts may be nil when no tutor stream is configured.
func NewService(
	analysisSvc *analysis.Service,
	messages out.MessageRepository,
	generator out.ReplyGenerator,
	alerts out.AlertPublisher,
	turns int,
) *Service {
	if turns <= 0 {
		turns = DefaultHistoryTurns
	}
	return &Service{
		analysis:  analysisSvc,
		messages:  messages,
		generator: generator,
		alerts:    alerts,
		turns:     turns,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Reply analyses text against the user's recent messages, asks the model for
// an answer and stores both messages. A model failure still produces a reply,
// marked with "[ERROR ...]" and the cause in Meta.Error.
func (s *Service) Reply(ctx context.Context, userID uuid.UUID, text string) (*domain.ChatReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.MissingField("user_text")
	}

	recent, err := s.messages.ListRecent(ctx, userID, "", 2*s.turns)
	if err != nil {
		return nil, apperr.DatabaseError("list messages", err)
	}
	turns, history := Conversation(recent, s.turns)

	result := s.analysis.Engine().Analyze(ctx, text, history)

	meta := domain.ChatMeta{
		DetectedEmotion:  result.Emotion,
		EmotionScore:     result.EmotionScore,
		DetectedStyle:    result.Style,
		StyleScore:       result.StyleScore,
		Priority:         result.Priority,
		Alert:            result.Alert,
		AlertReason:      result.AlertReason,
		ContextAlert:     result.HasContextAlert(),
		ContextRiskLevel: domain.RiskNormal,
	}
	if result.ContextRiskLevel != "" {
		meta.ContextRiskLevel = result.ContextRiskLevel
	}

	reply, genErr := s.generate(ctx, &out.ReplyRequest{
		SystemPrompt: SystemPrompt(result),
		Turns:        turns,
		UserText:     text,
	})
	if genErr != nil {
		logger.WithContext(ctx).WithError(genErr).Warn("[ChatService] reply generation failed for %s", userID)
		reply = "[ERROR LLM] " + genErr.Error()
		meta.Error = genErr.Error()
	}

	now := s.now()
	userMsg := &domain.Message{ID: uuid.New(), UserID: userID, Text: text, Sender: domain.SenderUser, CreatedAt: now}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, apperr.DatabaseError("save user message", err)
	}
	if err := s.analysis.Save(ctx, userMsg, result); err != nil {
		return nil, err
	}
	botMsg := &domain.Message{ID: uuid.New(), UserID: userID, Text: reply, Sender: domain.SenderBot, CreatedAt: now.Add(time.Millisecond)}
	if err := s.messages.Create(ctx, botMsg); err != nil {
		return nil, apperr.DatabaseError("save bot message", err)
	}

	if result.Alert || result.HasContextAlert() {
		s.publish(ctx, userMsg, result)
	}

	return &domain.ChatReply{MessageID: userMsg.ID, Reply: reply, Meta: meta}, nil
}

// History returns the user's last limit messages in chronological order, each
// joined with its stored analysis.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ChatHistoryItem, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	recent, err := s.messages.ListRecent(ctx, userID, "", limit)
	if err != nil {
		return nil, apperr.DatabaseError("list messages", err)
	}

	ids := make([]uuid.UUID, len(recent))
	for i, msg := range recent {
		ids[i] = msg.ID
	}
	records, err := s.analysis.ForMessages(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]*domain.ChatHistoryItem, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		items = append(items, domain.NewChatHistoryItem(recent[i], records[recent[i].ID]))
	}
	return items, nil
}

func (s *Service) generate(ctx context.Context, req *out.ReplyRequest) (string, error) {
	if s.generator == nil {
		return "", apperr.ConfigError("reply generator not configured")
	}
	return s.generator.GenerateReply(ctx, req)
}

func (s *Service) publish(ctx context.Context, msg *domain.Message, result *domain.AnalysisResult) {
	if s.alerts == nil {
		return
	}

	reason := result.AlertReason
	if reason == "" {
		reason = contextAlertReason
	}
	event := &domain.AlertEvent{
		ID:           uuid.New(),
		UserID:       msg.UserID,
		MessageID:    msg.ID,
		Emotion:      result.Emotion,
		EmotionScore: result.EmotionScore,
		Style:        result.Style,
		Priority:     result.Priority,
		Reason:       reason,
		ContextAlert: result.HasContextAlert(),
		CreatedAt:    msg.CreatedAt,
	}
	if err := s.alerts.PublishAlert(ctx, event); err != nil {
		logger.WithContext(ctx).WithError(err).Error("[ChatService] failed to publish alert %s", event.ID)
	}
}

const contextAlertReason = "Patrón de riesgo acumulado en los últimos mensajes."

// Conversation turns recent messages (newest first) into prior exchanges,
// oldest first, and the texts of the last n user messages.
func Conversation(recent []*domain.Message, n int) ([]domain.ChatTurn, []string) {
	var turns []domain.ChatTurn
	var history []string

	for i := len(recent) - 1; i >= 0; i-- {
		msg := recent[i]
		if msg.Sender != domain.SenderUser {
			continue
		}
		history = append(history, msg.Text)
		if i > 0 && recent[i-1].Sender == domain.SenderBot {
			turns = append(turns, domain.ChatTurn{User: msg.Text, Bot: recent[i-1].Text})
		}
	}

	if len(history) > n {
		history = history[len(history)-n:]
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, history
}

// SystemPrompt describes the tutor persona and the current reading of the user.
func SystemPrompt(result *domain.AnalysisResult) string {
	var b strings.Builder
	b.WriteString("Eres EmotiProfe, un tutor emocional para estudiantes. ")
	b.WriteString("Tu objetivo es brindar respuestas empáticas, útiles y breves. ")
	b.WriteString("Actualmente, el usuario muestra la emoción '")
	b.WriteString(string(result.Emotion))
	b.WriteString("' con intensidad ")
	b.WriteString(analysis.FormatScore(result.EmotionScore))
	b.WriteString("%, y estilo '")
	b.WriteString(string(result.Style))
	b.WriteString("' (")
	b.WriteString(analysis.FormatScore(result.StyleScore))
	b.WriteString("%).\n")
	if result.HasContextAlert() {
		b.WriteString("También se ha detectado un posible patrón de riesgo acumulado.\n")
	}
	b.WriteString("Responde siempre en español, con amabilidad, comprensión y brevedad.")
	return b.String()
}
