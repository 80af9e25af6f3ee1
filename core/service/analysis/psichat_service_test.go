package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"psichat_server/core/domain"
	"psichat_server/pkg/apperr"

	"github.com/google/uuid"
)

// =============================================================================
// In-memory repositories
// =============================================================================

type memMessages struct {
	msgs []*domain.Message // oldest first
	err  error
}

func (m *memMessages) Create(_ context.Context, msg *domain.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *memMessages) ListRecent(_ context.Context, userID uuid.UUID, sender domain.Sender, limit int) ([]*domain.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	var res []*domain.Message
	for i := len(m.msgs) - 1; i >= 0 && len(res) < limit; i-- {
		msg := m.msgs[i]
		if msg.UserID == userID && (sender == "" || msg.Sender == sender) {
			res = append(res, msg)
		}
	}
	return res, nil
}

func (m *memMessages) FindLatestByText(_ context.Context, userID uuid.UUID, text string) (*domain.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := len(m.msgs) - 1; i >= 0; i-- {
		msg := m.msgs[i]
		if msg.UserID == userID && msg.Sender == domain.SenderUser && msg.Text == text {
			return msg, nil
		}
	}
	return nil, nil
}

type memAnalyses struct {
	records []*domain.AnalysisRecord
	owners  map[uuid.UUID]uuid.UUID // message id -> user id
	nextID  int64
}

func (m *memAnalyses) Upsert(_ context.Context, record *domain.AnalysisRecord) error {
	for i, r := range m.records {
		if r.MessageID == record.MessageID {
			record.ID = r.ID
			m.records[i] = record
			return nil
		}
	}
	m.nextID++
	record.ID = m.nextID
	m.records = append(m.records, record)
	return nil
}

func (m *memAnalyses) ListByMessages(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.AnalysisRecord, error) {
	res := make(map[uuid.UUID]*domain.AnalysisRecord, len(ids))
	for _, id := range ids {
		for _, r := range m.records {
			if r.MessageID == id {
				res[id] = r
			}
		}
	}
	return res, nil
}

func (m *memAnalyses) GetLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.AnalysisRecord, error) {
	list, _ := m.ListByUser(ctx, userID, 1)
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (m *memAnalyses) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*domain.AnalysisRecord, error) {
	var res []*domain.AnalysisRecord
	for i := len(m.records) - 1; i >= 0 && len(res) < limit; i-- {
		if m.owners[m.records[i].MessageID] == userID {
			res = append(res, m.records[i])
		}
	}
	return res, nil
}

type memReports struct {
	saved []*domain.DeepAnalysis
	err   error
}

func (m *memReports) Save(_ context.Context, report *domain.DeepAnalysis) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, report)
	return nil
}

func (m *memReports) GetLatestByUser(_ context.Context, userID uuid.UUID) (*domain.DeepAnalysis, error) {
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].UserID == userID {
			return m.saved[i], nil
		}
	}
	return nil, nil
}

type serviceFixture struct {
	svc      *Service
	messages *memMessages
	analyses *memAnalyses
	reports  *memReports
	userID   uuid.UUID
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		messages: &memMessages{},
		analyses: &memAnalyses{owners: make(map[uuid.UUID]uuid.UUID)},
		reports:  &memReports{},
		userID:   uuid.New(),
	}
	f.svc = NewService(NewEngine(emotionStub(), styleStub(), nil), f.messages, f.analyses, f.reports, 0)
	return f
}

func (f *serviceFixture) addMessage(text string, sender domain.Sender, at time.Time) *domain.Message {
	msg := &domain.Message{ID: uuid.New(), UserID: f.userID, Text: text, Sender: sender, CreatedAt: at}
	f.messages.msgs = append(f.messages.msgs, msg)
	f.analyses.owners[msg.ID] = f.userID
	return msg
}

// =============================================================================
// Tests
// =============================================================================

func TestServiceAnalyzeCompleteStoresKnownMessage(t *testing.T) {
	f := newServiceFixture()
	msg := f.addMessage("estoy muy frustrado con todo", domain.SenderUser, time.Now())

	got, err := f.svc.AnalyzeComplete(context.Background(), f.userID, msg.Text, nil)
	if err != nil {
		t.Fatalf("AnalyzeComplete() error = %v", err)
	}
	if got.Priority != domain.PriorityCritical {
		t.Errorf("priority = %v, want crítica", got.Priority)
	}
	if len(f.analyses.records) != 1 || f.analyses.records[0].MessageID != msg.ID {
		t.Fatalf("records = %v, want one record for the message", f.analyses.records)
	}

	// A second run replaces the stored analysis.
	if _, err := f.svc.AnalyzeComplete(context.Background(), f.userID, msg.Text, nil); err != nil {
		t.Fatalf("AnalyzeComplete() error = %v", err)
	}
	if len(f.analyses.records) != 1 {
		t.Errorf("len(records) = %d, want 1", len(f.analyses.records))
	}
}

func TestServiceAnalyzeCompleteUnknownMessage(t *testing.T) {
	f := newServiceFixture()

	if _, err := f.svc.AnalyzeComplete(context.Background(), f.userID, "hoy fue un gran día", nil); err != nil {
		t.Fatalf("AnalyzeComplete() error = %v", err)
	}
	if len(f.analyses.records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(f.analyses.records))
	}
}

func TestServiceAnalyzeCompleteDatabaseError(t *testing.T) {
	f := newServiceFixture()
	f.messages.err = errors.New("connection reset")

	_, err := f.svc.AnalyzeComplete(context.Background(), f.userID, "hola", nil)
	if apperr.AsAppError(err).Code != apperr.CodeDatabaseError {
		t.Errorf("error = %v, want DATABASE_ERROR", err)
	}
}

func TestServiceLastAnalysis(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.LastAnalysis(context.Background(), f.userID)
	if apperr.AsAppError(err).Code != apperr.CodeNotFound {
		t.Fatalf("LastAnalysis() error = %v, want NOT_FOUND", err)
	}

	msg := f.addMessage("estoy agotado", domain.SenderUser, time.Now())
	if _, err := f.svc.AnalyzeComplete(context.Background(), f.userID, msg.Text, nil); err != nil {
		t.Fatalf("AnalyzeComplete() error = %v", err)
	}

	got, err := f.svc.LastAnalysis(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("LastAnalysis() error = %v", err)
	}
	if got.MessageText != "estoy agotado" || got.Text != "estoy agotado" {
		t.Errorf("MessageText = %q, Text = %q", got.MessageText, got.Text)
	}
	if got.Emotion != domain.EmotionSadness {
		t.Errorf("emotion = %v, want tristeza", got.Emotion)
	}
	if got.AnalysisDate == nil {
		t.Errorf("AnalysisDate = nil, want set")
	}
	if got.Summary == nil || got.Recommendations == nil || got.DetailedInsights == nil {
		t.Errorf("complete analysis is missing derived sections")
	}
}

func TestServiceHistoryTruncatesText(t *testing.T) {
	f := newServiceFixture()
	long := strings.Repeat("á", 120)
	short := "hoy fue un gran día"

	for _, text := range []string{long, short} {
		msg := f.addMessage(text, domain.SenderUser, time.Now())
		if err := f.svc.Save(context.Background(), msg, f.svc.Engine().Analyze(context.Background(), text, nil)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	got, err := f.svc.History(context.Background(), f.userID, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(got))
	}
	if got[0].MessageText != short {
		t.Errorf("newest MessageText = %q, want %q", got[0].MessageText, short)
	}
	if got[1].MessageText != strings.Repeat("á", 100)+"..." {
		t.Errorf("truncated MessageText = %q", got[1].MessageText)
	}
}

func TestServiceDeepAnalysis(t *testing.T) {
	f := newServiceFixture()

	_, err := f.svc.DeepAnalysis(context.Background(), f.userID)
	if apperr.AsAppError(err).Code != apperr.CodeEmptyHistory {
		t.Fatalf("DeepAnalysis() error = %v, want EMPTY_HISTORY", err)
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		f.addMessage("estoy agotado", domain.SenderUser, base.Add(time.Duration(i)*time.Minute))
		f.addMessage("respuesta del tutor", domain.SenderBot, base.Add(time.Duration(i)*time.Minute+time.Second))
	}

	got, err := f.svc.DeepAnalysis(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("DeepAnalysis() error = %v", err)
	}
	if got.MessageCount != DefaultDeepLimit {
		t.Errorf("MessageCount = %d, want %d", got.MessageCount, DefaultDeepLimit)
	}
	if !got.AnalysisDate.Equal(base.Add(11 * time.Minute)) {
		t.Errorf("AnalysisDate = %v, want newest user message", got.AnalysisDate)
	}
	if len(f.reports.saved) != 1 || f.reports.saved[0].UserID != f.userID {
		t.Errorf("saved reports = %v, want one for the user", f.reports.saved)
	}

	last, err := f.svc.LastDeepAnalysis(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("LastDeepAnalysis() error = %v", err)
	}
	if last != got {
		t.Errorf("LastDeepAnalysis() returned a different report")
	}
}

func TestServiceDeepAnalysisArchiveFailureIsNotFatal(t *testing.T) {
	f := newServiceFixture()
	f.reports.err = errors.New("mongo down")
	f.addMessage("estoy agotado", domain.SenderUser, time.Now())

	if _, err := f.svc.DeepAnalysis(context.Background(), f.userID); err != nil {
		t.Errorf("DeepAnalysis() error = %v, want nil", err)
	}
}

func TestServiceAnalyzeContext(t *testing.T) {
	f := newServiceFixture()

	if _, err := f.svc.AnalyzeContext(context.Background(), nil); apperr.AsAppError(err).Code != apperr.CodeMissingField {
		t.Errorf("AnalyzeContext(nil) error = %v, want MISSING_FIELD", err)
	}

	got, err := f.svc.AnalyzeContext(context.Background(), []string{"estoy muy frustrado con todo", "me rindo, no puedo más"})
	if err != nil {
		t.Fatalf("AnalyzeContext() error = %v", err)
	}
	if !got.ContextAlert {
		t.Errorf("ContextAlert = false, want true")
	}
}
