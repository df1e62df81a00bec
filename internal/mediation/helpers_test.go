package mediation

import (
	"context"
	"sync"

	"mediator/internal/models"

	"go.uber.org/zap"
)

type emitted struct {
	event   string
	payload interface{}
}

type fakeConn struct {
	mu      sync.Mutex
	id      string
	user    string
	display string
	userID  int64
	alive   bool
	events  []emitted
}

func newFakeConn(user string, userID int64) *fakeConn {
	return &fakeConn{id: "conn-" + user, user: user, display: user, userID: userID, alive: true}
}

func (c *fakeConn) ID() string          { return c.id }
func (c *fakeConn) Username() string    { return c.user }
func (c *fakeConn) DisplayName() string { return c.display }
func (c *fakeConn) UserID() int64       { return c.userID }

func (c *fakeConn) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

func (c *fakeConn) Emit(event string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, emitted{event: event, payload: payload})
	return nil
}

func (c *fakeConn) emitted() []emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]emitted, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeConn) disconnect() {
	c.mu.Lock()
	c.alive = false
	c.mu.Unlock()
}

type broadcast struct {
	roomID  string
	event   string
	payload interface{}
}

type fakeHub struct {
	mu         sync.Mutex
	broadcasts []broadcast
	online     []string
}

func (h *fakeHub) Broadcast(roomID, event string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcasts = append(h.broadcasts, broadcast{roomID: roomID, event: event, payload: payload})
}

func (h *fakeHub) ActiveUsernames(roomID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.online
}

func (h *fakeHub) sent() []broadcast {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]broadcast, len(h.broadcasts))
	copy(out, h.broadcasts)
	return out
}

type fakeMessageRepo struct {
	mu     sync.Mutex
	saved  []*models.Message
	recent []models.Message
	thread *models.ThreadContext
	err    error
}

func (r *fakeMessageRepo) SaveMessage(msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, msg)
	return nil
}

func (r *fakeMessageRepo) GetRecentMessages(roomID string, limit int) ([]models.Message, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.recent, nil
}

func (r *fakeMessageRepo) GetThreadContext(threadID string) (*models.ThreadContext, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.thread, nil
}

func (r *fakeMessageRepo) savedMessages() []*models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Message, len(r.saved))
	copy(out, r.saved)
	return out
}

type fakeRoomRepo struct {
	members []models.RoomMember
	tasks   []models.Task
	err     error
}

func (r *fakeRoomRepo) GetMembers(roomID string) ([]models.RoomMember, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.members, nil
}

func (r *fakeRoomRepo) IsMember(userID int64, roomID string) (bool, error) {
	return true, nil
}

func (r *fakeRoomRepo) GetOpenTasks(roomID string) ([]models.Task, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.tasks, nil
}

type fakeContactRepo struct {
	mu       sync.Mutex
	contacts []models.Contact
	updates  map[int64]map[string]string
	err      error
}

func (r *fakeContactRepo) GetContactsByUser(userID int64) ([]models.Contact, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.contacts, nil
}

func (r *fakeContactRepo) UpdateContactFields(contactID int64, updates map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updates == nil {
		r.updates = make(map[int64]map[string]string)
	}
	r.updates[contactID] = updates
	return nil
}

type statRecord struct {
	userID  int64
	roomID  string
	flagged bool
}

type fakeStatsRepo struct {
	mu      sync.Mutex
	records []statRecord
	err     error
}

func (r *fakeStatsRepo) RecordMessage(userID int64, roomID string, flagged bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, statRecord{userID: userID, roomID: roomID, flagged: flagged})
	return nil
}

func (r *fakeStatsRepo) GetStats(userID int64, roomID string) (*models.CommunicationStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	stats := &models.CommunicationStats{UserID: userID, RoomID: roomID}
	for _, rec := range r.records {
		if rec.userID != userID || rec.roomID != roomID {
			continue
		}
		stats.TotalMessages++
		if rec.flagged {
			stats.FlaggedCount++
		}
	}
	if stats.TotalMessages == 0 {
		return nil, nil
	}
	return stats, nil
}

func (r *fakeStatsRepo) recorded() []statRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]statRecord, len(r.records))
	copy(out, r.records)
	return out
}

type fakeAnalyzer struct {
	mu        sync.Mutex
	calls     int
	analyzeFn func(msg *models.Message, actx *models.AnalysisContext) (*models.Intervention, error)
	mentions  []models.MentionCandidate
	extract   *models.ExtractionResult
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, msg *models.Message, actx *models.AnalysisContext) (*models.Intervention, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.analyzeFn == nil {
		return nil, nil
	}
	return a.analyzeFn(msg, actx)
}

func (a *fakeAnalyzer) DetectMentions(ctx context.Context, text string, contacts []models.Contact, participants []string) ([]models.MentionCandidate, error) {
	return a.mentions, nil
}

func (a *fakeAnalyzer) ExtractInformation(ctx context.Context, text string, contacts []models.Contact) (*models.ExtractionResult, error) {
	return a.extract, nil
}

func (a *fakeAnalyzer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// newTestPipeline wires an orchestrator with synchronous spawning and no
// enrichment so delivery order is observable.
func newTestPipeline(llm Analyzer, msgs *fakeMessageRepo, stats *fakeStatsRepo, h *fakeHub) *Orchestrator {
	logger := zap.NewNop()
	rooms := &fakeRoomRepo{}
	contacts := &fakeContactRepo{}

	aggregator := NewContextAggregator(msgs, rooms, contacts, stats, h, logger)
	approval := NewApprovalProcessor(msgs, rooms, stats, h, h, nil, nil, nil, logger)
	approval.spawn = func(f func()) { f() }
	interventions := NewInterventionProcessor(msgs, stats, h, logger)

	o := NewOrchestrator(llm, aggregator, approval, interventions, 0, logger)
	o.spawn = func(f func()) { f() }
	return o
}
