package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/eventhub/internal/model"
	"example.com/eventhub/internal/repository"
)

// Mock repositories for testing

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventRepository) FindAll(ctx context.Context) ([]*model.Event, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *MockEventRepository) Update(ctx context.Context, event *model.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEventRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockParticipationRepository struct {
	mock.Mock
}

func (m *MockParticipationRepository) Create(ctx context.Context, participation *model.Participation) error {
	args := m.Called(ctx, participation)
	return args.Error(0)
}

func (m *MockParticipationRepository) FindByID(ctx context.Context, eventID, id string) (*model.Participation, error) {
	args := m.Called(ctx, eventID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participation), args.Error(1)
}

func (m *MockParticipationRepository) FindByEventAndSubject(ctx context.Context, eventID, subjectID string) (*model.Participation, error) {
	args := m.Called(ctx, eventID, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participation), args.Error(1)
}

func (m *MockParticipationRepository) FindByEvent(ctx context.Context, eventID string, status *model.ParticipationStatus) ([]*model.Participation, error) {
	args := m.Called(ctx, eventID, status)
	return args.Get(0).([]*model.Participation), args.Error(1)
}

func (m *MockParticipationRepository) FindByStatusAcrossEvents(ctx context.Context, status model.ParticipationStatus) ([]*model.Participation, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]*model.Participation), args.Error(1)
}

func (m *MockParticipationRepository) UpdateStatus(ctx context.Context, eventID, id string, status model.ParticipationStatus) (*model.Participation, error) {
	args := m.Called(ctx, eventID, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participation), args.Error(1)
}

func (m *MockParticipationRepository) DeleteByEvent(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockParticipationRepository) CountByStatus(ctx context.Context) (map[model.ParticipationStatus]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[model.ParticipationStatus]int64), args.Error(1)
}

func (m *MockParticipationRepository) CountApprovedByEvent(ctx context.Context) ([]repository.EventApprovalCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]repository.EventApprovalCount), args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Append(ctx context.Context, notification *model.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListRecent(ctx context.Context, limit int) ([]*model.Notification, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]*model.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockSubjectRepository struct {
	mock.Mock
}

func (m *MockSubjectRepository) FindByID(ctx context.Context, id string) (*model.Subject, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Subject), args.Error(1)
}

func (m *MockSubjectRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSubjectRepository) GrowthByMonth(ctx context.Context) ([]repository.MonthlyCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]repository.MonthlyCount), args.Error(1)
}

// stubCache always misses so subject lookups hit the repository
type stubCache struct{}

func (stubCache) GetSubject(ctx context.Context, id string) (*model.Subject, error) {
	return nil, redis.Nil
}
func (stubCache) SetSubject(ctx context.Context, subject *model.Subject) error { return nil }
func (stubCache) FlushAll(ctx context.Context) error                           { return nil }
func (stubCache) Close() error                                                 { return nil }

// stubPublisher swallows fan-out; publishing is advisory and tested
// separately from the lifecycle semantics
type stubPublisher struct{}

func (stubPublisher) PublishMessage(ctx context.Context, message interface{}, queueName string) error {
	return nil
}
func (stubPublisher) Close(ctx context.Context) error { return nil }

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type lifecycleFixture struct {
	events        *MockEventRepository
	participation *MockParticipationRepository
	notifications *MockNotificationRepository
	subjects      *MockSubjectRepository
	svc           LifecycleService
}

func newLifecycleFixture(cfg LifecycleConfig) *lifecycleFixture {
	f := &lifecycleFixture{
		events:        new(MockEventRepository),
		participation: new(MockParticipationRepository),
		notifications: new(MockNotificationRepository),
		subjects:      new(MockSubjectRepository),
	}
	f.svc = NewLifecycleService(
		f.events,
		f.participation,
		f.notifications,
		f.subjects,
		stubCache{},
		stubPublisher{},
		testLogger(),
		cfg,
	)
	return f
}

func TestCreateEventEmitsCreationNotification(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	f.events.On("Create", mock.Anything, mock.AnythingOfType("*model.Event")).Return(nil)
	f.subjects.On("FindByID", mock.Anything, "creator-1").Return(&model.Subject{
		Username: "alice",
	}, nil)
	f.notifications.On("Append", mock.Anything, mock.MatchedBy(func(n *model.Notification) bool {
		return n.Type == model.EventCreatedNotification &&
			n.Message == `Event "Go Meetup" created by alice`
	})).Return(nil)

	event, err := f.svc.CreateEvent(context.Background(), &CreateEventRequest{
		Title:     "Go Meetup",
		Date:      time.Now().Add(24 * time.Hour),
		Location:  "Nairobi",
		CreatorID: "creator-1",
	})

	require.NoError(t, err)
	require.NotNil(t, event)
	require.NotEmpty(t, event.UUID)
	require.Equal(t, "creator-1", event.CreatorID)
	f.notifications.AssertNumberOfCalls(t, "Append", 1)
	f.events.AssertExpectations(t)
}

func TestRegisterCreatesPendingParticipation(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	f.events.On("FindByID", mock.Anything, "event-1").Return(&model.Event{
		Base:  model.Base{UUID: "event-1"},
		Title: "Go Meetup",
	}, nil)
	f.subjects.On("FindByID", mock.Anything, "subject-1").Return(&model.Subject{
		Base:     model.Base{UUID: "subject-1"},
		Username: "bob",
	}, nil)
	f.participation.On("Create", mock.Anything, mock.AnythingOfType("*model.Participation")).Return(nil)

	participation, err := f.svc.Register(context.Background(), "event-1", "subject-1")

	require.NoError(t, err)
	require.Equal(t, model.PendingParticipationStatus, participation.Status)
	require.Equal(t, "event-1", participation.EventID)
	require.Equal(t, "subject-1", participation.SubjectID)
	require.Equal(t, "bob", participation.SubjectName)
	f.participation.AssertExpectations(t)
}

func TestRegisterDuplicateReturnsAlreadyRegistered(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	f.events.On("FindByID", mock.Anything, "event-1").Return(&model.Event{
		Base: model.Base{UUID: "event-1"},
	}, nil)
	f.subjects.On("FindByID", mock.Anything, "subject-1").Return(&model.Subject{
		Base: model.Base{UUID: "subject-1"},
	}, nil)
	f.participation.On("Create", mock.Anything, mock.AnythingOfType("*model.Participation")).
		Return(repository.ErrDuplicateKey)

	_, err := f.svc.Register(context.Background(), "event-1", "subject-1")

	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterUnknownEvent(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	f.events.On("FindByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound)

	_, err := f.svc.Register(context.Background(), "missing", "subject-1")

	require.ErrorIs(t, err, ErrEventNotFound)
	f.participation.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSetStatusApproveEmitsNotification(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	f.events.On("FindByID", mock.Anything, "event-1").Return(&model.Event{
		Base:  model.Base{UUID: "event-1"},
		Title: "Go Meetup",
	}, nil)
	f.participation.On("FindByID", mock.Anything, "event-1", "part-1").Return(&model.Participation{
		Base:      model.Base{UUID: "part-1"},
		EventID:   "event-1",
		SubjectID: "subject-1",
		Status:    model.PendingParticipationStatus,
	}, nil)
	f.participation.On("UpdateStatus", mock.Anything, "event-1", "part-1", model.ApprovedParticipationStatus).
		Return(&model.Participation{
			Base:      model.Base{UUID: "part-1"},
			EventID:   "event-1",
			SubjectID: "subject-1",
			Status:    model.ApprovedParticipationStatus,
		}, nil)
	f.subjects.On("FindByID", mock.Anything, "subject-1").Return(&model.Subject{
		Username: "bob",
	}, nil)
	f.notifications.On("Append", mock.Anything, mock.MatchedBy(func(n *model.Notification) bool {
		return n.Type == model.ParticipantApprovedNotification &&
			n.Message == `bob approved for event "Go Meetup"`
	})).Return(nil)

	participation, err := f.svc.SetStatus(context.Background(), "event-1", "part-1", model.ApprovedParticipationStatus)

	require.NoError(t, err)
	require.Equal(t, model.ApprovedParticipationStatus, participation.Status)
	f.notifications.AssertNumberOfCalls(t, "Append", 1)
}

func TestSetStatusRejectEmitsRejectionNotification(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	f.events.On("FindByID", mock.Anything, "event-1").Return(&model.Event{
		Base:  model.Base{UUID: "event-1"},
		Title: "Go Meetup",
	}, nil)
	f.participation.On("FindByID", mock.Anything, "event-1", "part-1").Return(&model.Participation{
		Base:      model.Base{UUID: "part-1"},
		EventID:   "event-1",
		SubjectID: "subject-1",
		Status:    model.PendingParticipationStatus,
	}, nil)
	f.participation.On("UpdateStatus", mock.Anything, "event-1", "part-1", model.RejectedParticipationStatus).
		Return(&model.Participation{
			Base:      model.Base{UUID: "part-1"},
			EventID:   "event-1",
			SubjectID: "subject-1",
			Status:    model.RejectedParticipationStatus,
		}, nil)
	f.subjects.On("FindByID", mock.Anything, "subject-1").Return(&model.Subject{
		Username: "bob",
	}, nil)
	f.notifications.On("Append", mock.Anything, mock.MatchedBy(func(n *model.Notification) bool {
		return n.Type == model.ParticipantRejectedNotification &&
			strings.Contains(n.Message, "rejected")
	})).Return(nil)

	participation, err := f.svc.SetStatus(context.Background(), "event-1", "part-1", model.RejectedParticipationStatus)

	require.NoError(t, err)
	require.Equal(t, model.RejectedParticipationStatus, participation.Status)
	f.notifications.AssertNumberOfCalls(t, "Append", 1)
}

func TestSetStatusOverwritesTerminalByDefault(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	f.events.On("FindByID", mock.Anything, "event-1").Return(&model.Event{
		Base:  model.Base{UUID: "event-1"},
		Title: "Go Meetup",
	}, nil)
	f.participation.On("FindByID", mock.Anything, "event-1", "part-1").Return(&model.Participation{
		Base:      model.Base{UUID: "part-1"},
		EventID:   "event-1",
		SubjectID: "subject-1",
		Status:    model.ApprovedParticipationStatus,
	}, nil)
	f.participation.On("UpdateStatus", mock.Anything, "event-1", "part-1", model.RejectedParticipationStatus).
		Return(&model.Participation{
			Base:      model.Base{UUID: "part-1"},
			EventID:   "event-1",
			SubjectID: "subject-1",
			Status:    model.RejectedParticipationStatus,
		}, nil)
	f.subjects.On("FindByID", mock.Anything, "subject-1").Return(&model.Subject{
		Username: "bob",
	}, nil)
	f.notifications.On("Append", mock.Anything, mock.Anything).Return(nil)

	participation, err := f.svc.SetStatus(context.Background(), "event-1", "part-1", model.RejectedParticipationStatus)

	require.NoError(t, err)
	require.Equal(t, model.RejectedParticipationStatus, participation.Status)
}

func TestSetStatusStrictTransitionsRejectsTerminal(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{StrictTransitions: true})

	f.events.On("FindByID", mock.Anything, "event-1").Return(&model.Event{
		Base: model.Base{UUID: "event-1"},
	}, nil)
	f.participation.On("FindByID", mock.Anything, "event-1", "part-1").Return(&model.Participation{
		Base:    model.Base{UUID: "part-1"},
		EventID: "event-1",
		Status:  model.ApprovedParticipationStatus,
	}, nil)

	_, err := f.svc.SetStatus(context.Background(), "event-1", "part-1", model.RejectedParticipationStatus)

	require.ErrorIs(t, err, ErrInvalidTransition)
	f.participation.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.notifications.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSetStatusMissingParticipant(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	f.events.On("FindByID", mock.Anything, "event-1").Return(&model.Event{
		Base: model.Base{UUID: "event-1"},
	}, nil)
	f.participation.On("FindByID", mock.Anything, "event-1", "missing").
		Return(nil, repository.ErrNotFound)

	_, err := f.svc.SetStatus(context.Background(), "event-1", "missing", model.ApprovedParticipationStatus)

	require.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestDeleteEventRemovesParticipations(t *testing.T) {
	f := newLifecycleFixture(LifecycleConfig{})

	f.events.On("FindByID", mock.Anything, "event-1").Return(&model.Event{
		Base: model.Base{UUID: "event-1"},
	}, nil)
	f.participation.On("DeleteByEvent", mock.Anything, "event-1").Return(nil)
	f.events.On("Delete", mock.Anything, "event-1").Return(nil)

	err := f.svc.DeleteEvent(context.Background(), "event-1")

	require.NoError(t, err)
	f.participation.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

// memoryParticipationStore enforces the (event, subject) uniqueness the
// way the real store does, so concurrent registrations race against a
// single authoritative constraint. Rows keep insertion order, matching
// the created_at ordering of the real store.
type memoryParticipationStore struct {
	MockParticipationRepository
	mu   sync.Mutex
	rows []*model.Participation
	seen map[string]bool
}

func newMemoryParticipationStore() *memoryParticipationStore {
	return &memoryParticipationStore{seen: make(map[string]bool)}
}

func (s *memoryParticipationStore) Create(ctx context.Context, p *model.Participation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := p.EventID + "/" + p.SubjectID
	if s.seen[key] {
		return repository.ErrDuplicateKey
	}
	s.seen[key] = true
	row := *p
	s.rows = append(s.rows, &row)
	return nil
}

func (s *memoryParticipationStore) FindByID(ctx context.Context, eventID, id string) (*model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.EventID == eventID && row.UUID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memoryParticipationStore) FindByEvent(ctx context.Context, eventID string, status *model.ParticipationStatus) ([]*model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Participation
	for _, row := range s.rows {
		if row.EventID != eventID {
			continue
		}
		if status != nil && row.Status != *status {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memoryParticipationStore) UpdateStatus(ctx context.Context, eventID, id string, status model.ParticipationStatus) (*model.Participation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.EventID == eventID && row.UUID == id {
			row.Status = status
			cp := *row
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// memoryNotificationLog records appends in order for assertions on the
// notification sequence
type memoryNotificationLog struct {
	MockNotificationRepository
	mu      sync.Mutex
	entries []*model.Notification
}

func (l *memoryNotificationLog) Append(ctx context.Context, n *model.Notification) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *n
	l.entries = append(l.entries, &cp)
	return nil
}

func (l *memoryNotificationLog) appended() []*model.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*model.Notification(nil), l.entries...)
}

func TestStatusFilterTracksTerminalRecord(t *testing.T) {
	events := new(MockEventRepository)
	subjects := new(MockSubjectRepository)
	store := newMemoryParticipationStore()

	events.On("FindByID", mock.Anything, "event-1").Return(&model.Event{
		Base:  model.Base{UUID: "event-1"},
		Title: "Go Meetup",
	}, nil)
	subjects.On("FindByID", mock.Anything, mock.AnythingOfType("string")).Return(&model.Subject{
		Username: "bob",
	}, nil)

	svc := NewLifecycleService(
		events,
		store,
		new(memoryNotificationLog),
		subjects,
		stubCache{},
		stubPublisher{},
		testLogger(),
		LifecycleConfig{},
	)

	first, err := svc.Register(context.Background(), "event-1", "subject-1")
	require.NoError(t, err)
	second, err := svc.Register(context.Background(), "event-1", "subject-2")
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), "event-1", first.UUID, model.ApprovedParticipationStatus)
	require.NoError(t, err)

	approved := model.ApprovedParticipationStatus
	roster, err := svc.ListParticipants(context.Background(), "event-1", &approved)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, first.UUID, roster[0].UUID)

	rejected := model.RejectedParticipationStatus
	roster, err = svc.ListParticipants(context.Background(), "event-1", &rejected)
	require.NoError(t, err)
	require.Empty(t, roster)

	pending := model.PendingParticipationStatus
	roster, err = svc.ListParticipants(context.Background(), "event-1", &pending)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, second.UUID, roster[0].UUID)

	roster, err = svc.ListParticipants(context.Background(), "event-1", nil)
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.Equal(t, first.UUID, roster[0].UUID)
	require.Equal(t, second.UUID, roster[1].UUID)
}

func TestNotificationsFollowLifecycleOrder(t *testing.T) {
	events := new(MockEventRepository)
	subjects := new(MockSubjectRepository)
	store := newMemoryParticipationStore()
	log := new(memoryNotificationLog)

	events.On("Create", mock.Anything, mock.AnythingOfType("*model.Event")).Return(nil)
	subjects.On("FindByID", mock.Anything, mock.AnythingOfType("string")).Return(&model.Subject{
		Username: "bob",
	}, nil)

	svc := NewLifecycleService(
		events,
		store,
		log,
		subjects,
		stubCache{},
		stubPublisher{},
		testLogger(),
		LifecycleConfig{},
	)

	event, err := svc.CreateEvent(context.Background(), &CreateEventRequest{
		Title:     "Go Meetup",
		Date:      time.Now().Add(24 * time.Hour),
		Location:  "Nairobi",
		CreatorID: "creator-1",
	})
	require.NoError(t, err)

	events.On("FindByID", mock.Anything, event.UUID).Return(event, nil)

	participation, err := svc.Register(context.Background(), event.UUID, "subject-1")
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), event.UUID, participation.UUID, model.ApprovedParticipationStatus)
	require.NoError(t, err)

	entries := log.appended()
	require.Len(t, entries, 2)
	require.Equal(t, model.EventCreatedNotification, entries[0].Type)
	require.Equal(t, `Event "Go Meetup" created by bob`, entries[0].Message)
	require.Equal(t, model.ParticipantApprovedNotification, entries[1].Type)
	require.Equal(t, `bob approved for event "Go Meetup"`, entries[1].Message)
}

func TestConcurrentRegistrationSingleWinner(t *testing.T) {
	events := new(MockEventRepository)
	subjects := new(MockSubjectRepository)
	store := newMemoryParticipationStore()

	events.On("FindByID", mock.Anything, "event-1").Return(&model.Event{
		Base: model.Base{UUID: "event-1"},
	}, nil)
	subjects.On("FindByID", mock.Anything, mock.AnythingOfType("string")).Return(&model.Subject{
		Username: "bob",
	}, nil)

	svc := NewLifecycleService(
		events,
		store,
		new(MockNotificationRepository),
		subjects,
		stubCache{},
		stubPublisher{},
		testLogger(),
		LifecycleConfig{},
	)

	const attempts = 16
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "event-1", "subject-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case err == ErrAlreadyRegistered:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	require.Equal(t, 1, wins, fmt.Sprintf("expected exactly one winner, got %d", wins))
	require.Equal(t, attempts-1, conflicts)
}
