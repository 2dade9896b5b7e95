package application_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
)

// --- Mock implementations ---

type memTokenStore struct {
	mu      sync.Mutex
	cred    *model.Credential
	saves   int
	getErr  error
	saveErr error
}

func (m *memTokenStore) Get(_ context.Context) (*model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.cred == nil {
		return nil, nil
	}
	c := *m.cred
	return &c, nil
}

func (m *memTokenStore) Save(_ context.Context, cred model.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.cred = &cred
	return nil
}

func (m *memTokenStore) stored() *model.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cred
}

type fakeEndpoint struct {
	refreshCalls  atomic.Int32
	exchangeCalls atomic.Int32
	refresh       func(ctx context.Context, refreshToken string) (model.TokenGrant, error)
	exchange      func(ctx context.Context, code string) (model.TokenGrant, error)
}

func (f *fakeEndpoint) AuthorizationURL() string {
	return "https://launchpad.example.com/authorization/new"
}

func (f *fakeEndpoint) Exchange(ctx context.Context, code string) (model.TokenGrant, error) {
	f.exchangeCalls.Add(1)
	if f.exchange == nil {
		return model.TokenGrant{}, errors.New("exchange not expected")
	}
	return f.exchange(ctx, code)
}

func (f *fakeEndpoint) Refresh(ctx context.Context, refreshToken string) (model.TokenGrant, error) {
	f.refreshCalls.Add(1)
	if f.refresh == nil {
		return model.TokenGrant{}, errors.New("refresh not expected")
	}
	return f.refresh(ctx, refreshToken)
}

type memHistory struct {
	mu        sync.Mutex
	records   map[model.ItemKey]model.NotificationRecord
	listErr   error
	upsertErr error
	upserts   int
}

func newMemHistory(records ...model.NotificationRecord) *memHistory {
	h := &memHistory{records: make(map[model.ItemKey]model.NotificationRecord)}
	for _, r := range records {
		h.records[r.Key()] = r
	}
	return h
}

func (m *memHistory) ListAll(_ context.Context) ([]model.NotificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]model.NotificationRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *memHistory) Upsert(_ context.Context, rec model.NotificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	m.records[rec.Key()] = rec
	return nil
}

func (m *memHistory) get(key model.ItemKey) (model.NotificationRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[key]
	return r, ok
}

type postedMessage struct {
	ProjectID, BoardID int64
	Subject, Content   string
}

type postedComment struct {
	ProjectID, RecordingID int64
	Content                string
}

// fakeBasecamp is an in-memory BasecampClient. It is safe for concurrent use.
type fakeBasecamp struct {
	mu sync.Mutex

	projects    []model.Project
	projectsErr error
	messages    map[int64][]model.Message // by board id
	messagesErr map[int64]error           // by project id
	comments    map[int64][]model.Comment // by recording id
	commentsErr map[int64]error           // by recording id

	createMessageErr map[int64]error // by project id
	createCommentErr map[int64]error // by project id
	nextID           int64

	postedMessages []postedMessage
	postedComments []postedComment
	commentFetches int
}

func newFakeBasecamp() *fakeBasecamp {
	return &fakeBasecamp{
		messages:         make(map[int64][]model.Message),
		messagesErr:      make(map[int64]error),
		comments:         make(map[int64][]model.Comment),
		commentsErr:      make(map[int64]error),
		createMessageErr: make(map[int64]error),
		createCommentErr: make(map[int64]error),
		nextID:           9000,
	}
}

func (f *fakeBasecamp) ListProjects(_ context.Context) ([]model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.projectsErr != nil {
		return nil, &model.TransientFetchError{Op: "list projects", Err: f.projectsErr}
	}
	return append([]model.Project(nil), f.projects...), nil
}

func (f *fakeBasecamp) ListMessages(_ context.Context, projectID, boardID int64) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.messagesErr[projectID]; err != nil {
		return nil, &model.TransientFetchError{Op: "list messages", Err: err}
	}
	return append([]model.Message(nil), f.messages[boardID]...), nil
}

func (f *fakeBasecamp) ListComments(_ context.Context, _, recordingID int64) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commentFetches++
	if err := f.commentsErr[recordingID]; err != nil {
		return nil, &model.TransientFetchError{Op: "list comments", Err: err}
	}
	return append([]model.Comment(nil), f.comments[recordingID]...), nil
}

func (f *fakeBasecamp) CreateMessage(_ context.Context, projectID, boardID int64, subject, content string) (model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createMessageErr[projectID]; err != nil {
		return model.Message{}, err
	}
	f.nextID++
	msg := model.Message{
		ID:      f.nextID,
		Subject: subject,
		Title:   subject,
		Status:  model.RecordingStatusActive,
	}
	f.messages[boardID] = append(f.messages[boardID], msg)
	f.postedMessages = append(f.postedMessages, postedMessage{ProjectID: projectID, BoardID: boardID, Subject: subject, Content: content})
	return msg, nil
}

func (f *fakeBasecamp) CreateComment(_ context.Context, projectID, recordingID int64, content string) (model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.createCommentErr[projectID]; err != nil {
		return model.Comment{}, err
	}
	f.nextID++
	f.postedComments = append(f.postedComments, postedComment{ProjectID: projectID, RecordingID: recordingID, Content: content})
	return model.Comment{ID: f.nextID}, nil
}

func (f *fakeBasecamp) GetProfile(_ context.Context) (model.Identity, error) {
	return model.Identity{ID: 1, Name: "Ops"}, nil
}

func (f *fakeBasecamp) posts() ([]postedMessage, []postedComment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]postedMessage(nil), f.postedMessages...), append([]postedComment(nil), f.postedComments...)
}

// --- Fixtures ---

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func daysAgo(d float64) time.Time {
	return testNow.Add(-time.Duration(d * float64(24*time.Hour)))
}

var (
	clientPerson = model.Person{ID: 5, Name: "Client Carol", Client: true}
	staffPerson  = model.Person{ID: 9, Name: "Staff Sam"}
)
