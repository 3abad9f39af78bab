package game

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/skeehn/reverseturing/domain"
)

// --- PromptSource ---

type MockPromptSource struct {
	mock.Mock
}

func (m *MockPromptSource) RandomPrompt(ctx context.Context, roomType string) (domain.Prompt, error) {
	args := m.Called(ctx, roomType)
	return args.Get(0).(domain.Prompt), args.Error(1)
}

// --- Judge ---

type MockJudge struct {
	mock.Mock
}

func (m *MockJudge) Judge(ctx context.Context, prompt, response string) domain.Judgment {
	args := m.Called(ctx, prompt, response)
	return args.Get(0).(domain.Judgment)
}

// --- Responder ---

type MockResponder struct {
	mock.Mock
}

func (m *MockResponder) Generate(ctx context.Context, roomType, prompt string) string {
	args := m.Called(ctx, roomType, prompt)
	return args.String(0)
}

// --- RoundStore ---

type MockRoundStore struct {
	mock.Mock
}

func (m *MockRoundStore) SaveRoundSnapshot(ctx context.Context, snap domain.RoundSnapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *MockRoundStore) UpdatePlayerStats(ctx context.Context, playerId string, wonAsHuman, detectedCorrectly bool) error {
	args := m.Called(ctx, playerId, wonAsHuman, detectedCorrectly)
	return args.Error(0)
}

func (m *MockRoundStore) FlagForRetraining(ctx context.Context, roundId string) error {
	args := m.Called(ctx, roundId)
	return args.Error(0)
}

// --- UserGetter ---

type MockUserGetter struct {
	mock.Mock
}

func (m *MockUserGetter) GetUserById(ctx context.Context, id string) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

// --- LeaderboardSource ---

type MockLeaderboardSource struct {
	mock.Mock
}

func (m *MockLeaderboardSource) Leaderboard(ctx context.Context, roomType, period string, limit int) ([]domain.LeaderboardEntry, error) {
	args := m.Called(ctx, roomType, period, limit)
	return args.Get(0).([]domain.LeaderboardEntry), args.Error(1)
}

// --- Scheduler ---

// fakeTimer is an armed callback under test control: it fires only
// when the test calls Fire.
type fakeTimer struct {
	d        time.Duration
	fn       func()
	canceled bool
	fired    bool
}

func (t *fakeTimer) Cancel() { t.canceled = true }

// Fire runs the callback the way a real deadline would, respecting an
// earlier Cancel.
func (t *fakeTimer) Fire() {
	if t.canceled || t.fired {
		return
	}
	t.fired = true
	t.fn()
}

// fakeScheduler records armed timers instead of using the clock.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) Schedule(d time.Duration, fn func()) TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// last returns the most recently armed timer.
func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// --- Broadcaster ---

type recordedEvent struct {
	roomId  string
	event   string
	payload any
}

// recordingBus captures every emitted event in order.
type recordingBus struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBus) Emit(roomId, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{roomId: roomId, event: event, payload: payload})
}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.events))
	for _, e := range b.events {
		names = append(names, e.event)
	}
	return names
}

func (b *recordingBus) find(event string) (recordedEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e.event == event {
			return e, true
		}
	}
	return recordedEvent{}, false
}

func (b *recordingBus) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
