package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jeana-hines/group-voice-messaging/internal/model"
	"github.com/jeana-hines/group-voice-messaging/internal/notify"
	"github.com/jeana-hines/group-voice-messaging/internal/repo"
)

type fakeMessages struct {
	gotTo     string
	gotLimit  int
	gotOffset int

	items []model.Message
	err   error
}

var _ repo.MessageRepository = (*fakeMessages)(nil)

func (f *fakeMessages) Save(ctx context.Context, m *model.Message) error {
	return errors.New("not implemented")
}

func (f *fakeMessages) SaveAll(ctx context.Context, msgs []*model.Message) (int, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeMessages) CountUnread(ctx context.Context, toNumber string) (int, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeMessages) OldestUnread(ctx context.Context, toNumber string) (*model.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeMessages) Archive(ctx context.Context, id uuid.UUID) error {
	return errors.New("not implemented")
}

func (f *fakeMessages) ListArchived(ctx context.Context, toNumber string, limit, offset int) ([]model.Message, error) {
	f.gotTo = toNumber
	f.gotLimit = limit
	f.gotOffset = offset
	return f.items, f.err
}

type noopOutbox struct{}

var _ repo.NotificationRepository = (*noopOutbox)(nil)

func (noopOutbox) Enqueue(ctx context.Context, n *model.Notification) error { return nil }
func (noopOutbox) ClaimPending(ctx context.Context, limit int) ([]model.Notification, error) {
	return nil, nil
}
func (noopOutbox) MarkSent(ctx context.Context, id uuid.UUID, remoteMessageID string) error {
	return nil
}
func (noopOutbox) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error { return nil }

type noopClient struct{}

func (noopClient) Send(ctx context.Context, phoneNumber, message string) (string, error) {
	return "remote-1", nil
}

func newTestServer(t *testing.T, dispatcher *notify.Dispatcher, messages repo.MessageRepository) http.Handler {
	t.Helper()

	mux := http.NewServeMux()
	Register(mux, NewHandler(dispatcher, messages))
	return mux
}

func newTestDispatcher(t *testing.T) *notify.Dispatcher {
	t.Helper()

	// Long interval so only the immediate tick happens (noop anyway).
	d, err := notify.NewDispatcher(time.Hour, 1, noopOutbox{}, noopClient{}, nil)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	return d
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("failed to decode json: %v body=%q", err, rr.Body.String())
	}
	return m
}

func TestHealth(t *testing.T) {
	mux := newTestServer(t, nil, &fakeMessages{})

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rr := httptest.NewRecorder()

	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("expected Content-Type application/json, got %q", ct)
	}

	body := decodeJSON(t, rr)
	if v, ok := body["ok"].(bool); !ok || !v {
		t.Fatalf("expected {ok:true}, got %v", body)
	}
}

func TestDispatcherEndpoints_Lifecycle(t *testing.T) {
	d := newTestDispatcher(t)
	defer d.Stop()

	mux := newTestServer(t, d, &fakeMessages{})

	// Initially not running.
	{
		req := httptest.NewRequest(http.MethodGet, "/v1/dispatcher/status", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		body := decodeJSON(t, rr)
		if enabled, ok := body["enabled"].(bool); !ok || !enabled {
			t.Fatalf("expected enabled=true, got %v", body)
		}
		if running, ok := body["running"].(bool); !ok || running {
			t.Fatalf("expected running=false, got %v", body)
		}
	}

	// Start
	{
		req := httptest.NewRequest(http.MethodPost, "/v1/dispatcher/start", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%q", rr.Code, rr.Body.String())
		}
		body := decodeJSON(t, rr)
		if running, ok := body["running"].(bool); !ok || !running {
			t.Fatalf("expected running=true after start, got %v", body)
		}
	}

	// Stop
	{
		req := httptest.NewRequest(http.MethodPost, "/v1/dispatcher/stop", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%q", rr.Code, rr.Body.String())
		}
		body := decodeJSON(t, rr)
		if running, ok := body["running"].(bool); !ok || running {
			t.Fatalf("expected running=false after stop, got %v", body)
		}
	}
}

func TestDispatcherEndpoints_Disabled(t *testing.T) {
	mux := newTestServer(t, nil, &fakeMessages{})

	{
		req := httptest.NewRequest(http.MethodGet, "/v1/dispatcher/status", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		body := decodeJSON(t, rr)
		if enabled, ok := body["enabled"].(bool); !ok || enabled {
			t.Fatalf("expected enabled=false, got %v", body)
		}
	}

	{
		req := httptest.NewRequest(http.MethodPost, "/v1/dispatcher/start", nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)

		if rr.Code != http.StatusConflict {
			t.Fatalf("expected 409 when disabled, got %d", rr.Code)
		}
	}
}

func TestListArchivedMessages_RequiresTo(t *testing.T) {
	mux := newTestServer(t, nil, &fakeMessages{})

	req := httptest.NewRequest(http.MethodGet, "/v1/messages/archived", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without to param, got %d", rr.Code)
	}
}

func TestListArchivedMessages_DefaultsAndArgs(t *testing.T) {
	fm := &fakeMessages{
		items: []model.Message{
			{ID: uuid.New(), FromNumber: "+15550001", ToNumber: "+15550002", Played: true},
		},
	}
	mux := newTestServer(t, nil, fm)

	req := httptest.NewRequest(http.MethodGet, "/v1/messages/archived?to=%2B15550002", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	if fm.gotTo != "+15550002" || fm.gotLimit != 50 || fm.gotOffset != 0 {
		t.Fatalf("expected repo called with to=+15550002 limit=50 offset=0, got to=%q limit=%d offset=%d",
			fm.gotTo, fm.gotLimit, fm.gotOffset)
	}

	body := decodeJSON(t, rr)
	items, ok := body["items"].([]any)
	if !ok {
		t.Fatalf("expected items array, got %T %v", body["items"], body)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
}

func TestListArchivedMessages_ParsesLimitOffset(t *testing.T) {
	fm := &fakeMessages{}
	mux := newTestServer(t, nil, fm)

	req := httptest.NewRequest(http.MethodGet, "/v1/messages/archived?to=%2B15550002&limit=10&offset=5", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%q", rr.Code, rr.Body.String())
	}
	if fm.gotLimit != 10 || fm.gotOffset != 5 {
		t.Fatalf("expected repo called with limit=10 offset=5, got limit=%d offset=%d", fm.gotLimit, fm.gotOffset)
	}
}

func TestRootLiveness(t *testing.T) {
	mux := newTestServer(t, nil, &fakeMessages{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Voice Exchange") {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}
