package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pulseline/notifyd/internal/hub"
	"github.com/pulseline/notifyd/internal/logger"
	"github.com/pulseline/notifyd/internal/metrics"
	"github.com/pulseline/notifyd/internal/notify"
	"github.com/pulseline/notifyd/internal/store"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError, Format: "json"})
}

// fakeStore keeps users and notifications in memory.
type fakeStore struct {
	users         map[int64]store.User
	notifications []store.Notification
	nextID        int64
}

func newFakeStore(users ...store.User) *fakeStore {
	f := &fakeStore{users: make(map[int64]store.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeStore) CreateUser(ctx context.Context, name, email, phone string) (store.User, error) {
	f.nextID++
	u := store.User{ID: f.nextID, Name: name, Email: email, Phone: phone}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]store.User, error) {
	users := make([]store.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeStore) GetUser(ctx context.Context, id int64) (store.User, error) {
	u, ok := f.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateNotification(ctx context.Context, userID int64, typ, title, content string) (store.Notification, error) {
	f.nextID++
	n := store.Notification{
		ID:        f.nextID,
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now(),
	}
	f.notifications = append(f.notifications, n)
	return n, nil
}

func (f *fakeStore) ListNotifications(ctx context.Context, userID int64, typ string, read *bool) ([]store.Notification, error) {
	out := []store.Notification{}
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteNotification(ctx context.Context, id int64) error {
	for i, n := range f.notifications {
		if n.ID == id {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// fakePublisher records enqueued jobs.
type fakePublisher struct {
	jobs []notify.DeliveryJob
	err  error
}

func (f *fakePublisher) Enqueue(ctx context.Context, job notify.DeliveryJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

// fakeAdapter records targets and returns a canned result.
type fakeAdapter struct {
	targets []string
	result  notify.Result
}

func (a *fakeAdapter) Send(ctx context.Context, target, title, content string) notify.Result {
	a.targets = append(a.targets, target)
	return a.result
}

type testEnv struct {
	router   *gin.Engine
	producer *fakePublisher
	email    *fakeAdapter
	sms      *fakeAdapter
	inApp    *fakeAdapter
}

func newTestEnv(st Store) *testEnv {
	gin.SetMode(gin.TestMode)
	log := testLogger()

	env := &testEnv{
		producer: &fakePublisher{},
		email:    &fakeAdapter{result: notify.Result{OK: true, Detail: "Email notification sent successfully"}},
		sms:      &fakeAdapter{result: notify.Result{OK: true, Detail: "SMS sent successfully. SID: SM123"}},
		inApp:    &fakeAdapter{result: notify.Result{OK: true, Detail: "In-app notification sent"}},
	}

	h := NewHandler(st, env.producer, env.email, env.sms, env.inApp, log)
	ws := hub.NewHandler(hub.New(log), log)
	env.router = NewRouter(h, ws, log, "*")
	return env
}

func perform(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestCreateNotificationNormalizesType(t *testing.T) {
	env := newTestEnv(newFakeStore(store.User{ID: 1, Name: "Ann", Email: "a@b.com", Phone: "+15550000"}))

	w := perform(env.router, http.MethodPost, "/notifications",
		`{"user_id":1,"type":"Email","title":"T","content":"C"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.producer.jobs) != 1 {
		t.Fatalf("expected 1 enqueued job, got %d", len(env.producer.jobs))
	}
	if got := env.producer.jobs[0].Type; got != notify.TypeEmail {
		t.Errorf("expected normalized type %q, got %q", notify.TypeEmail, got)
	}
	if body := decodeBody(t, w); body["type"] != "email" {
		t.Errorf("stored type %v not lowercased", body["type"])
	}
}

func TestCreateNotificationInvalidType(t *testing.T) {
	env := newTestEnv(newFakeStore(store.User{ID: 1, Email: "a@b.com"}))

	w := perform(env.router, http.MethodPost, "/notifications",
		`{"user_id":1,"type":"fax","title":"T","content":"C"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateNotificationDirectInAppCountsDelivery(t *testing.T) {
	env := newTestEnv(newFakeStore(store.User{ID: 7, Name: "Ann"}))

	before := testutil.ToFloat64(metrics.DeliveriesTotal.WithLabelValues("in-app", "success"))
	w := perform(env.router, http.MethodPost, "/notifications",
		`{"user_id":7,"type":"in-app","title":"T","content":"C"}`)
	after := testutil.ToFloat64(metrics.DeliveriesTotal.WithLabelValues("in-app", "success"))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if len(env.inApp.targets) != 1 || env.inApp.targets[0] != "7" {
		t.Fatalf("in-app adapter targets: %v", env.inApp.targets)
	}
	if len(env.producer.jobs) != 0 {
		t.Error("in-app delivery must not be enqueued")
	}
	if body := decodeBody(t, w); body["message"] != "In-app notification sent directly." {
		t.Errorf("unexpected message %v", body["message"])
	}
	if after-before != 1 {
		t.Errorf("expected delivery counter to grow by 1, got %v", after-before)
	}
}

func TestCreateNotificationDegradedOnEnqueueFailure(t *testing.T) {
	env := newTestEnv(newFakeStore(store.User{ID: 1, Email: "a@b.com"}))
	env.producer.err = errors.New("connection refused")

	w := perform(env.router, http.MethodPost, "/notifications",
		`{"user_id":1,"type":"email","title":"T","content":"C"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("degraded enqueue must still return 201, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["message"] != "Notification saved but queueing failed. RabbitMQ may be down." {
		t.Errorf("unexpected message %v", body["message"])
	}
	if body["success"] != true {
		t.Errorf("degraded enqueue must still report success")
	}
}

func TestSendDirectNotificationEmail(t *testing.T) {
	env := newTestEnv(newFakeStore(store.User{ID: 1, Email: "a@b.com", Phone: "+15550000"}))

	before := testutil.ToFloat64(metrics.DeliveriesTotal.WithLabelValues("email", "success"))
	w := perform(env.router, http.MethodPost, "/send-direct-notification",
		`{"user_id":1,"type":"Email","title":"T","content":"C"}`)
	after := testutil.ToFloat64(metrics.DeliveriesTotal.WithLabelValues("email", "success"))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.email.targets) != 1 || env.email.targets[0] != "a@b.com" {
		t.Fatalf("email adapter targets: %v", env.email.targets)
	}
	if len(env.producer.jobs) != 0 {
		t.Error("direct send must bypass the queue")
	}
	body := decodeBody(t, w)
	if body["success"] != true || body["message"] != "Email notification sent successfully" {
		t.Errorf("unexpected body %v", body)
	}
	if after-before != 1 {
		t.Errorf("expected delivery counter to grow by 1, got %v", after-before)
	}
}

func TestSendDirectNotificationFailureReturns500(t *testing.T) {
	env := newTestEnv(newFakeStore(store.User{ID: 1, Phone: "+15550000"}))
	env.sms.result = notify.Result{OK: false, Detail: "Missing Twilio credentials"}

	w := perform(env.router, http.MethodPost, "/send-direct-notification",
		`{"user_id":1,"type":"sms","title":"T","content":"C"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["success"] != false || body["message"] != "Missing Twilio credentials" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestSendDirectNotificationUnknownUser(t *testing.T) {
	env := newTestEnv(newFakeStore())

	w := perform(env.router, http.MethodPost, "/send-direct-notification",
		`{"user_id":9,"type":"email","title":"T","content":"C"}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["error"] != "User not found" {
		t.Errorf("unexpected error %v", body["error"])
	}
}
