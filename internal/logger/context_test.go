package logger

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func bufferedLogger(buf *bytes.Buffer) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

func TestWithContextCarriesIDs(t *testing.T) {
	var buf bytes.Buffer
	l := bufferedLogger(&buf)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "42")
	ctx = WithNotificationID(ctx, "7")

	l.WithContext(ctx).Info("processing")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-1"`, `"user_id":"42"`, `"notification_id":"7"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %s", out, want)
		}
	}
}

func TestWithContextEmptyContextAddsNothing(t *testing.T) {
	var buf bytes.Buffer
	l := bufferedLogger(&buf)

	l.WithContext(context.Background()).Info("processing")

	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id in %q", buf.String())
	}
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == "" || a == b {
		t.Errorf("expected unique non-empty ids, got %q and %q", a, b)
	}
}

func TestRequestLoggingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	l := bufferedLogger(&buf)

	var ctxRequestID string
	router := gin.New()
	router.Use(RequestLoggingMiddleware(l))
	router.GET("/ping", func(c *gin.Context) {
		ctxRequestID, _ = c.Request.Context().Value(ContextKeyRequestID).(string)
		c.Status(http.StatusOK)
	})

	t.Run("generates request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		router.ServeHTTP(w, req)

		if ctxRequestID == "" {
			t.Error("handler context has no request id")
		}
		if got := w.Header().Get("x-request-id"); got != ctxRequestID {
			t.Errorf("response header id %q, context id %q", got, ctxRequestID)
		}
		if !strings.Contains(buf.String(), ctxRequestID) {
			t.Error("request logs do not carry the request id")
		}
	})

	t.Run("reuses incoming request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("x-request-id", "upstream-7")
		router.ServeHTTP(w, req)

		if ctxRequestID != "upstream-7" {
			t.Errorf("expected upstream id to be reused, got %q", ctxRequestID)
		}
	})
}
