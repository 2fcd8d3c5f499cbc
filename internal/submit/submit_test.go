package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"routined/internal/routine"
	logx "routined/pkg/logx"
)

func sampleTasks() []routine.Task {
	start := time.Date(2026, time.October, 20, 10, 0, 0, 0, time.UTC)
	return []routine.Task{{
		ID:          "t-1",
		Name:        "patrol",
		Action:      "patrol",
		MaxDuration: 30 * time.Minute,
		Args:        map[string]string{"route": "east"},
		StartAfter:  start,
		EndBefore:   start.Add(2 * time.Hour),
	}}
}

func TestHTTPSubmit(t *testing.T) {
	t.Parallel()

	var got Batch
	var auth, reqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		auth = r.Header.Get("Authorization")
		reqID = r.Header.Get("x-request-id")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	h, err := NewHTTP(HTTPConfig{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer x"}}, logx.Nop())
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	if err := h.Submit(context.Background(), sampleTasks()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if auth != "Bearer x" {
		t.Fatalf("Authorization = %q", auth)
	}
	if reqID == "" || reqID != got.BatchID {
		t.Fatalf("x-request-id %q does not match batch id %q", reqID, got.BatchID)
	}
	if len(got.Tasks) != 1 || got.Tasks[0].Name != "patrol" || got.Tasks[0].Args["route"] != "east" {
		t.Fatalf("unexpected batch: %+v", got)
	}
	if !got.Tasks[0].StartAfter.Equal(sampleTasks()[0].StartAfter) {
		t.Fatalf("start_after = %v", got.Tasks[0].StartAfter)
	}
}

func TestHTTPSubmitNon2xx(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "executor busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h, err := NewHTTP(HTTPConfig{URL: srv.URL, Timeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	err = h.Submit(context.Background(), sampleTasks())
	if err == nil || !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "executor busy") {
		t.Fatalf("err = %v, want 503 with body", err)
	}
}

func TestNewHTTPRejectsBadURL(t *testing.T) {
	t.Parallel()

	for _, u := range []string{"ftp://host/x", "::"} {
		if _, err := NewHTTP(HTTPConfig{URL: u}, logx.Nop()); err == nil {
			t.Fatalf("NewHTTP(%q) expected error", u)
		}
	}
}

func TestMultiTriesAllAndReturnsFirstError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	a := routine.NewMockSubmitter(ctrl)
	b := routine.NewMockSubmitter(ctrl)
	c := routine.NewMockSubmitter(ctrl)

	errA := errors.New("a down")
	gomock.InOrder(
		a.EXPECT().Submit(gomock.Any(), gomock.Len(1)).Return(errA),
		b.EXPECT().Submit(gomock.Any(), gomock.Len(1)).Return(errors.New("b down")),
		c.EXPECT().Submit(gomock.Any(), gomock.Len(1)).Return(nil),
	)

	if err := (Multi{a, b, c}).Submit(context.Background(), sampleTasks()); !errors.Is(err, errA) {
		t.Fatalf("err = %v, want %v", err, errA)
	}
}

func TestNewFallsBackToLog(t *testing.T) {
	t.Parallel()

	sub, closeFn, err := New(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeFn()
	if _, ok := sub.(*Log); !ok {
		t.Fatalf("submitter = %T, want *Log", sub)
	}
	if err := sub.Submit(context.Background(), sampleTasks()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	sub, _, err = New(Config{Log: true, HTTP: HTTPConfig{URL: "http://127.0.0.1:1/submit"}}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m, ok := sub.(Multi); !ok || len(m) != 2 {
		t.Fatalf("submitter = %T, want Multi of 2", sub)
	}
}
