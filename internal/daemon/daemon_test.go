package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"sceneforge/internal/api"
	"sceneforge/internal/config"
	"sceneforge/internal/logging"
	"sceneforge/internal/progress"
	"sceneforge/internal/services/manim"
	"sceneforge/internal/testsupport"
)

const sceneSource = `from manim import *

class DemoScene(Scene):
    def construct(self):
        self.play(Create(Circle()))
        self.wait(1)
`

// fakeRenderer writes the expected artifact and succeeds immediately. When
// blocking it waits for cancellation instead; when failing it returns a
// nonzero exit with a captured log.
type fakeRenderer struct {
	blocking bool
	fail     bool
}

func (f *fakeRenderer) Render(ctx context.Context, spec manim.RenderSpec, onProgress manim.ProgressFunc) (string, error) {
	if f.blocking {
		<-ctx.Done()
		return "log", context.Cause(ctx)
	}
	if f.fail {
		return "Error: Circle is not defined\nTraceback (most recent call last)", &manim.ExitError{Code: 1}
	}
	if onProgress != nil {
		onProgress(progress.Update{Percent: 50, Status: "Rendering...", Stage: progress.StageRendering})
	}
	path := filepath.Join(spec.MediaDir, "videos", "scene", spec.Quality.Dir, "output.mp4")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte("video-bytes"), 0o644); err != nil {
		return "", err
	}
	if onProgress != nil {
		onProgress(progress.Update{Percent: 100, Status: "Render complete!", Stage: progress.StageDone})
	}
	return "log", nil
}

func startDaemon(t *testing.T, cfg *config.Config, renderer *fakeRenderer) (*Daemon, string) {
	t.Helper()
	d, err := New(cfg, logging.NewNop(), WithRenderer(renderer))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, "http://" + d.api.Addr()
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func waitForStatus(t *testing.T, base, id, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/api/render/" + id)
		if err != nil {
			t.Fatalf("GET render: %v", err)
		}
		var payload struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		resp.Body.Close()
		if payload.Status == want {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("render %s never reached status %s", id, want)
}

func TestStatusEndpoint(t *testing.T) {
	_, base := startDaemon(t, testsupport.NewConfig(t), &fakeRenderer{})

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	status := decode[api.DaemonStatus](t, resp)
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("expected own pid, got %d", status.PID)
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}
}

func TestRenderLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, base := startDaemon(t, cfg, &fakeRenderer{})

	resp := postJSON(t, base+"/api/render", api.RenderRequest{Source: sceneSource})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	accepted := decode[api.RenderAccepted](t, resp)
	if accepted.Scene != "DemoScene" {
		t.Fatalf("expected detected scene, got %q", accepted.Scene)
	}

	waitForStatus(t, base, accepted.ID, "completed")

	artifact, err := http.Get(base + "/api/render/" + accepted.ID + "/artifact")
	if err != nil {
		t.Fatalf("GET artifact: %v", err)
	}
	defer artifact.Body.Close()
	if artifact.StatusCode != http.StatusOK {
		t.Fatalf("expected artifact 200, got %d", artifact.StatusCode)
	}

	historyResp, err := http.Get(base + "/api/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	history := decode[api.HistoryListResponse](t, historyResp)
	if len(history.Records) != 1 || history.Records[0].Status != "completed" {
		t.Fatalf("unexpected history %+v", history.Records)
	}

	if _, ok := d.Session(accepted.ID); ok {
		t.Fatal("finished session should be dropped from the session map")
	}
}

func TestFailedRenderExposesLog(t *testing.T) {
	_, base := startDaemon(t, testsupport.NewConfig(t), &fakeRenderer{fail: true})

	resp := postJSON(t, base+"/api/render", api.RenderRequest{Source: sceneSource})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	accepted := decode[api.RenderAccepted](t, resp)

	waitForStatus(t, base, accepted.ID, "failed")

	recordResp, err := http.Get(base + "/api/render/" + accepted.ID)
	if err != nil {
		t.Fatalf("GET render: %v", err)
	}
	record := decode[api.HistoryRecord](t, recordResp)
	if record.ErrorMessage == "" {
		t.Fatal("expected error message for failed render")
	}
	if !strings.Contains(record.Log, "Circle is not defined") {
		t.Fatalf("expected captured renderer log in response, got %q", record.Log)
	}

	historyResp, err := http.Get(base + "/api/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	history := decode[api.HistoryListResponse](t, historyResp)
	if len(history.Records) != 1 || !strings.Contains(history.Records[0].Log, "Traceback") {
		t.Fatalf("expected log in history listing, got %+v", history.Records)
	}
}

func TestEventsAfterRenderFinished(t *testing.T) {
	_, base := startDaemon(t, testsupport.NewConfig(t), &fakeRenderer{})

	resp := postJSON(t, base+"/api/render", api.RenderRequest{Source: sceneSource})
	accepted := decode[api.RenderAccepted](t, resp)
	waitForStatus(t, base, accepted.ID, "completed")

	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/api/render/" + accepted.ID + "/events"
	conn, wsResp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	if wsResp != nil {
		wsResp.Body.Close()
	}
	defer conn.Close()

	var event api.ProgressEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if !event.Done || event.Outcome != "completed" || event.Percent != 100 {
		t.Fatalf("expected final completed frame, got %+v", event)
	}
}

func TestRenderBusyThenStop(t *testing.T) {
	_, base := startDaemon(t, testsupport.NewConfig(t), &fakeRenderer{blocking: true})

	first := postJSON(t, base+"/api/render", api.RenderRequest{Source: sceneSource})
	if first.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", first.StatusCode)
	}
	accepted := decode[api.RenderAccepted](t, first)

	second := postJSON(t, base+"/api/render", api.RenderRequest{Source: sceneSource})
	second.Body.Close()
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while busy, got %d", second.StatusCode)
	}

	stop, err := http.Post(base+"/api/render/"+accepted.ID+"/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST stop: %v", err)
	}
	stop.Body.Close()
	if stop.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", stop.StatusCode)
	}

	waitForStatus(t, base, accepted.ID, "cancelled")
}

func TestRenderRejectsBadSyntax(t *testing.T) {
	_, base := startDaemon(t, testsupport.NewConfig(t), &fakeRenderer{})

	resp := postJSON(t, base+"/api/render", api.RenderRequest{Source: "def broken(:\n    pass\n"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestInspectEndpoint(t *testing.T) {
	_, base := startDaemon(t, testsupport.NewConfig(t), &fakeRenderer{})

	resp := postJSON(t, base+"/api/inspect", api.InspectRequest{Source: sceneSource})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	inspect := decode[api.InspectResponse](t, resp)
	if len(inspect.SceneClasses) != 1 || inspect.SceneClasses[0] != "DemoScene" {
		t.Fatalf("unexpected scene classes %v", inspect.SceneClasses)
	}
	if inspect.TotalAnimations != 2 {
		t.Fatalf("expected 2 animations, got %d", inspect.TotalAnimations)
	}
	if !inspect.SyntaxValid {
		t.Fatal("expected valid syntax")
	}
}

func TestUnknownRenderNotFound(t *testing.T) {
	_, base := startDaemon(t, testsupport.NewConfig(t), &fakeRenderer{})

	resp, err := http.Get(base + "/api/render/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAuthTokenRequired(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "secret"
	_, base := startDaemon(t, cfg, &fakeRenderer{})

	resp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, base+"/api/status", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer secret")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with token: %v", err)
	}
	authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", authed.StatusCode)
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	startDaemon(t, cfg, &fakeRenderer{})

	second, err := New(cfg, logging.NewNop(), WithRenderer(&fakeRenderer{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("expected lock conflict")
	}
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestIndexServed(t *testing.T) {
	_, base := startDaemon(t, testsupport.NewConfig(t), &fakeRenderer{})

	resp, err := http.Get(base + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
}
