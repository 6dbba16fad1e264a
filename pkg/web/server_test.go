package web

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-shade/pkg/anim"
	"github.com/teslashibe/go-shade/pkg/choices"
	"github.com/teslashibe/go-shade/pkg/classifier"
	"github.com/teslashibe/go-shade/pkg/hub"
	"github.com/teslashibe/go-shade/pkg/inference"
	"github.com/teslashibe/go-shade/pkg/session"
	"github.com/teslashibe/go-shade/pkg/tone"
	"github.com/teslashibe/go-shade/pkg/tracking"
	"github.com/teslashibe/go-shade/pkg/video"
)

type testServer struct {
	server   *Server
	store    *choices.JSONStore
	recorder *choices.Recorder
	mock     *inference.Mock
}

// newTestServer wires a running session with a mock classifier, a pushed
// video frame and a JSON choice store.
func newTestServer(t *testing.T, answer string, withClassifier bool) *testServer {
	t.Helper()
	reg := tone.Default()
	ctx, cancel := context.WithCancel(context.Background())

	events := hub.New("events")
	go events.Run(ctx)

	store, err := choices.NewJSONStore(filepath.Join(t.TempDir(), "choices.json"))
	if err != nil {
		t.Fatal(err)
	}
	rec := choices.NewRecorder(store, nil)

	src := video.NewPushed(0)
	src.Set(solid(320, 240, color.RGBA{150, 119, 89, 255}))

	ts := &testServer{store: store, recorder: rec, mock: inference.NewMock(answer)}

	deps := session.Deps{
		Tracker:   tracking.NewStatic(tracking.SyntheticFace(tracking.MeshLandmarks)),
		Video:     src,
		Recorder:  rec,
		Publisher: events,
		Clock:     anim.NewManualClock(time.Unix(0, 0)),
	}
	if withClassifier {
		ccfg := classifier.DefaultConfig()
		ccfg.SwatchPath = ""
		cls, err := classifier.New(ccfg, ts.mock, reg)
		if err != nil {
			t.Fatal(err)
		}
		deps.Classifier = cls
	}

	sess, err := session.New(session.DefaultConfig(), reg, deps)
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		sess.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		rec.Wait()
		cancel()
		<-done
	})

	ts.server = NewServer(Options{
		Session: sess,
		Events:  events,
		Choices: store,
	})
	return ts
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.server.App().Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decode(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
}

func TestTones(t *testing.T) {
	ts := newTestServer(t, "", false)
	resp, body := ts.do(t, "GET", "/api/tones", "")
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}
	var tones []ToneInfo
	decode(t, body, &tones)
	if len(tones) != 4 || tones[2].Name != "RAVEN" || tones[2].Hex != "#967759" {
		t.Errorf("tones = %+v", tones)
	}
}

func TestSelection(t *testing.T) {
	ts := newTestServer(t, "", false)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		index  int
	}{
		{"get default", "GET", "/api/selection", "", 200, 0},
		{"select index", "POST", "/api/selection", `{"index":2}`, 200, 2},
		{"out of range", "POST", "/api/selection", `{"index":9}`, 400, -1},
		{"unknown name", "POST", "/api/selection", `{"name":"teal"}`, 404, -1},
		{"select name", "POST", "/api/selection", `{"name":"bojangles"}`, 200, 3},
		{"next wraps", "POST", "/api/selection/next", "", 200, 0},
		{"previous wraps", "POST", "/api/selection/previous", "", 200, 3},
		{"missing fields", "POST", "/api/selection", `{}`, 400, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.do(t, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("Status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			if tt.index < 0 {
				return
			}
			var st session.State
			decode(t, body, &st)
			if st.Index != tt.index {
				t.Errorf("Index = %d, want %d", st.Index, tt.index)
			}
		})
	}
}

func TestModeSwitch(t *testing.T) {
	ts := newTestServer(t, "", false)

	ts.do(t, "POST", "/api/selection", `{"index":2}`)
	resp, body := ts.do(t, "POST", "/api/mode", `{"mode":"dots"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d (%s)", resp.StatusCode, body)
	}
	var st session.State
	decode(t, body, &st)
	if st.Mode != "DOTS" || st.Index != 0 {
		t.Errorf("after switch: %+v", st)
	}

	resp, _ = ts.do(t, "POST", "/api/mode", `{"mode":"spiral"}`)
	if resp.StatusCode != 400 {
		t.Errorf("unknown mode status = %d, want 400", resp.StatusCode)
	}

	resp, body = ts.do(t, "GET", "/api/mode", "")
	if resp.StatusCode != 200 || !strings.Contains(string(body), "DOTS") {
		t.Errorf("GET /api/mode = %d %s", resp.StatusCode, body)
	}
}

func TestInputRoutes(t *testing.T) {
	ts := newTestServer(t, "", false)

	resp, body := ts.do(t, "POST", "/api/input/key", `{"key":"ArrowRight"}`)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "swipe_right") {
		t.Errorf("key = %d %s", resp.StatusCode, body)
	}

	resp, body = ts.do(t, "POST", "/api/input/swipe", `{"start_x":300,"end_x":100}`)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "swipe_left") {
		t.Errorf("swipe = %d %s", resp.StatusCode, body)
	}

	resp, body = ts.do(t, "POST", "/api/input/scroll", `{"delta_y":50}`)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "true") {
		t.Errorf("scroll = %d %s", resp.StatusCode, body)
	}

	resp, _ = ts.do(t, "POST", "/api/input/click", `{"x":10,"y":10,"width":0,"height":0}`)
	if resp.StatusCode != 400 {
		t.Errorf("click with empty viewport = %d, want 400", resp.StatusCode)
	}

	resp, _ = ts.do(t, "POST", "/api/input/drag", `{"phase":"wiggle"}`)
	if resp.StatusCode != 400 {
		t.Errorf("bad drag phase = %d, want 400", resp.StatusCode)
	}
	resp, body = ts.do(t, "POST", "/api/input/drag", `{"phase":"release","x":5}`)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "none") {
		t.Errorf("release without press = %d %s", resp.StatusCode, body)
	}
}

func TestSuggest(t *testing.T) {
	ts := newTestServer(t, "The fabric most suited for this person is Raven", true)

	resp, body := ts.do(t, "POST", "/api/suggest", "")
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d (%s)", resp.StatusCode, body)
	}
	var out SuggestResponse
	decode(t, body, &out)
	if out.Suggested == nil || *out.Suggested != 2 || out.Tone != "RAVEN" {
		t.Errorf("suggest = %+v", out)
	}

	// the selection is untouched
	_, body = ts.do(t, "GET", "/api/selection", "")
	var st session.State
	decode(t, body, &st)
	if st.Index != 0 || st.Suggested == nil || *st.Suggested != 2 {
		t.Errorf("state = %+v", st)
	}
}

func TestSuggestUnmatched(t *testing.T) {
	ts := newTestServer(t, "I cannot tell from this photo.", true)
	resp, body := ts.do(t, "POST", "/api/suggest", "")
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"suggested":null`) {
		t.Errorf("body = %s, want null suggestion", body)
	}
}

func TestSuggestWithoutClassifier(t *testing.T) {
	ts := newTestServer(t, "", false)
	resp, _ := ts.do(t, "POST", "/api/suggest", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", resp.StatusCode)
	}
}

func TestChoices(t *testing.T) {
	ts := newTestServer(t, "The fabric most suited for this person is Uday", true)

	ts.do(t, "POST", "/api/suggest", "")
	ts.do(t, "POST", "/api/selection", `{"index":1}`)
	resp, body := ts.do(t, "POST", "/api/choices", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Status = %d (%s)", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"agreed":true`) {
		t.Errorf("confirm body = %s", body)
	}
	ts.recorder.Wait()

	resp, body = ts.do(t, "GET", "/api/choices?limit=10", "")
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d", resp.StatusCode)
	}
	var out struct {
		Choices []choices.Choice `json:"choices"`
		Count   int              `json:"count"`
	}
	decode(t, body, &out)
	if out.Count != 1 || out.Choices[0].UserTone != "UDAY" || out.Choices[0].AITone != "UDAY" {
		t.Errorf("choices = %+v", out)
	}
}

func TestSample(t *testing.T) {
	ts := newTestServer(t, "", false)
	// let the loop see the face
	time.Sleep(50 * time.Millisecond)

	resp, body := ts.do(t, "GET", "/api/sample", "")
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d (%s)", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "RAVEN") {
		t.Errorf("sample = %s, want nearest RAVEN", body)
	}
}

func TestOverlayPNG(t *testing.T) {
	ts := newTestServer(t, "", false)
	time.Sleep(50 * time.Millisecond)

	resp, body := ts.do(t, "GET", "/api/overlay.png?width=320&height=240", "")
	if resp.StatusCode != 200 {
		t.Fatalf("Status = %d (%s)", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %s", ct)
	}
	img, err := png.Decode(strings.NewReader(string(body)))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
		t.Errorf("size = %v", img.Bounds())
	}

	resp, _ = ts.do(t, "GET", "/api/overlay.png?width=99999", "")
	if resp.StatusCode != 400 {
		t.Errorf("huge overlay status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthAndWebsocketGuard(t *testing.T) {
	ts := newTestServer(t, "", false)

	resp, body := ts.do(t, "GET", "/api/health", "")
	if resp.StatusCode != 200 || !strings.Contains(string(body), "ok") {
		t.Errorf("health = %d %s", resp.StatusCode, body)
	}

	resp, _ = ts.do(t, "GET", "/ws/selection", "")
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("plain GET /ws/selection = %d, want 426", resp.StatusCode)
	}
}
