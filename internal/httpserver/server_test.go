package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	cfgpkg "github.com/taoyao-code/hab-payload/internal/config"
	"github.com/taoyao-code/hab-payload/internal/link"
	appmetrics "github.com/taoyao-code/hab-payload/internal/metrics"
	"github.com/taoyao-code/hab-payload/internal/state"
)

func newTestServer(ready bool) (*Server, *state.Store, *link.TxQueue) {
	cfg := cfgpkg.HTTPConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	reg := appmetrics.NewRegistry()
	handler := appmetrics.Handler(reg)
	st := state.NewStore()
	q := link.NewTxQueue(16)
	srv := New(cfg, "/metrics", handler, func() bool { return ready }, st, q, nil)
	return srv, st, q
}

func TestHealthzReadyzMetrics(t *testing.T) {
	srv, _, _ := newTestServer(true)

	// healthz
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/healthz code=%d", rr.Code)
	}

	// readyz ok
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/readyz code=%d", rr.Code)
	}

	// metrics
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics code=%d", rr.Code)
	}
}

func TestReadyzNotReady(t *testing.T) {
	srv, _, _ := newTestServer(false)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz not-ready code=%d", rr.Code)
	}
}

func TestStatusSnapshot(t *testing.T) {
	srv, st, q := newTestServer(true)
	st.SetStatus(state.FieldSSDVTransmitting, true)
	q.Push(&link.RadioPacket{Data: []byte("x")}, false, time.Millisecond)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/api/v1/status code=%d", rr.Code)
	}

	var body struct {
		Config struct {
			CameraImageSize  string `json:"cameraImageSize"`
			SSDVCycleTimeSec int    `json:"ssdvCycleTimeSec"`
		} `json:"config"`
		Status struct {
			SSDVTransmitting bool `json:"ssdvTransmitting"`
		} `json:"status"`
		Link struct {
			QueueDepth    int `json:"queueDepth"`
			QueueCapacity int `json:"queueCapacity"`
		} `json:"link"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Config.CameraImageSize != "VGA" {
		t.Fatalf("cameraImageSize=%q", body.Config.CameraImageSize)
	}
	if body.Config.SSDVCycleTimeSec != 60 {
		t.Fatalf("ssdvCycleTimeSec=%d", body.Config.SSDVCycleTimeSec)
	}
	if !body.Status.SSDVTransmitting {
		t.Fatal("ssdvTransmitting should be true")
	}
	if body.Link.QueueDepth != 1 || body.Link.QueueCapacity != 16 {
		t.Fatalf("queue depth=%d capacity=%d", body.Link.QueueDepth, body.Link.QueueCapacity)
	}
}

func TestCodesTable(t *testing.T) {
	srv, _, _ := newTestServer(true)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/codes", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/api/v1/codes code=%d", rr.Code)
	}

	var codes map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &codes); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if codes["0x1000"] != "system booting" {
		t.Fatalf("0x1000=%q", codes["0x1000"])
	}
}
