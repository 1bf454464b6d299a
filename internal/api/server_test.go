package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/orchestrator"
)

func testRouter(status *Status) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/healthz", healthHandler)
	router.GET("/status", statusHandler(status))
	return router
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	testRouter(NewStatus()).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestStatusReflectsCycle(t *testing.T) {
	status := NewStatus()
	router := testRouter(status)

	get := func() map[string]interface{} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		return body
	}

	if body := get(); body["running"] != false {
		t.Errorf("expected running=false before any cycle, got %v", body["running"])
	}
	if _, ok := get()["last_cycle"]; ok {
		t.Error("expected no last_cycle before any cycle")
	}

	status.CycleStarted()
	if body := get(); body["running"] != true {
		t.Errorf("expected running=true during cycle, got %v", body["running"])
	}

	status.CycleFinished(&orchestrator.Result{
		StartedAt: time.Now(), FinishedAt: time.Now(), Selected: 3, Succeeded: 2, Failed: 1,
	})
	body := get()
	if body["running"] != false {
		t.Errorf("expected running=false after cycle, got %v", body["running"])
	}
	last, ok := body["last_cycle"].(map[string]interface{})
	if !ok {
		t.Fatal("expected last_cycle in body")
	}
	if last["selected"] != float64(3) {
		t.Errorf("expected selected=3, got %v", last["selected"])
	}
}
