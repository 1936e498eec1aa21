package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestError_NullData(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, http.StatusNotFound, "Category not found")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"].(float64) != http.StatusNotFound {
		t.Fatalf("expected status field 404, got %v", body["status"])
	}
	if body["message"] != "Category not found" {
		t.Fatalf("unexpected message %v", body["message"])
	}
	if v, ok := body["data"]; !ok || v != nil {
		t.Fatalf("expected data=null, got %v", v)
	}
}

func TestOK_NullMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	OK(c, gin.H{"id": 1})

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, ok := body["message"]; !ok || v != nil {
		t.Fatalf("expected message=null, got %v", v)
	}
}
