package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	incdomain "plate-registry/internal/domain/incident"
	"plate-registry/internal/domain/plate"
	"plate-registry/internal/ocr"
	"plate-registry/internal/repository"
	"plate-registry/internal/service"
)

type stubEngine struct {
	candidates []plate.Candidate
	err        error
}

func (s stubEngine) Recognize(context.Context, []byte) ([]plate.Candidate, error) {
	return s.candidates, s.err
}

type stubResolver struct {
	match *repository.VehicleWithOwner
}

func (s stubResolver) FindByPlate(context.Context, string) (*repository.VehicleWithOwner, error) {
	if s.match == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.match, nil
}

func newRecognitionRouter(t *testing.T, engine stubEngine, resolver stubResolver) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recognition := service.NewRecognitionService(engine, resolver, 0.5, 0, zerolog.Nop())
	handler := NewHandler(nil, recognition, nil, zerolog.Nop())
	router := gin.New()
	handler.Register(router)
	return router
}

func imageUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "plate.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake image bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	writer.Close()
	return &body, writer.FormDataContentType()
}

func TestRecognizeImageRegistered(t *testing.T) {
	engine := stubEngine{candidates: []plate.Candidate{{RawText: "abc 123", Confidence: 0.9}}}
	resolver := stubResolver{match: &repository.VehicleWithOwner{
		Vehicle: repository.Vehicle{ID: 1, Plate: "ABC123", Brand: "Nissan", Model: "Sentra", Color: "Rojo"},
		Owner:   repository.Person{ID: 1, Name: "Juan"},
	}}
	router := newRecognitionRouter(t, engine, resolver)

	body, contentType := imageUpload(t)
	req := httptest.NewRequest("POST", "/api/v1/recognitions", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data service.RecognitionResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Plate.NormalizedText != "ABC123" {
		t.Errorf("expected ABC123, got %q", resp.Data.Plate.NormalizedText)
	}
	if !resp.Data.Registered || resp.Data.Owner == nil || resp.Data.Owner.Name != "Juan" {
		t.Errorf("expected registered match for Juan, got %+v", resp.Data)
	}
}

func TestRecognizeImageUnregisteredPlateIs404(t *testing.T) {
	engine := stubEngine{candidates: []plate.Candidate{{RawText: "ZZ-999", Confidence: 0.9}}}
	router := newRecognitionRouter(t, engine, stubResolver{})

	body, contentType := imageUpload(t)
	req := httptest.NewRequest("POST", "/api/v1/recognitions", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "ZZ-999") {
		t.Errorf("404 body should include the resolved plate: %s", w.Body.String())
	}
}

func TestRecognizeImageOCRFailuresAre400(t *testing.T) {
	cases := []struct {
		name   string
		engine stubEngine
	}{
		{"no text", stubEngine{err: ocr.ErrNoTextDetected}},
		{"bad image", stubEngine{err: ocr.ErrImageDecode}},
		{"all filtered", stubEngine{candidates: []plate.Candidate{{RawText: "AB-123", Confidence: 0.1}}}},
	}
	for _, c := range cases {
		router := newRecognitionRouter(t, c.engine, stubResolver{})
		body, contentType := imageUpload(t)
		req := httptest.NewRequest("POST", "/api/v1/recognitions", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d: %s", c.name, w.Code, w.Body.String())
		}
	}
}

func TestRecognizeImageMissingUpload(t *testing.T) {
	router := newRecognitionRouter(t, stubEngine{}, stubResolver{})
	req := httptest.NewRequest("POST", "/api/v1/recognitions", strings.NewReader("no form"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing upload, got %d", w.Code)
	}
}

func TestUpdateIncidentStatusRequiresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(nil, nil, service.NewIncidentService(nil, nil, nil, nil, 0, zerolog.Nop()), zerolog.Nop())
	router := gin.New()
	handler.Register(router)

	req := httptest.NewRequest("PATCH", "/api/v1/incidents/1/status", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing status, got %d", w.Code)
	}

	req = httptest.NewRequest("PATCH", "/api/v1/incidents/not-a-number/status", strings.NewReader(`{"status":"Approved"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestConsistencyErrorIs500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(nil, nil, nil, zerolog.Nop())
	router := gin.New()
	router.GET("/boom", func(c *gin.Context) {
		handler.handleError(c, incdomain.ErrIncomplete)
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for integrity error, got %d", w.Code)
	}
}
