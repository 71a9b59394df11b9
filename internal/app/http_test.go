package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vigil/api/internal/store"
)

func newTestHandler(t *testing.T) (*fakeStore, http.Handler, map[string]Session) {
	t.Helper()
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	sessions := map[string]Session{
		"admin":    seedOperator(t, svc, "admin", "admin-pass-1", "admin"),
		"recorder": seedOperator(t, svc, "zhao", "recorder-pass", "recorder"),
		"viewer":   seedOperator(t, svc, "wang", "viewer-pass-1", "viewer"),
	}
	return fs, NewHTTPServer(svc, "*").Handler(), sessions
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return payload
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	_, handler, _ := newTestHandler(t)

	for _, path := range []string{
		"/api/persons",
		"/api/exceptions",
		"/api/exceptions/summary",
		"/api/search/persons",
	} {
		recorder := doJSON(t, handler, http.MethodGet, path, "", nil)
		if recorder.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: got %d, want 401", path, recorder.Code)
		}
	}
}

func TestSignInOverHTTP(t *testing.T) {
	_, handler, _ := newTestHandler(t)

	recorder := doJSON(t, handler, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"username": "zhao",
		"password": "wrong",
	})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: got %d, want 401", recorder.Code)
	}

	recorder = doJSON(t, handler, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"username": "zhao",
		"password": "recorder-pass",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("sign in: got %d, want 200: %s", recorder.Code, recorder.Body.String())
	}
	payload := decodeResponse(t, recorder)
	if payload["accessToken"] == "" || payload["refreshToken"] == "" {
		t.Fatalf("expected tokens in response, got %v", payload)
	}
	if payload["role"] != "recorder" {
		t.Fatalf("expected recorder role, got %v", payload["role"])
	}

	recorder = doJSON(t, handler, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": payload["refreshToken"].(string),
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("refresh: got %d, want 200", recorder.Code)
	}
}

func TestSessionEndpointReportsAuthState(t *testing.T) {
	_, handler, sessions := newTestHandler(t)

	recorder := doJSON(t, handler, http.MethodGet, "/api/session", "", nil)
	payload := decodeResponse(t, recorder)
	if payload["authenticated"] != false {
		t.Fatalf("expected unauthenticated, got %v", payload)
	}

	recorder = doJSON(t, handler, http.MethodGet, "/api/session", sessions["viewer"].Token, nil)
	payload = decodeResponse(t, recorder)
	if payload["authenticated"] != true || payload["role"] != "viewer" {
		t.Fatalf("expected authenticated viewer, got %v", payload)
	}
}

func TestViewerCanReadButNotRecord(t *testing.T) {
	fs, handler, sessions := newTestHandler(t)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	recorder := doJSON(t, handler, http.MethodGet, "/api/exceptions", sessions["viewer"].Token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("viewer list exceptions: got %d, want 200", recorder.Code)
	}

	recorder = doJSON(t, handler, http.MethodPost, "/api/observations/daily-status", sessions["viewer"].Token, DailyStatusInput{
		PersonID: "110101199001011234",
		ObsDate:  "2024-03-01",
		Mood:     "abnormal",
	})
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("viewer record observation: got %d, want 403", recorder.Code)
	}

	recorder = doJSON(t, handler, http.MethodGet, "/api/exceptions/export", sessions["viewer"].Token, nil)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("viewer export: got %d, want 403", recorder.Code)
	}
}

func TestAdminOnlyRoutes(t *testing.T) {
	fs, handler, sessions := newTestHandler(t)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	body := map[string]string{
		"username":    "chen",
		"displayName": "Chen",
		"password":    "operator-pass",
		"role":        "recorder",
	}
	recorder := doJSON(t, handler, http.MethodPost, "/api/users", sessions["recorder"].Token, body)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("recorder create operator: got %d, want 403", recorder.Code)
	}
	recorder = doJSON(t, handler, http.MethodPost, "/api/users", sessions["admin"].Token, body)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("admin create operator: got %d, want 201: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, handler, http.MethodDelete, "/api/persons/110101199001011234", sessions["recorder"].Token, nil)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("recorder delete person: got %d, want 403", recorder.Code)
	}
	recorder = doJSON(t, handler, http.MethodDelete, "/api/persons/110101199001011234", sessions["admin"].Token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("admin delete person: got %d, want 200", recorder.Code)
	}
}

func TestObservationLifecycleOverHTTP(t *testing.T) {
	_, handler, sessions := newTestHandler(t)
	token := sessions["recorder"].Token

	recorder := doJSON(t, handler, http.MethodPost, "/api/persons", token, PersonInput{
		ID:      "110101199001011234",
		Name:    "Li Ming",
		Company: "3",
		Platoon: "2",
		Squad:   "1",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create person: got %d, want 201: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, handler, http.MethodPost, "/api/observations/daily-status", token, DailyStatusInput{
		PersonID: "110101199001011234",
		ObsDate:  "2024-03-01",
		Mood:     "abnormal",
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create observation: got %d, want 201: %s", recorder.Code, recorder.Body.String())
	}
	created := decodeResponse(t, recorder)
	obsID, _ := created["id"].(string)
	if obsID == "" {
		t.Fatalf("expected observation id, got %v", created)
	}

	recorder = doJSON(t, handler, http.MethodGet, "/api/exceptions?dateFrom=2024-03-01&dateTo=2024-03-01", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("list exceptions: got %d, want 200", recorder.Code)
	}
	listing := decodeResponse(t, recorder)
	records, _ := listing["records"].([]any)
	if len(records) != 1 {
		t.Fatalf("expected 1 exception record, got %v", listing)
	}

	recorder = doJSON(t, handler, http.MethodGet, "/api/persons/110101199001011234/observations/daily-status", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("list observations: got %d, want 200", recorder.Code)
	}
	observations := decodeResponse(t, recorder)
	if items, _ := observations["observations"].([]any); len(items) != 1 {
		t.Fatalf("expected 1 observation, got %v", observations)
	}

	recorder = doJSON(t, handler, http.MethodGet, "/api/exceptions/detail?personId=110101199001011234&date=2024-03-01&source=daily-status", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("exception detail: got %d, want 200: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, handler, http.MethodGet, "/api/persons/110101199001011234/series?dateFrom=2024-03-01&dateTo=2024-03-03", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("person series: got %d, want 200", recorder.Code)
	}
	series := decodeResponse(t, recorder)
	if points, _ := series["series"].([]any); len(points) != 3 {
		t.Fatalf("expected 3 series points, got %v", series)
	}

	recorder = doJSON(t, handler, http.MethodDelete, "/api/observations/daily-status/"+obsID, token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("delete observation: got %d, want 200", recorder.Code)
	}
}

func TestExceptionExportHeaders(t *testing.T) {
	fs, handler, sessions := newTestHandler(t)
	seedPerson(t, fs, "110101199001011234", "Li Ming")
	fs.daily = append(fs.daily, store.DailyStatus{
		ID:       "ds_1",
		PersonID: "110101199001011234",
		ObsDate:  "2024-03-01",
		Mood:     "abnormal",
	})

	recorder := doJSON(t, handler, http.MethodGet, "/api/exceptions/export?format=csv", sessions["recorder"].Token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("export: got %d, want 200: %s", recorder.Code, recorder.Body.String())
	}
	if got := recorder.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := recorder.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Fatalf("unexpected content disposition %q", got)
	}

	recorder = doJSON(t, handler, http.MethodGet, "/api/exceptions/export?format=docx", sessions["recorder"].Token, nil)
	if recorder.Code == http.StatusOK {
		t.Fatal("expected unknown export format to fail")
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	_, handler, sessions := newTestHandler(t)

	recorder := doJSON(t, handler, http.MethodGet, "/api/unknown", sessions["viewer"].Token, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("unknown route: got %d, want 404", recorder.Code)
	}
}

func TestUnknownObservationSourceIsRejected(t *testing.T) {
	fs, handler, sessions := newTestHandler(t)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	recorder := doJSON(t, handler, http.MethodPost, "/api/observations/palm-reading", sessions["recorder"].Token, map[string]string{
		"personId": "110101199001011234",
		"obsDate":  "2024-03-01",
	})
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown source: got %d, want 422", recorder.Code)
	}
}
