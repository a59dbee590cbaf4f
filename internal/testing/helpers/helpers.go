// Package helpers provides common test utilities for API tests.
//
// This package includes HTTP request builders, response validators,
// and assertion helpers for testing API endpoints.
package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forgo/fete/api/internal/database"
	"github.com/forgo/fete/api/internal/model"
	"github.com/forgo/fete/api/pkg/jwt"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// ============================================================================
// JWT Helpers
// ============================================================================

// TestJWTSecret signs every token issued by the helpers
const TestJWTSecret = "fete-test-secret-0123456789"

// TestJWTIssuer is the issuer of every token issued by the helpers
const TestJWTIssuer = "fete-test"

// JWTHelper provides JWT token generation for tests
type JWTHelper struct {
	Service *jwt.Service
}

// NewJWTHelper creates a new JWT helper backed by the test secret
func NewJWTHelper(t *testing.T) *JWTHelper {
	t.Helper()

	svc, err := jwt.NewService(jwt.Config{
		Secret:     TestJWTSecret,
		Issuer:     TestJWTIssuer,
		Expiration: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("helpers: failed to create JWT service: %v", err)
	}
	return &JWTHelper{Service: svc}
}

// GenerateToken creates a valid token for the identity
func (h *JWTHelper) GenerateToken(t *testing.T, user *model.Identity) string {
	t.Helper()
	token, err := h.Service.Sign(user.ID, string(user.Role))
	if err != nil {
		t.Fatalf("helpers: failed to sign token: %v", err)
	}
	return token
}

// GenerateExpiredToken creates a correctly signed token that expired an hour ago
func (h *JWTHelper) GenerateExpiredToken(t *testing.T, user *model.Identity) string {
	t.Helper()

	issued := time.Now().Add(-2 * time.Hour)
	claims := jwt.Claims{
		UserID: user.ID,
		Role:   string(user.Role),
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    TestJWTIssuer,
			Subject:   user.ID,
			IssuedAt:  gojwt.NewNumericDate(issued),
			NotBefore: gojwt.NewNumericDate(issued),
			ExpiresAt: gojwt.NewNumericDate(issued.Add(time.Hour)),
		},
	}
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(TestJWTSecret))
	if err != nil {
		t.Fatalf("helpers: failed to sign expired token: %v", err)
	}
	return token
}

// ============================================================================
// HTTP Request Helpers
// ============================================================================

// RequestBuilder helps construct HTTP requests for testing
type RequestBuilder struct {
	t           *testing.T
	method      string
	path        string
	body        io.Reader
	contentType string
	headers     map[string]string
}

// NewRequest creates a new request builder
func NewRequest(t *testing.T, method, path string) *RequestBuilder {
	return &RequestBuilder{
		t:       t,
		method:  method,
		path:    path,
		headers: make(map[string]string),
	}
}

// WithBody sets a JSON request body
func (rb *RequestBuilder) WithBody(body interface{}) *RequestBuilder {
	rb.t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		rb.t.Fatalf("helpers: failed to marshal body: %v", err)
	}
	rb.body = bytes.NewReader(data)
	rb.contentType = "application/json"
	return rb
}

// WithMultipart sets a multipart/form-data body. files maps a field name to
// one or more (filename, content) pairs.
func (rb *RequestBuilder) WithMultipart(fields map[string]string, files map[string][]File) *RequestBuilder {
	rb.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			rb.t.Fatalf("helpers: failed to write field %s: %v", k, err)
		}
	}
	for field, list := range files {
		for _, f := range list {
			fw, err := mw.CreateFormFile(field, f.Name)
			if err != nil {
				rb.t.Fatalf("helpers: failed to create form file: %v", err)
			}
			if _, err := fw.Write(f.Content); err != nil {
				rb.t.Fatalf("helpers: failed to write form file: %v", err)
			}
		}
	}
	if err := mw.Close(); err != nil {
		rb.t.Fatalf("helpers: failed to close multipart writer: %v", err)
	}

	rb.body = &buf
	rb.contentType = mw.FormDataContentType()
	return rb
}

// File is one uploaded file of a multipart body
type File struct {
	Name    string
	Content []byte
}

// WithHeader adds a header to the request
func (rb *RequestBuilder) WithHeader(key, value string) *RequestBuilder {
	rb.headers[key] = value
	return rb
}

// WithToken adds a bearer token to the request
func (rb *RequestBuilder) WithToken(token string) *RequestBuilder {
	return rb.WithHeader("Authorization", "Bearer "+token)
}

// Build creates the HTTP request
func (rb *RequestBuilder) Build() *http.Request {
	req := httptest.NewRequest(rb.method, rb.path, rb.body)
	if rb.contentType != "" {
		req.Header.Set("Content-Type", rb.contentType)
	}
	for k, v := range rb.headers {
		req.Header.Set(k, v)
	}
	return req
}

// Do builds the request and serves it through h
func (rb *RequestBuilder) Do(h http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, rb.Build())
	return rec
}

// ============================================================================
// Response Assertion Helpers
// ============================================================================

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, resp *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if resp.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, resp.Code, resp.Body.String())
	}
}

// AssertProblemDetails validates an RFC 9457 Problem Details error response
// and returns it for further checks
func AssertProblemDetails(t *testing.T, resp *httptest.ResponseRecorder, expectedStatus int, expectedCode model.ErrorCode) model.ProblemDetails {
	t.Helper()

	AssertStatus(t, resp, expectedStatus)

	var problem model.ProblemDetails
	bodyBytes := resp.Body.Bytes()
	if err := json.Unmarshal(bodyBytes, &problem); err != nil {
		t.Fatalf("failed to decode problem details: %v. Body: %s", err, string(bodyBytes))
	}

	if problem.Status != expectedStatus {
		t.Errorf("expected problem.status %d, got %d", expectedStatus, problem.Status)
	}
	if expectedCode != 0 && problem.Code != expectedCode {
		t.Errorf("expected problem.code %d, got %d", expectedCode, problem.Code)
	}
	return problem
}

// DecodeResponse decodes the response body into the given value
func DecodeResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	bodyBytes := resp.Body.Bytes()
	if err := json.Unmarshal(bodyBytes, v); err != nil {
		t.Fatalf("failed to decode response: %v. Body: %s", err, string(bodyBytes))
	}
}

// ============================================================================
// Database Assertion Helpers
// ============================================================================

// AssertRecordExists checks that a record id ("table:key") exists
func AssertRecordExists(t *testing.T, db database.Database, id string) {
	t.Helper()
	if !recordExists(t, db, id) {
		t.Errorf("expected record %s to exist, but it doesn't", id)
	}
}

// AssertRecordNotExists checks that a record id ("table:key") does not exist
func AssertRecordNotExists(t *testing.T, db database.Database, id string) {
	t.Helper()
	if recordExists(t, db, id) {
		t.Errorf("expected record %s to not exist, but it does", id)
	}
}

func recordExists(t *testing.T, db database.Database, id string) bool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := db.Query(ctx, "SELECT id FROM type::record($id)", map[string]interface{}{"id": id})
	if err != nil {
		t.Fatalf("failed to query for record: %v", err)
	}
	return hasResults(results)
}

// hasResults checks if SurrealDB query returned any results
func hasResults(results []interface{}) bool {
	if len(results) == 0 {
		return false
	}

	resp, ok := results[0].(map[string]interface{})
	if !ok {
		return false
	}

	result, ok := resp["result"]
	if !ok {
		return false
	}

	switch v := result.(type) {
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return true
	case nil:
		return false
	default:
		return true
	}
}

// ============================================================================
// Utility Helpers
// ============================================================================

// IntPtr returns a pointer to the int
func IntPtr(i int) *int {
	return &i
}

// MustParseDate parses a YYYY-MM-DD date or fails the test
func MustParseDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		t.Fatalf("failed to parse date %q: %v", value, err)
	}
	return parsed
}
