package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/wellness-api/adapters/media_storage"
	"github.com/khoahotran/wellness-api/adapters/persistence"
	"github.com/khoahotran/wellness-api/internal/application/service"
	authUC "github.com/khoahotran/wellness-api/internal/application/usecase/auth"
	mediaUC "github.com/khoahotran/wellness-api/internal/application/usecase/media"
	profileUC "github.com/khoahotran/wellness-api/internal/application/usecase/profile"
	"github.com/khoahotran/wellness-api/pkg/auth"
	"github.com/khoahotran/wellness-api/pkg/logger"
)

const testMaxUpload = 10 << 20

type memoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (d *memoryDenylist) Revoke(_ context.Context, id string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[id] = true
	return nil
}

func (d *memoryDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revoked[id], nil
}

type testServer struct {
	router    *gin.Engine
	uploadDir string
}

func newTestServer(t *testing.T, denylist service.TokenDenylist) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	repo := persistence.NewMemoryUserRepo()
	uploadDir := filepath.Join(t.TempDir(), "uploads")
	storage := media_storage.NewLocalAdapter(uploadDir)

	hasher, err := auth.NewPasswordHasher("bcrypt")
	require.NoError(t, err)
	jwtSvc := auth.NewJWTService("handler-test-secret", time.Hour)

	verifyUC := authUC.NewVerifyUseCase(jwtSvc)
	storePhotoUC := mediaUC.NewStorePhotoUseCase(storage, testMaxUpload, log)

	handlers := Handlers{
		Auth: NewAuthHandler(
			authUC.NewSignupUseCase(repo, hasher, nil, log),
			authUC.NewLoginUseCase(repo, jwtSvc, log),
			authUC.NewLogoutUseCase(verifyUC, denylist, log),
			log,
		),
		Profile: NewProfileHandler(profileUC.NewProfileUseCase(repo, storePhotoUC, nil, log), testMaxUpload, log),
		Photo:   NewPhotoHandler(mediaUC.NewOpenPhotoUseCase(storage)),
	}
	router := NewRouter(handlers, RouterConfig{
		PublicPath:     "/uploads",
		AuthMiddleware: AuthMiddleware(verifyUC, denylist, log),
	}, log)

	return &testServer{router: router, uploadDir: uploadDir}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) postJSON(path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *testServer) signupAndLogin(t *testing.T, name, email, password string) string {
	t.Helper()
	rr := s.postJSON("/api/auth/signup", gin.H{"name": name, "email": email, "password": password})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.postJSON("/api/auth/login", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotEmpty(t, body["token"])
	return body["token"]
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

type formFile struct {
	field, filename, contentType string
	data                         []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func jpegBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'})
	for i := 10; i < n; i++ {
		b[i] = byte(i)
	}
	return b
}

func TestAvaScenario(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.postJSON("/api/auth/signup", gin.H{"name": "Ava", "email": "ava@x.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotEmpty(t, decode(t, rr)["id"])

	rr = s.postJSON("/api/auth/login", gin.H{"email": "ava@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rr.Code)
	token := decode(t, rr)["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.Header.Set("x-auth-token", token)
	rr = s.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	profile := decode(t, rr)
	assert.Equal(t, "Ava", profile["name"])
	assert.Equal(t, "ava@x.com", profile["email"])
	assert.Nil(t, profile["profilePhoto"])
	assert.NotContains(t, profile, "password")
	assert.NotContains(t, profile, "passwordHash")

	req = httptest.NewRequest(http.MethodPut, "/api/user/profile", bytes.NewReader([]byte(`{"name":"Ava R"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-auth-token", token)
	rr = s.do(req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode(t, rr)
	assert.Equal(t, "Profile updated", updated["msg"])
	assert.Equal(t, "Ava R", updated["name"])

	req = httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = s.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Ava R", decode(t, rr)["name"])
}

func TestSignupErrors(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.postJSON("/api/auth/signup", gin.H{"email": "a@x.com", "password": "p"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "name is required", decode(t, rr)["msg"])

	rr = s.postJSON("/api/auth/signup", gin.H{"name": "A", "email": "a@x.com", "password": "p", "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, rr.Code, "unknown fields are rejected")

	rr = s.postJSON("/api/auth/signup", gin.H{"name": "A", "email": "a@x.com", "password": "p"})
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = s.postJSON("/api/auth/signup", gin.H{"name": "B", "email": "A@X.com", "password": "q"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "conflict", body["error"])
}

func TestLoginFailuresLookAlike(t *testing.T) {
	s := newTestServer(t, nil)
	s.signupAndLogin(t, "Ava", "ava@x.com", "secret1")

	wrong := s.postJSON("/api/auth/login", gin.H{"email": "ava@x.com", "password": "nope"})
	unknown := s.postJSON("/api/auth/login", gin.H{"email": "ghost@x.com", "password": "secret1"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
}

func TestProfileRequiresToken(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(httptest.NewRequest(http.MethodGet, "/api/user/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "No token, authorization denied", decode(t, rr)["msg"])

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.Header.Set("x-auth-token", "garbage")
	rr = s.do(req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Token is not valid", decode(t, rr)["msg"])
}

func TestPhotoUploadAndServe(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.signupAndLogin(t, "Ava", "ava@x.com", "secret1")
	data := jpegBytes(5 << 20)

	body, contentType := multipartBody(t, map[string]string{"name": "Ava P"},
		formFile{field: "profilePhoto", filename: "me.jpg", contentType: "image/jpeg", data: data})
	req := httptest.NewRequest(http.MethodPut, "/api/user/profile", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-auth-token", token)
	rr := s.do(req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	updated := decode(t, rr)
	assert.Equal(t, "Ava P", updated["name"])
	ref, ok := updated["profilePhoto"].(string)
	require.True(t, ok)
	assert.Contains(t, ref, "me.jpg")

	rr = s.do(httptest.NewRequest(http.MethodGet, "/uploads/"+ref, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.Equal(data, rr.Body.Bytes()), "served bytes differ from upload")
}

func TestPhotoUploadRejections(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.signupAndLogin(t, "Ava", "ava@x.com", "secret1")

	cases := []struct {
		name   string
		fields map[string]string
		files  []formFile
	}{
		{"too large", nil, []formFile{{"profilePhoto", "big.jpg", "image/jpeg", jpegBytes(11 << 20)}}},
		{"wrong type", map[string]string{"name": "Nope"}, []formFile{{"profilePhoto", "doc.pdf", "application/pdf", []byte("%PDF-1.4")}}},
		{"unknown file field", nil, []formFile{{"avatar", "me.jpg", "image/jpeg", jpegBytes(64)}}},
		{"unknown value field", map[string]string{"email": "new@x.com"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tc.fields, tc.files...)
			req := httptest.NewRequest(http.MethodPut, "/api/user/profile", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("x-auth-token", token)
			rr := s.do(req)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.Header.Set("x-auth-token", token)
	rr := s.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	profile := decode(t, rr)
	assert.Equal(t, "Ava", profile["name"], "rejected uploads leave the name alone")
	assert.Nil(t, profile["profilePhoto"])

	entries, _ := os.ReadDir(s.uploadDir)
	assert.Empty(t, entries)
}

func TestServePhotoErrors(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(httptest.NewRequest(http.MethodGet, "/uploads/1700000000000-deadbeef-none.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(httptest.NewRequest(http.MethodGet, "/uploads/x..y", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogoutWithDenylist(t *testing.T) {
	s := newTestServer(t, &memoryDenylist{revoked: map[string]bool{}})
	token := s.signupAndLogin(t, "Ava", "ava@x.com", "secret1")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("x-auth-token", token)
	rr := s.do(req)
	require.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.Header.Set("x-auth-token", token)
	rr = s.do(req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Token has been revoked", decode(t, rr)["msg"])
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rr := s.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"UP"}`, rr.Body.String())
}
