package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireloop-dev/hireloop/internal/cli/client"
	"github.com/hireloop-dev/hireloop/internal/cli/router"
	"github.com/hireloop-dev/hireloop/internal/cli/session"
	"github.com/hireloop-dev/hireloop/internal/sessiontest"
)

// mockNotifier records feedback messages
type mockNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (m *mockNotifier) Success(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes = append(m.successes, msg)
}

func (m *mockNotifier) Error(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockNotifier) Successes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.successes...)
}

// mockNavigator records navigation requests
type mockNavigator struct {
	mu     sync.Mutex
	pushed []string
}

func (m *mockNavigator) Push(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushed = append(m.pushed, path)
	return nil
}

func (m *mockNavigator) Pushed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.pushed...)
}

// apiCall is one request seen by mockAPI
type apiCall struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header
}

// mockAPI is a minimal job board API: each path maps to a handler, a CSRF
// cookie is issued on first contact, and calls are recorded.
type mockAPI struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    []apiCall
}

func newMockAPI(t *testing.T, handlers map[string]http.HandlerFunc) *mockAPI {
	t.Helper()

	m := &mockAPI{handlers: handlers}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		m.mu.Lock()
		m.calls = append(m.calls, apiCall{Method: r.Method, Path: r.URL.Path, Body: body, Header: r.Header.Clone()})
		handler, ok := m.handlers[r.URL.Path]
		m.mu.Unlock()

		if _, err := r.Cookie(client.CSRFCookieName); err != nil {
			http.SetCookie(w, &http.Cookie{Name: client.CSRFCookieName, Value: "csrf-abc", Path: "/"})
		}

		if !ok {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(m.Server.Close)

	return m
}

func (m *mockAPI) Calls() []apiCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]apiCall(nil), m.calls...)
}

func (m *mockAPI) CallsTo(path string) []apiCall {
	var out []apiCall
	for _, c := range m.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// parseMultipart returns the text fields and "field=filename" entries of a recorded form body
func parseMultipart(t *testing.T, call apiCall) (map[string][]string, []string) {
	t.Helper()

	mediaType, params, err := mime.ParseMediaType(call.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/form-data", mediaType)

	form, err := multipart.NewReader(bytes.NewReader(call.Body), params["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	var files []string
	for name, headers := range form.File {
		for _, h := range headers {
			files = append(files, name+"="+h.Filename)
		}
	}
	return form.Value, files
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

type fixture struct {
	svc      *Service
	store    *session.Store
	notifier *mockNotifier
	nav      *mockNavigator
}

func newFixture(t *testing.T, baseURL string, opts ...Option) *fixture {
	t.Helper()

	c, err := client.New(baseURL)
	require.NoError(t, err)
	t.Cleanup(c.CloseIdleConnections)

	f := &fixture{
		store:    session.NewStore(),
		notifier: &mockNotifier{},
		nav:      &mockNavigator{},
	}
	opts = append([]Option{WithNotifier(f.notifier), WithNavigator(f.nav)}, opts...)
	f.svc = NewService(c, f.store, opts...)
	return f
}

func mustIdentity(t *testing.T, raw string) *session.Identity {
	t.Helper()
	id, err := session.NewIdentity([]byte(raw))
	require.NoError(t, err)
	return id
}

func TestLogin_MissingCredentialsIssuesNoRequest(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{})
	f := newFixture(t, api.URL+"/api")

	tests := []struct {
		name   string
		creds  Credentials
		fields []string
	}{
		{"empty username", Credentials{Username: "", Password: "x"}, []string{"username"}},
		{"empty password", Credentials{Username: "a", Password: ""}, []string{"password"}},
		{"both empty", Credentials{}, []string{"username", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := f.svc.Login(tt.creds)
			assert.Nil(t, id)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.fields, validationErr.Fields)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}

	assert.Empty(t, api.Calls())
	assert.Empty(t, f.notifier.Successes())
}

func TestValidationError_Message(t *testing.T) {
	assert.Equal(t, "username is required", (&ValidationError{Fields: []string{"username"}}).Error())
	assert.Equal(t, "username and password are required", (&ValidationError{Fields: []string{"username", "password"}}).Error())
	assert.Equal(t, "a, b and c are required", (&ValidationError{Fields: []string{"a", "b", "c"}}).Error())
	assert.Equal(t, "invalid input", (&ValidationError{}).Error())
}

func TestLogin_Success(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/login/":   respond(http.StatusOK, `{}`),
		"/api/session/": respond(http.StatusOK, `{"id":1}`),
	})
	f := newFixture(t, api.URL+"/api")

	id, err := f.svc.Login(Credentials{Username: "a", Password: "b"})
	require.NoError(t, err)

	require.NotNil(t, id)
	assert.JSONEq(t, `{"id":1}`, string(id.Raw()))
	assert.True(t, f.store.Read().Equal(id))
	assert.Equal(t, []string{MsgLoginSuccess}, f.notifier.Successes())

	logins := api.CallsTo("/api/login/")
	require.Len(t, logins, 1)
	assert.Equal(t, http.MethodPost, logins[0].Method)
	assert.JSONEq(t, `{"username":"a","password":"b"}`, string(logins[0].Body))
	assert.Equal(t, "application/json", logins[0].Header.Get("Content-Type"))
}

func TestLogin_ServerRejectsCredentials(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/login/":   respond(http.StatusUnauthorized, `{"error": "Invalid username or password."}`),
		"/api/session/": respond(http.StatusOK, `{"id":1}`),
	})
	f := newFixture(t, api.URL+"/api")

	prior := mustIdentity(t, `{"id":99}`)
	f.store.Set(prior)

	id, err := f.svc.Login(Credentials{Username: "a", Password: "wrong"})
	require.Error(t, err)
	assert.Nil(t, id)

	var serverErr *client.ServerError
	require.True(t, errors.As(err, &serverErr))
	assert.Equal(t, http.StatusUnauthorized, serverErr.StatusCode)
	assert.Contains(t, err.Error(), "Invalid username or password.")
	assert.Equal(t, KindServer, KindOf(err))

	// Store untouched, no refresh attempted
	assert.True(t, f.store.Read().Equal(prior))
	assert.Empty(t, api.CallsTo("/api/session/"))
	assert.Empty(t, f.notifier.Successes())
}

func TestLogin_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	f := newFixture(t, base+"/api")

	_, err := f.svc.Login(Credentials{Username: "a", Password: "b"})
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Nil(t, f.store.Read())
}

func TestLogin_RefreshFailureLeavesStoreEmpty(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/login/":   respond(http.StatusOK, `{}`),
		"/api/session/": respond(http.StatusInternalServerError, `{"error": "boom"}`),
	})
	f := newFixture(t, api.URL+"/api")

	f.store.Set(mustIdentity(t, `{"id":99}`))

	id, err := f.svc.Login(Credentials{Username: "a", Password: "b"})

	// The credential POST succeeded, so Login resolves, but with no identity
	require.NoError(t, err)
	assert.Nil(t, id)
	assert.Nil(t, f.store.Read())
	assert.Equal(t, []string{MsgLoginSuccess}, f.notifier.Successes())
}

func TestLogout_Success(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/logout/": respond(http.StatusOK, `{"message": "User logged out successfully."}`),
	})

	for _, prior := range []string{"", `{"id":1}`} {
		f := newFixture(t, api.URL+"/api")
		if prior != "" {
			f.store.Set(mustIdentity(t, prior))
		}

		outcome := f.svc.Logout()

		assert.True(t, outcome.OK())
		assert.Equal(t, KindNone, outcome.Kind)
		assert.Nil(t, f.store.Read())
		assert.Equal(t, []string{router.HomePath}, f.nav.Pushed())
		assert.Equal(t, []string{MsgLogoutSuccess}, f.notifier.Successes())
	}
}

func TestLogout_FailureIsSilent(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/logout/": respond(http.StatusForbidden, `{"detail": "Authentication credentials were not provided."}`),
	})
	f := newFixture(t, api.URL+"/api")

	prior := mustIdentity(t, `{"id":1}`)
	f.store.Set(prior)

	outcome := f.svc.Logout()

	assert.False(t, outcome.OK())
	assert.Equal(t, "logout", outcome.Op)
	assert.Equal(t, KindServer, outcome.Kind)
	assert.True(t, outcome.Unauthenticated())

	assert.True(t, f.store.Read().Equal(prior))
	assert.Empty(t, f.nav.Pushed())
	assert.Empty(t, f.notifier.Successes())
}

func TestLogout_DefaultNavigatorGoesHome(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/logout/": respond(http.StatusOK, `{}`),
	})
	c, err := client.New(api.URL + "/api")
	require.NoError(t, err)

	nav := router.New(router.Routes())
	require.NoError(t, nav.Push("/messages"))

	svc := NewService(c, session.NewStore(), WithNavigator(nav))
	require.True(t, svc.Logout().OK())
	assert.Equal(t, "home", nav.Current().Route.Name)
}

func TestRegister_OmitsNilFieldsThenLogsIn(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/create-profile/": respond(http.StatusCreated, `{}`),
		"/api/login/":   respond(http.StatusOK, `{}`),
		"/api/session/": respond(http.StatusOK, `{"id":1}`),
	})
	f := newFixture(t, api.URL+"/api")

	result, err := f.svc.Register(RegistrationPayload{
		"email":      Text("a@b.com"),
		"password":   Text("pw"),
		"middleName": nil,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, StageRegisteredLoginSucceeded, result.Stage)
	assert.JSONEq(t, `{"id":1}`, string(result.Identity.Raw()))
	assert.NoError(t, result.LoginErr)

	registrations := api.CallsTo("/api/create-profile/")
	require.Len(t, registrations, 1)
	form, fileNames := parseMultipart(t, registrations[0])
	assert.Equal(t, map[string][]string{"email": {"a@b.com"}, "password": {"pw"}}, form)
	assert.Empty(t, fileNames)

	logins := api.CallsTo("/api/login/")
	require.Len(t, logins, 1)
	var creds Credentials
	require.NoError(t, json.Unmarshal(logins[0].Body, &creds))
	assert.Equal(t, Credentials{Username: "a@b.com", Password: "pw"}, creds)

	// Order: profile, login, session refresh
	var paths []string
	for _, c := range api.Calls() {
		paths = append(paths, c.Path)
	}
	assert.Equal(t, []string{"/api/create-profile/", "/api/login/", "/api/session/"}, paths)
	assert.Equal(t, []string{MsgRegisterSuccess, MsgLoginSuccess}, f.notifier.Successes())
}

func TestRegister_FailureSkipsLogin(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/create-profile/": respond(http.StatusBadRequest, `{"error": "User with this email already exists."}`),
		"/api/login/":          respond(http.StatusOK, `{}`),
	})
	f := newFixture(t, api.URL+"/api")

	prior := mustIdentity(t, `{"id":5}`)
	f.store.Set(prior)

	result, err := f.svc.Register(RegistrationPayload{"email": Text("a@b.com"), "password": Text("pw")})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, KindServer, KindOf(err))
	assert.Contains(t, err.Error(), "User with this email already exists.")

	assert.Empty(t, api.CallsTo("/api/login/"))
	assert.True(t, f.store.Read().Equal(prior))
	assert.Empty(t, f.notifier.Successes())
}

func TestRegister_LoginFailsAfterProfileCreated(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/create-profile/": respond(http.StatusCreated, `{}`),
		"/api/login/":          respond(http.StatusUnauthorized, `{"error": "Invalid username or password."}`),
	})
	f := newFixture(t, api.URL+"/api")

	result, err := f.svc.Register(RegistrationPayload{"email": Text("a@b.com"), "password": Text("pw")})
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, StageRegisteredLoginFailed, result.Stage)
	assert.Equal(t, err, result.LoginErr)
	assert.Nil(t, result.Identity)
	assert.Equal(t, KindServer, KindOf(err))
	assert.Equal(t, []string{MsgRegisterSuccess}, f.notifier.Successes())
}

func TestRegister_MissingPasswordFailsLoginValidation(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/create-profile/": respond(http.StatusCreated, `{}`),
	})
	f := newFixture(t, api.URL+"/api")

	result, err := f.svc.Register(RegistrationPayload{"email": Text("a@b.com")})
	require.Error(t, err)
	assert.Equal(t, StageRegisteredLoginFailed, result.Stage)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Empty(t, api.CallsTo("/api/login/"))
}

func TestRegister_FilePart(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/create-profile/": respond(http.StatusCreated, `{}`),
		"/api/login/":          respond(http.StatusOK, `{}`),
		"/api/session/":        respond(http.StatusOK, `{"id":2}`),
	})
	f := newFixture(t, api.URL+"/api")

	var missing *File
	_, err := f.svc.Register(RegistrationPayload{
		"email":           Text("a@b.com"),
		"password":        Text("pw"),
		"role":            Text("jobseeker"),
		"profile_picture": &File{Filename: "me.png", ContentType: "image/png", Content: strings.NewReader("PNG")},
		"company_logo":    missing,
	})
	require.NoError(t, err)

	registrations := api.CallsTo("/api/create-profile/")
	require.Len(t, registrations, 1)
	form, files := parseMultipart(t, registrations[0])
	assert.Equal(t, []string{"jobseeker"}, form["role"])
	assert.Equal(t, []string{"profile_picture=me.png"}, files)
}

func TestGetUser_UnauthenticatedNeverFails(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		api := newMockAPI(t, map[string]http.HandlerFunc{
			"/api/session/": respond(status, `{"detail": "Authentication credentials were not provided."}`),
		})
		f := newFixture(t, api.URL+"/api")
		f.store.Set(mustIdentity(t, `{"id":1}`))

		outcome := f.svc.GetUser()

		assert.Nil(t, f.store.Read())
		assert.False(t, outcome.OK())
		assert.Equal(t, "session", outcome.Op)
		assert.Equal(t, KindServer, outcome.Kind)
		assert.True(t, outcome.Unauthenticated())
	}
}

func TestGetUser_InvalidPayloadClearsStore(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/session/": respond(http.StatusOK, `<html>login page</html>`),
	})
	f := newFixture(t, api.URL+"/api")
	f.store.Set(mustIdentity(t, `{"id":1}`))

	outcome := f.svc.GetUser()

	assert.Nil(t, f.store.Read())
	assert.Equal(t, KindProtocol, outcome.Kind)
	assert.True(t, errors.Is(outcome.Err, ErrInvalidIdentity))
	assert.False(t, outcome.Unauthenticated())
}

func TestGetUser_TransportFailureClearsStore(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	f := newFixture(t, base+"/api")
	f.store.Set(mustIdentity(t, `{"id":1}`))

	outcome := f.svc.GetUser()
	assert.Nil(t, f.store.Read())
	assert.Equal(t, KindTransport, outcome.Kind)
}

// Two logins race; the refresh issued first is answered last. The store
// keeps whichever response arrived last, not the call issued last.
func TestLogin_ConcurrentRefreshLastResponseWins(t *testing.T) {
	released := make(chan struct{})
	var sessionCalls atomic.Int32

	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/login/": respond(http.StatusOK, `{}`),
		"/api/session/": func(w http.ResponseWriter, r *http.Request) {
			n := sessionCalls.Add(1)
			if n == 1 {
				select {
				case <-released:
				case <-time.After(3 * time.Second):
				}
			}
			respond(http.StatusOK, fmt.Sprintf(`{"served":%d}`, n))(w, r)
		},
	})
	f := newFixture(t, api.URL+"/api")

	var (
		mu      sync.Mutex
		order   []string
		release sync.Once
	)
	f.store.Subscribe(func(id *session.Identity) {
		mu.Lock()
		order = append(order, string(id.Raw()))
		mu.Unlock()
		if id != nil && string(id.Raw()) == `{"served":2}` {
			release.Do(func() { close(released) })
		}
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, creds := range []Credentials{{Username: "ada", Password: "one"}, {Username: "bob", Password: "two"}} {
		wg.Add(1)
		go func(i int, creds Credentials) {
			defer wg.Done()
			_, errs[i] = f.svc.Login(creds)
		}(i, creds)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, []string{`{"served":2}`, `{"served":1}`}, order)
	assert.JSONEq(t, `{"served":1}`, string(f.store.Read().Raw()))
	assert.Len(t, api.CallsTo("/api/login/"), 2)
}

func TestGetUser_CoalescingSharesOneRequest(t *testing.T) {
	entered := make(chan struct{}, 4)
	released := make(chan struct{})
	var calls atomic.Int32

	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/session/": func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			entered <- struct{}{}
			<-released
			respond(http.StatusOK, `{"id":1}`)(w, r)
		},
	})
	f := newFixture(t, api.URL+"/api", WithCoalescing())

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 3)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[0] = f.svc.GetUser()
	}()
	<-entered

	for i := 1; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = f.svc.GetUser()
		}(i)
	}
	// Give the followers time to join the in-flight call
	time.Sleep(100 * time.Millisecond)
	close(released)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, o := range outcomes {
		assert.True(t, o.OK())
	}
	assert.JSONEq(t, `{"id":1}`, string(f.store.Read().Raw()))
}

func TestWithoutCoalescingEveryCallIsIssued(t *testing.T) {
	api := newMockAPI(t, map[string]http.HandlerFunc{
		"/api/login/":   respond(http.StatusOK, `{}`),
		"/api/session/": respond(http.StatusOK, `{"id":1}`),
	})
	f := newFixture(t, api.URL+"/api")

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Login(Credentials{Username: "a", Password: "b"})
		}()
	}
	wg.Wait()

	assert.Len(t, api.CallsTo("/api/login/"), 3)
	assert.Len(t, api.CallsTo("/api/session/"), 3)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNone, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
	assert.Equal(t, KindTransport, KindOf(&client.TransportError{Err: errors.New("dial")}))
	assert.Equal(t, "protocol", KindProtocol.String())
	assert.Equal(t, "registered+login-failed", StageRegisteredLoginFailed.String())
}

// The full protocol against the fake server: CSRF enforced on every unsafe
// call, including the login chained after registration.
func TestFlows_AgainstSessionServer(t *testing.T) {
	srv := sessiontest.New(t)
	f := newFixture(t, srv.URL())

	// Anonymous refresh: the server hands out the CSRF cookie
	outcome := f.svc.GetUser()
	assert.True(t, outcome.Unauthenticated())
	assert.Nil(t, f.store.Read())

	result, err := f.svc.Register(RegistrationPayload{
		"email":      Text("ada@example.com"),
		"password":   Text("engines"),
		"role":       Text("employer"),
		"first_name": Text("Ada"),
		"last_name":  Text("Lovelace"),
		"middleName": nil,
	})
	require.NoError(t, err)
	assert.Equal(t, StageRegisteredLoginSucceeded, result.Stage)
	assert.Equal(t, []string{"employer"}, f.store.Read().Roles())
	assert.Equal(t, "Ada Lovelace", f.store.Read().DisplayName())

	outcome = f.svc.Logout()
	require.True(t, outcome.OK())
	assert.Nil(t, f.store.Read())
	assert.Equal(t, 0, srv.ActiveSessions())

	// Logged out: a second logout is rejected, silently
	outcome = f.svc.Logout()
	assert.False(t, outcome.OK())

	id, err := f.svc.Login(Credentials{Username: "ada@example.com", Password: "engines"})
	require.NoError(t, err)
	assert.True(t, id.HasRole("employer"))

	var rejected int
	for _, r := range srv.Requests() {
		if client.IsSafeMethod(r.Method) {
			assert.Empty(t, r.CSRFHeader, "%s %s", r.Method, r.Path)
			continue
		}
		assert.NotEmpty(t, r.CSRFHeader, "%s %s", r.Method, r.Path)
		assert.Equal(t, r.CSRFCookie, r.CSRFHeader, "%s %s", r.Method, r.Path)
		if r.Status == http.StatusForbidden {
			rejected++
		}
	}
	// Only the second logout, which had no session to end
	assert.Equal(t, 1, rejected)

	registrations := srv.RequestsTo("/create-profile/")
	require.Len(t, registrations, 1)
	_, hasMiddle := registrations[0].Form["middleName"]
	assert.False(t, hasMiddle)
}
