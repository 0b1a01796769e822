// Package sessiontest runs an in-process stand-in for the job board auth
// endpoints. It speaks the same cookie session and CSRF protocol as the real
// server so client flows can be exercised end to end in tests.
package sessiontest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

const (
	CSRFCookieName    = "csrftoken"
	CSRFHeaderName    = "X-CSRFTOKEN"
	SessionCookieName = "sessionid"

	// DefaultOrigin is the browser origin allowed by CORS
	DefaultOrigin = "http://localhost:5173"
)

// User is an account known to the server
type User struct {
	ID        int
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Groups    []string
	Profile   map[string]any
}

// Request is what the server saw for one call
type Request struct {
	Method     string
	Path       string
	CSRFHeader string
	CSRFCookie string
	Status     int
	Form       map[string]string // text fields of multipart bodies
	Files      map[string]string // file field -> filename
}

// Server is the fake API. Its base URL is URL().
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*User
	sessions map[string]string
	requests []Request
	failures map[string]int
	delays   map[string]time.Duration
	nextID   int
}

// Option configures a Server
type Option func(*config)

type config struct {
	origins []string
}

// WithAllowedOrigins replaces the CORS allow list
func WithAllowedOrigins(origins ...string) Option {
	return func(c *config) {
		c.origins = origins
	}
}

// New starts a server that is closed when the test ends
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	cfg := config{origins: []string{DefaultOrigin}}
	for _, opt := range opts {
		opt(&cfg)
	}

	gin.SetMode(gin.TestMode)

	s := &Server{
		users:    make(map[string]*User),
		sessions: make(map[string]string),
		failures: make(map[string]int),
		delays:   make(map[string]time.Duration),
		nextID:   1,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", CSRFHeaderName, "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(s.recordMiddleware())
	router.Use(s.csrfMiddleware())
	router.Use(s.failureMiddleware())
	router.Use(s.sessionMiddleware())

	api := router.Group("/api")
	{
		api.POST("/login/", s.login)
		api.POST("/logout/", s.logout)
		api.POST("/create-profile/", s.createProfile)
		api.GET("/session/", s.session)
	}

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Server.Close)

	return s
}

// URL returns the API root the client should be pointed at
func (s *Server) URL() string {
	return s.Server.URL + "/api"
}

// AddUser registers an account and returns its id
func (s *Server) AddUser(u User) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(u)
}

func (s *Server) addUserLocked(u User) int {
	if u.ID == 0 {
		u.ID = s.nextID
	}
	if u.ID >= s.nextID {
		s.nextID = u.ID + 1
	}
	if u.Email == "" {
		u.Email = u.Username
	}
	s.users[u.Username] = &u
	return u.ID
}

// HasUser reports whether username exists
func (s *Server) HasUser(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[username]
	return ok
}

// Fail makes every request to path answer with status until Recover is called.
// path is relative to the API root, e.g. "/session/".
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures["/api"+path] = status
}

// Recover undoes Fail
func (s *Server) Recover(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, "/api"+path)
}

// Delay holds responses for path for d
func (s *Server) Delay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays["/api"+path] = d
}

// Requests returns every request seen so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo filters Requests by API path
func (s *Server) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == "/api"+path {
			out = append(out, r)
		}
	}
	return out
}

// ActiveSessions counts live server sessions
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) recordMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		csrfCookie, _ := c.Cookie(CSRFCookieName)
		req := Request{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			CSRFHeader: c.GetHeader(CSRFHeaderName),
			CSRFCookie: csrfCookie,
		}

		c.Next()

		req.Status = c.Writer.Status()
		if form, ok := c.Get("form"); ok {
			req.Form = form.(map[string]string)
		}
		if files, ok := c.Get("files"); ok {
			req.Files = files.(map[string]string)
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()
	}
}

// csrfMiddleware issues the token cookie on first contact and checks it on unsafe methods
func (s *Server) csrfMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CSRFCookieName)
		if err != nil || token == "" {
			token = newToken()
			setCookie(c, CSRFCookieName, token, false)
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			c.Next()
			return
		}

		header := c.GetHeader(CSRFHeaderName)
		if header == "" || header != token {
			respondWithError(c, http.StatusForbidden, "detail", "CSRF Failed: CSRF token missing or incorrect.")
			return
		}
		c.Next()
	}
}

func (s *Server) failureMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		status, failing := s.failures[c.Request.URL.Path]
		delay := s.delays[c.Request.URL.Path]
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if failing {
			respondWithError(c, status, "error", http.StatusText(status))
			return
		}
		c.Next()
	}
}

const msgNotAuthenticated = "Authentication credentials were not provided."

type sessionData struct {
	user *User
	sid  string
}

// sessionMiddleware resolves the session cookie to its user, if any
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookieName)
		if err == nil && sid != "" {
			s.mu.Lock()
			username, ok := s.sessions[sid]
			user := s.users[username]
			s.mu.Unlock()

			if ok && user != nil {
				c.Set("session", &sessionData{user: user, sid: sid})
			}
		}
		c.Next()
	}
}

func getSession(c *gin.Context) (*User, string, bool) {
	v, exists := c.Get("session")
	if !exists {
		return nil, "", false
	}
	data, ok := v.(*sessionData)
	if !ok {
		return nil, "", false
	}
	return data.user, data.sid, true
}

// respondWithError aborts with a one-key JSON body
func respondWithError(c *gin.Context, statusCode int, key, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{key: message})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required."})
		return
	}

	s.mu.Lock()
	user, ok := s.users[req.Username]
	if !ok || user.Password != req.Password {
		s.mu.Unlock()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password."})
		return
	}
	sid := newToken()
	s.sessions[sid] = user.Username
	payload := user.sessionPayload()
	s.mu.Unlock()

	setCookie(c, SessionCookieName, sid, true)
	// Logging in rotates the CSRF token
	setCookie(c, CSRFCookieName, newToken(), false)

	c.JSON(http.StatusOK, gin.H{"user": payload["user"]})
}

func (s *Server) logout(c *gin.Context) {
	_, sid, ok := getSession(c)
	if !ok {
		respondWithError(c, http.StatusForbidden, "detail", msgNotAuthenticated)
		return
	}

	s.mu.Lock()
	delete(s.sessions, sid)
	s.mu.Unlock()

	http.SetCookie(c.Writer, &http.Cookie{Name: SessionCookieName, Value: "", Path: "/", MaxAge: -1})
	c.JSON(http.StatusOK, gin.H{"message": "User logged out successfully."})
}

func (s *Server) createProfile(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expected a multipart form."})
		return
	}

	fields := make(map[string]string)
	for key, values := range form.Value {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	files := make(map[string]string)
	for key, headers := range form.File {
		if len(headers) > 0 {
			files[key] = headers[0].Filename
		}
	}
	c.Set("form", fields)
	c.Set("files", files)

	email, password, role := fields["email"], fields["password"], fields["role"]
	if email == "" || password == "" || role == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email, password, and role are required."})
		return
	}
	if role != "jobseeker" && role != "employer" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role."})
		return
	}

	username := fields["username"]
	if username == "" {
		username = email
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.Email == email {
			s.mu.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists."})
			return
		}
	}

	profile := make(map[string]any)
	for key, value := range fields {
		switch key {
		case "email", "password", "role", "username", "first_name", "last_name":
		default:
			profile[key] = value
		}
	}
	for key, name := range files {
		profile[key] = "/media/" + name
	}

	id := s.addUserLocked(User{
		Username:  username,
		Email:     email,
		Password:  password,
		FirstName: fields["first_name"],
		LastName:  fields["last_name"],
		Groups:    []string{role},
		Profile:   profile,
	})
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"user": gin.H{"id": id, "username": username, "email": email}})
}

func (s *Server) session(c *gin.Context) {
	user, _, ok := getSession(c)
	if !ok {
		respondWithError(c, http.StatusForbidden, "detail", msgNotAuthenticated)
		return
	}

	s.mu.Lock()
	payload := user.sessionPayload()
	s.mu.Unlock()

	c.JSON(http.StatusOK, payload)
}

func (u *User) sessionPayload() map[string]any {
	groups := append([]string{}, u.Groups...)
	sort.Strings(groups)

	var profile any
	if u.Profile != nil {
		profile = u.Profile
	}

	return map[string]any{
		"user": map[string]any{
			"id":         u.ID,
			"username":   u.Username,
			"email":      u.Email,
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"groups":     groups,
		},
		"profile": profile,
	}
}

func setCookie(c *gin.Context, name, value string, httpOnly bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	})
}

func newToken() string {
	return strings.ToLower(ulid.Make().String())
}
