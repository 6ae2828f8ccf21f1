// Package storagetest provides an in-memory edge storage server for tests.
package storagetest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openmined/cdnpublish/internal/config"
)

const (
	DefaultZone      = "test-zone"
	DefaultAccessKey = "test-access-key"
)

type message struct {
	HttpCode int    `json:"HttpCode"`
	Message  string `json:"Message"`
}

type item struct {
	Guid            string `json:"Guid"`
	StorageZoneName string `json:"StorageZoneName"`
	Path            string `json:"Path"`
	ObjectName      string `json:"ObjectName"`
	Length          int64  `json:"Length"`
	LastChanged     string `json:"LastChanged"`
	IsDirectory     bool   `json:"IsDirectory"`
	ContentType     string `json:"ContentType"`
	DateCreated     string `json:"DateCreated"`
}

// Server fakes the storage zone API: GET object, GET directory listing and PUT object.
type Server struct {
	*httptest.Server
	Zone      string
	AccessKey string

	mu       sync.Mutex
	objects  map[string][]byte
	failures map[string]int
	attempts map[string]int
	delay    time.Duration

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

// NewServer starts a Server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		Zone:      DefaultZone,
		AccessKey: DefaultAccessKey,
		objects:   make(map[string][]byte),
		failures:  make(map[string]int),
		attempts:  make(map[string]int),
	}

	router := gin.New()
	router.Use(s.authenticate)
	router.GET("/:zone/*path", s.get)
	router.PUT("/:zone/*path", s.put)

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)
	return s
}

// Config returns a client configuration pointing at the server.
func (s *Server) Config() *config.Config {
	return &config.Config{BaseURL: s.URL, AccessKey: s.AccessKey, Zone: s.Zone}
}

// Put stores an object directly, bypassing the API.
func (s *Server) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[strings.Trim(key, "/")] = slices.Clone(data)
}

// Object returns the stored content at key.
func (s *Server) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[strings.Trim(key, "/")]
	return data, ok
}

// Keys returns all stored object keys, sorted.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// FailUploads makes the next n uploads to key fail with a 500. A negative n fails them forever.
func (s *Server) FailUploads(key string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[strings.Trim(key, "/")] = n
}

// Attempts returns how many uploads to key were received, failed ones included.
func (s *Server) Attempts(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[strings.Trim(key, "/")]
}

// SetUploadDelay makes every upload take at least d.
func (s *Server) SetUploadDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// MaxInFlight returns the highest number of uploads observed in progress at once.
func (s *Server) MaxInFlight() int64 {
	return s.maxInFlight.Load()
}

func (s *Server) authenticate(ctx *gin.Context) {
	if ctx.GetHeader("AccessKey") != s.AccessKey {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, message{http.StatusUnauthorized, "Unauthorized"})
		return
	}
	if ctx.Param("zone") != s.Zone {
		ctx.AbortWithStatusJSON(http.StatusNotFound, message{http.StatusNotFound, "Storage zone not found"})
		return
	}
	ctx.Next()
}

func (s *Server) get(ctx *gin.Context) {
	path := ctx.Param("path")
	if strings.HasSuffix(path, "/") {
		ctx.JSON(http.StatusOK, s.list(strings.Trim(path, "/")))
		return
	}

	data, ok := s.Object(path)
	if !ok {
		ctx.JSON(http.StatusNotFound, message{http.StatusNotFound, "Object Not Found"})
		return
	}
	ctx.Data(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) list(dir string) []item {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}

	seen := make(map[string]bool)
	items := []item{}
	for key, data := range s.objects {
		rest, ok := strings.CutPrefix(key, prefix)
		if !ok {
			continue
		}
		name, _, nested := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		it := item{
			StorageZoneName: s.Zone,
			Path:            "/" + s.Zone + "/" + prefix,
			ObjectName:      name,
			IsDirectory:     nested,
			LastChanged:     "2024-01-01T00:00:00.000",
			DateCreated:     "2024-01-01T00:00:00.000",
		}
		if !nested {
			it.Length = int64(len(data))
			it.ContentType = "application/octet-stream"
		}
		items = append(items, it)
	}
	slices.SortFunc(items, func(a, b item) int { return strings.Compare(a.ObjectName, b.ObjectName) })
	return items
}

func (s *Server) put(ctx *gin.Context) {
	key := strings.Trim(ctx.Param("path"), "/")

	current := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxInFlight.Load()
		if current <= seen || s.maxInFlight.CompareAndSwap(seen, current) {
			break
		}
	}

	s.mu.Lock()
	s.attempts[key]++
	delay := s.delay
	fail := s.failures[key] != 0
	if s.failures[key] > 0 {
		s.failures[key]--
	}
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	data, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.String(http.StatusBadRequest, "read body: %s", err)
		return
	}

	if fail {
		ctx.String(http.StatusInternalServerError, "injected failure")
		return
	}

	if checksum := ctx.GetHeader("Checksum"); checksum != "" {
		sum := sha256.Sum256(data)
		if !strings.EqualFold(checksum, hex.EncodeToString(sum[:])) {
			ctx.JSON(http.StatusBadRequest, message{http.StatusBadRequest, "Checksum mismatch"})
			return
		}
	}

	s.Put(key, data)
	ctx.JSON(http.StatusCreated, message{http.StatusCreated, "File uploaded."})
}
