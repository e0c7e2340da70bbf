package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/teamgold/golden/db"
	"github.com/teamgold/golden/domain"
	"github.com/teamgold/golden/util"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	dir, err := os.MkdirTemp("", "golden-web-test")
	if err != nil {
		panic(err)
	}
	db.SetPath(filepath.Join(dir, "test.db"))

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func okRouter(mw gin.HandlerFunc) *gin.Engine {
	g := gin.New()
	g.POST("/guarded", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return g
}

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		page  int
		size  int
	}{
		{"defaults", "", 1, 20},
		{"explicit", "page=3&size=10", 3, 10},
		{"zero page clamps", "page=0&size=10", 1, 10},
		{"negative size clamps", "page=2&size=-5", 2, 20},
		{"oversized clamps", "size=10000", 1, 100},
		{"garbage falls back", "page=abc&size=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/?"+tt.query, nil)

			page, size := ParsePageParams(c)
			if page != tt.page || size != tt.size {
				t.Errorf("ParsePageParams(%q) = (%d, %d), want (%d, %d)",
					tt.query, page, size, tt.page, tt.size)
			}
		})
	}

	if got := pageOffset(3, 20); got != 40 {
		t.Errorf("pageOffset(3, 20) = %d, want 40", got)
	}
}

func TestMaxBytesMiddleware(t *testing.T) {
	g := okRouter(MaxBytesMiddleware(64))

	small := httptest.NewRequest("POST", "/guarded", strings.NewReader(`{"type":"like"}`))
	w := httptest.NewRecorder()
	g.ServeHTTP(w, small)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for small body, got %d", w.Code)
	}

	big := httptest.NewRequest("POST", "/guarded", strings.NewReader(strings.Repeat("x", 128)))
	w = httptest.NewRecorder()
	g.ServeHTTP(w, big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413 for oversized body, got %d", w.Code)
	}
}

func TestNodeAuthMiddleware(t *testing.T) {
	g := okRouter(NodeAuthMiddleware())

	// No nodes registered yet, so the inbox is open.
	req := httptest.NewRequest("POST", "/guarded", nil)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected open inbox without registered nodes, got %d", w.Code)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	node := &domain.Node{
		Id:             uuid.New(),
		BaseURL:        "http://peer.example",
		Host:           util.FQIDHost("http://peer.example"),
		SharedUser:     "node-test",
		SharedPassHash: string(hash),
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.GetDB().CreateNode(node); err != nil {
		t.Fatal(err)
	}
	defer db.GetDB().DeleteNode(node.Id)

	// Once a node exists, unauthenticated calls are rejected.
	req = httptest.NewRequest("POST", "/guarded", nil)
	w = httptest.NewRecorder()
	g.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/guarded", nil)
	req.SetBasicAuth("node-test", "wrong")
	w = httptest.NewRecorder()
	g.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong password, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/guarded", nil)
	req.SetBasicAuth("node-test", "s3cret")
	w = httptest.NewRecorder()
	g.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with valid credentials, got %d", w.Code)
	}

	// Deactivated nodes cannot authenticate.
	if err := db.GetDB().UpdateNodeActive(node.Id, false); err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest("POST", "/guarded", nil)
	req.SetBasicAuth("node-test", "s3cret")
	w = httptest.NewRecorder()
	g.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for deactivated node, got %d", w.Code)
	}
}
