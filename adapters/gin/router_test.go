package bookgin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/cidali/bookstore/content"
	core "github.com/cidali/bookstore/core"
	"github.com/cidali/bookstore/mpesa"
	memorystore "github.com/cidali/bookstore/storage/memory"
	"github.com/gin-gonic/gin"
)

type stubGateway struct{}

func (stubGateway) STKPush(ctx context.Context, req mpesa.STKPushRequest) (json.RawMessage, error) {
	return json.RawMessage(`{"ResponseCode":"0"}`), nil
}

type stubNotifier struct{}

func (stubNotifier) PaymentInitiated(string, float64, string) error         { return nil }
func (stubNotifier) DeliveryInitiated(string, float64, string) error        { return nil }
func (stubNotifier) PurchaseReceived(string, float64, string, string) error { return nil }
func (stubNotifier) BuyerAccessLink(string, string) error                   { return nil }

func newTestApp(t *testing.T, ttl time.Duration) (*gin.Engine, *memorystore.TokenStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Born_Too_Soon.pdf"), []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := memorystore.New()
	svc := core.NewService(store, stubGateway{}, stubNotifier{}, core.Options{
		EbookFile:     "Born_Too_Soon.pdf",
		TokenTTL:      ttl,
		PublicBaseURL: "http://localhost:5000",
	}, nil)
	gate := content.NewGate(store, dir)
	return NewRouter(svc, gate, nil), store
}

func do(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var linkPattern = regexp.MustCompile(`/api/view/Born_Too_Soon\.pdf\?token=([0-9a-f]{64})$`)

func TestCallbackThenViewFlow(t *testing.T) {
	r, _ := newTestApp(t, 30*time.Minute)

	w := do(r, http.MethodPost, "/api/mpesa/callback",
		`{"phone":"254711111111","amount":1000,"email":"buyer@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("callback status = %d, body %s", w.Code, w.Body)
	}
	var resp struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		EbookLink string `json:"ebookLink"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode callback response: %v", err)
	}
	if !resp.Success {
		t.Error("success = false")
	}
	m := linkPattern.FindStringSubmatch(resp.EbookLink)
	if m == nil {
		t.Fatalf("ebookLink %q does not match expected format", resp.EbookLink)
	}
	token := m[1]

	// The emailed link serves the viewer shell.
	w = do(r, http.MethodGet, "/api/view/Born_Too_Soon.pdf?token="+token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("view status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("view content-type = %q", ct)
	}

	// The shell's stream fetch works, repeatedly, within the window.
	for i := 0; i < 3; i++ {
		w = do(r, http.MethodGet, "/api/secure-pdf/Born_Too_Soon.pdf?token="+token, "")
		if w.Code != http.StatusOK {
			t.Fatalf("stream attempt %d status = %d", i+1, w.Code)
		}
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("stream content-type = %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Errorf("Cache-Control = %q, must forbid caching", cc)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF") {
		t.Errorf("stream body = %q", w.Body.String())
	}
}

func TestExpiredTokenForbidden(t *testing.T) {
	r, _ := newTestApp(t, 30*time.Millisecond)

	w := do(r, http.MethodPost, "/api/mpesa/callback", `{"phone":"254711111111","amount":1000}`)
	if w.Code != http.StatusOK {
		t.Fatalf("callback status = %d", w.Code)
	}
	var resp struct {
		EbookLink string `json:"ebookLink"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	token := linkPattern.FindStringSubmatch(resp.EbookLink)[1]

	time.Sleep(60 * time.Millisecond)

	if w := do(r, http.MethodGet, "/api/view/Born_Too_Soon.pdf?token="+token, ""); w.Code != http.StatusForbidden {
		t.Fatalf("expired view status = %d, want 403", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/secure-pdf/Born_Too_Soon.pdf?token="+token, ""); w.Code != http.StatusForbidden {
		t.Fatalf("expired stream status = %d, want 403", w.Code)
	}
}

func TestInvalidTokensForbidden(t *testing.T) {
	r, store := newTestApp(t, 30*time.Minute)
	token, _ := store.Issue(context.Background(), "Born_Too_Soon.pdf", 30*time.Minute)

	cases := []struct {
		name, target string
	}{
		{"tampered", "/api/secure-pdf/Born_Too_Soon.pdf?token=" + strings.Repeat("0", 64)},
		{"missing", "/api/secure-pdf/Born_Too_Soon.pdf"},
		{"wrong file", "/api/secure-pdf/Other_Book.pdf?token=" + token},
		{"view wrong file", "/api/view/Other_Book.pdf?token=" + token},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(r, http.MethodGet, tc.target, ""); w.Code != http.StatusForbidden {
				t.Fatalf("status = %d, want 403", w.Code)
			}
		})
	}
}

func TestMissingFileIs404(t *testing.T) {
	r, store := newTestApp(t, 30*time.Minute)
	// A valid token for a file the blob store doesn't have.
	token, _ := store.Issue(context.Background(), "Ghost.pdf", 30*time.Minute)

	if w := do(r, http.MethodGet, "/api/secure-pdf/Ghost.pdf?token="+token, ""); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestCallbackWithoutPhoneMintsNothing(t *testing.T) {
	r, store := newTestApp(t, 30*time.Minute)

	w := do(r, http.MethodPost, "/api/mpesa/callback", `{"amount":100,"email":"a@b.com"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if store.Len() != 0 {
		t.Fatalf("store has %d tokens, want 0", store.Len())
	}
}

func TestDeliveryRequiresAllFields(t *testing.T) {
	r, _ := newTestApp(t, 30*time.Minute)

	cases := []string{
		`{"transactionCode":"X","address":"Nairobi","amount":200}`,
		`{"phone":"254712345678","address":"Nairobi","amount":200}`,
		`{"phone":"254712345678","transactionCode":"X","amount":200}`,
		`{"phone":"254712345678","transactionCode":"X","address":"Nairobi"}`,
	}
	for _, body := range cases {
		if w := do(r, http.MethodPost, "/api/mpesa/delivery", body); w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, w.Code)
		}
	}

	w := do(r, http.MethodPost, "/api/mpesa/delivery",
		`{"phone":"254712345678","transactionCode":"X","address":"Nairobi","amount":200}`)
	if w.Code != http.StatusOK {
		t.Fatalf("complete delivery request status = %d, body %s", w.Code, w.Body)
	}
}

func TestStkPushPassthrough(t *testing.T) {
	r, _ := newTestApp(t, 30*time.Minute)

	w := do(r, http.MethodPost, "/api/mpesa/stkpush", `{"phone":"254712345678","amount":500,"email":"a@b.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	if !strings.Contains(w.Body.String(), `"ResponseCode":"0"`) {
		t.Errorf("provider response not passed through: %s", w.Body)
	}
}

func TestRootLiveness(t *testing.T) {
	r, _ := newTestApp(t, 30*time.Minute)

	w := do(r, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "running") {
		t.Errorf("liveness body = %q", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestApp(t, 30*time.Minute)

	req := httptest.NewRequest(http.MethodOptions, "/api/mpesa/stkpush", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("allow-origin = %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}
