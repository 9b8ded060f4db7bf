package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/edu-platform/internal/comments"
	"github.com/example/edu-platform/internal/content"
	"github.com/example/edu-platform/internal/identity"
	"github.com/example/edu-platform/internal/platform/auth"
	"github.com/example/edu-platform/internal/platform/eventbus"
	"github.com/example/edu-platform/internal/progress"
	"github.com/example/edu-platform/internal/social"
)

type fixture struct {
	contents *content.MemoryStore
	comments *comments.MemoryStore
	progress *progress.MemoryStore
	social   *social.Service
	identity *identity.Service
	bus      *eventbus.Bus
}

func newFixture() *fixture {
	contents := content.NewMemoryStore()
	contents.Put(content.Content{ID: "content-1", Title: "Forklift Safety", Category: "safety", Duration: 600})
	cms := comments.NewMemoryStore()
	bus := eventbus.New(nil)
	return &fixture{
		contents: contents,
		comments: cms,
		progress: progress.NewMemoryStore(contents.Meta, cms),
		social:   social.NewService(social.NewMemoryStore(contents), bus, nil, nil),
		identity: identity.NewService(identity.NewMemoryStore(), auth.JWTVerifier{Secret: []byte("test")}, time.Hour, nil, nil),
		bus:      bus,
	}
}

// contentReq builds a request with the content_id chi param set.
func contentReq(method, url string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("content_id", "content-1")
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// asAuthUser injects user-1 into the request context.
func asAuthUser(req *http.Request) *http.Request {
	return req.WithContext(auth.WithUserID(req.Context(), "user-1"))
}

func TestSaveProgress_PersistsMonotonically(t *testing.T) {
	f := newFixture()
	h := SaveProgress(f.progress, nil)

	for _, watched := range []float64{120, 60} {
		body, _ := json.Marshal(saveProgressReq{WatchedTime: watched, Duration: 600})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, asAuthUser(contentReq(http.MethodPut, "/v1/contents/content-1/progress", body)))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("save %v: status %d", watched, rr.Code)
		}
	}

	got, _ := f.progress.GetProgress(context.Background(), "user-1", "content-1")
	if got != 120 {
		t.Fatalf("stale write must not regress the record, got %v", got)
	}
}

func TestSaveProgress_RequiresAuth(t *testing.T) {
	f := newFixture()
	body, _ := json.Marshal(saveProgressReq{WatchedTime: 10, Duration: 600})
	rr := httptest.NewRecorder()
	SaveProgress(f.progress, nil).ServeHTTP(rr, contentReq(http.MethodPut, "/v1/contents/content-1/progress", body))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestGetProgress_DerivesResumeAndEligibility(t *testing.T) {
	f := newFixture()
	_ = f.progress.SaveProgress(context.Background(), "user-1", "content-1", 550, 92)

	rr := httptest.NewRecorder()
	GetProgress(f.progress, f.contents).ServeHTTP(rr, asAuthUser(contentReq(http.MethodGet, "/v1/contents/content-1/progress", nil)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}

	var resp progressResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Eligible || resp.Completed || resp.SeekAllowed {
		t.Fatalf("unexpected state %+v", resp)
	}
	if !resp.Resume.Prompt || resp.Resume.AtSeconds != 550 {
		t.Fatalf("unexpected resume %+v", resp.Resume)
	}
}

func TestCompleteContent_GatesOnThresholdAndComment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	h := CompleteContent(f.progress, f.contents, f.bus, nil)
	comment := strings.Repeat("a", 150)

	post := func(c string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(completeReq{Comment: c})
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, asAuthUser(contentReq(http.MethodPost, "/v1/contents/content-1/complete", body)))
		return rr
	}

	// Below threshold.
	_ = f.progress.SaveProgress(ctx, "user-1", "content-1", 300, 50)
	if rr := post(comment); rr.Code != http.StatusConflict {
		t.Fatalf("below threshold: expected 409, got %d", rr.Code)
	}

	_ = f.progress.SaveProgress(ctx, "user-1", "content-1", 560, 93)

	// Comment too short.
	if rr := post("too short"); rr.Code != http.StatusBadRequest {
		t.Fatalf("short comment: expected 400, got %d", rr.Code)
	}

	if rr := post(comment); rr.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}

	rec, _ := f.progress.GetRecord(ctx, "user-1", "content-1")
	if !rec.Completed || rec.WatchedTime < 560 {
		t.Fatalf("unexpected record %+v", rec)
	}
	feed, _ := f.comments.ListByContent(ctx, "content-1", 10)
	if len(feed) != 1 {
		t.Fatalf("expected the completion comment, got %d", len(feed))
	}

	// Second completion is rejected.
	if rr := post(comment); rr.Code != http.StatusConflict {
		t.Fatalf("repeat complete: expected 409, got %d", rr.Code)
	}
}

func TestCompleteContent_ConcurrentRequestsCompleteOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	h := CompleteContent(f.progress, f.contents, f.bus, nil)
	_ = f.progress.SaveProgress(ctx, "user-1", "content-1", 560, 93)

	// Two requests for the same record in flight at once, e.g. a double-tap
	// racing past the client-side gate or two devices on one account.
	const requests = 2
	codes := make(chan int, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, _ := json.Marshal(completeReq{Comment: strings.Repeat("a", 150)})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, asAuthUser(contentReq(http.MethodPost, "/v1/contents/content-1/complete", body)))
			codes <- rr.Code
		}()
	}
	wg.Wait()
	close(codes)

	var ok, conflict int
	for code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflict++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Fatalf("expected one 200 and one 409, got %d/%d", ok, conflict)
	}
	feed, _ := f.comments.ListByContent(ctx, "content-1", 10)
	if len(feed) != 1 {
		t.Fatalf("expected exactly one completion comment, got %d", len(feed))
	}
}

func TestToggleLike_RoundTrip(t *testing.T) {
	f := newFixture()
	h := ToggleLike(f.social)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, asAuthUser(contentReq(http.MethodPost, "/v1/contents/content-1/like", nil)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var res social.ToggleResult
	_ = json.Unmarshal(rr.Body.Bytes(), &res)
	if !res.Active || res.Count != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	rr = httptest.NewRecorder()
	ReactionStatus(f.social).ServeHTTP(rr, asAuthUser(contentReq(http.MethodGet, "/v1/contents/content-1/reactions", nil)))
	var status map[string]bool
	_ = json.Unmarshal(rr.Body.Bytes(), &status)
	if !status["liked"] || status["favorited"] {
		t.Fatalf("unexpected status %v", status)
	}
}

func TestSearchContents_MatchesTitleCaseInsensitively(t *testing.T) {
	f := newFixture()
	f.contents.Put(content.Content{ID: "content-2", Title: "Ladder Inspection", Category: "safety", Duration: 300})

	rr := httptest.NewRecorder()
	SearchContents(f.contents).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/contents/search?q=forklift", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var resp struct {
		Contents []content.Content `json:"contents"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Contents) != 1 || resp.Contents[0].ID != "content-1" {
		t.Fatalf("unexpected results %+v", resp.Contents)
	}

	rr = httptest.NewRecorder()
	SearchContents(f.contents).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/contents/search", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing query: expected 400, got %d", rr.Code)
	}
}

func TestListFavorites_ReturnsToggledContents(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, _ = f.social.ToggleFavorite(ctx, "user-1", "content-1")

	rr := httptest.NewRecorder()
	h := ListFavorites(f.social, f.contents)
	h.ServeHTTP(rr, asAuthUser(httptest.NewRequest(http.MethodGet, "/v1/me/favorites", nil)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var resp struct {
		Contents []content.Content `json:"contents"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Contents) != 1 || resp.Contents[0].ID != "content-1" {
		t.Fatalf("unexpected favorites %+v", resp.Contents)
	}

	_, _ = f.social.ToggleFavorite(ctx, "user-1", "content-1")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, asAuthUser(httptest.NewRequest(http.MethodGet, "/v1/me/favorites", nil)))
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Contents) != 0 {
		t.Fatalf("untoggled favorite must disappear, got %+v", resp.Contents)
	}
}

func TestRecordView_IncrementsAndEmits(t *testing.T) {
	f := newFixture()
	var change eventbus.CounterChange
	f.bus.On(eventbus.EventViewCountChanged, func(p any) { change = p.(eventbus.CounterChange) })

	rr := httptest.NewRecorder()
	RecordView(f.contents, f.bus, nil).ServeHTTP(rr, asAuthUser(contentReq(http.MethodPost, "/v1/contents/content-1/view", nil)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if change.ContentID != "content-1" || change.Delta != 1 {
		t.Fatalf("missing view-count event, got %+v", change)
	}
}

func TestRegisterThenLogin_PendingAccountBlocked(t *testing.T) {
	f := newFixture()

	body, _ := json.Marshal(identity.RegisterParams{
		Email: "kim@example.com", Name: "Kim", EmployeeID: "EMP-7", Password: "longenough",
	})
	rr := httptest.NewRecorder()
	Register(f.identity).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: status %d (%s)", rr.Code, rr.Body.String())
	}

	body, _ = json.Marshal(loginReq{Login: "EMP-7", Password: "longenough"})
	rr = httptest.NewRecorder()
	Login(f.identity).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/auth/login", bytes.NewReader(body)))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("pending login: expected 403, got %d", rr.Code)
	}
}

func TestDeleteComment_AuthorOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	c, _ := f.comments.Create(ctx, comments.Comment{ContentID: "content-1", UserID: "user-2", Body: "not yours"})

	req := contentReq(http.MethodDelete, "/v1/contents/content-1/comments/"+c.ID, nil)
	rctx := chi.RouteContext(req.Context())
	rctx.URLParams.Add("comment_id", c.ID)

	rr := httptest.NewRecorder()
	DeleteComment(f.comments, f.bus).ServeHTTP(rr, asAuthUser(req))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign comment, got %d", rr.Code)
	}
}
