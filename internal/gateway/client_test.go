package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edubull/eeebee/internal/cache"
	"github.com/edubull/eeebee/internal/domain"
)

func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestAuthenticateTeacher(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := newTestServer(t, map[string]http.HandlerFunc{
		pathAuthMathScience: func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != "Mozilla/5.0" {
				t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
			}
			_ = json.NewDecoder(r.Body).Decode(&got)
			writeJSON(w, map[string]any{
				"statusCode": 1,
				"SubjectID":  5,
				"TopicName":  "Fractions",
				"BranchName": "Class 8",
				"UserInfo":   []map[string]any{{"FullName": "Ms. Iyer", "UserID": "77", "OrgCode": "012"}},
				"BatchList": []map[string]any{
					{"BatchID": 1, "BatchName": "8-A", "StudentCount": 30},
					{"BatchID": 2, "BatchName": "8-B"},
				},
			})
		},
	})

	c := New(srv.URL)
	p, err := c.Authenticate(context.Background(), domain.Credentials{
		OrgCode: "012", LoginID: "iyer", Password: "pw", TopicID: 9, Role: domain.RoleTeacher,
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got["UserType"] != float64(2) {
		t.Errorf("expected UserType 2, got %v", got["UserType"])
	}
	if got["TopicID"] != float64(9) {
		t.Errorf("expected numeric TopicID, got %v", got["TopicID"])
	}
	if p.Identity.UserID != 77 || p.Identity.Name != "Ms. Iyer" || !p.Identity.IsTeacher() {
		t.Errorf("unexpected identity %+v", p.Identity)
	}
	if p.Identity.SubjectID != 5 || p.Identity.TopicName != "Fractions" {
		t.Errorf("unexpected subject/topic %+v", p.Identity)
	}
	if len(p.Batches) != 2 || p.Batches[1].StudentCount != nil {
		t.Errorf("unexpected batches %+v", p.Batches)
	}
}

func TestAuthenticateEnglishOmitsUserType(t *testing.T) {
	t.Parallel()

	var raw string
	srv := newTestServer(t, map[string]http.HandlerFunc{
		pathAuthEnglish: func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			raw = string(b)
			writeJSON(w, map[string]any{
				"statusCode": 1,
				"UserInfo":   []map[string]any{{"FullName": "Ravi", "UserID": 3}},
			})
		},
	})

	p, err := New(srv.URL).Authenticate(context.Background(), domain.Credentials{
		OrgCode: "012", LoginID: "ravi", Password: "pw", TopicID: 1, Role: domain.RoleTeacher, English: true,
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if strings.Contains(raw, "UserType") {
		t.Errorf("English login must not send UserType: %s", raw)
	}
	if p.Identity.IsTeacher() {
		t.Error("English login is always a student")
	}
	if p.Identity.OrgCode != "012" {
		t.Errorf("expected org code fallback, got %q", p.Identity.OrgCode)
	}
}

func TestAuthenticateFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     map[string]any
		contains string
	}{
		{"bad status", map[string]any{"statusCode": 0}, "invalid status code"},
		{"no user info", map[string]any{"statusCode": 1}, "user info missing"},
		{"no name", map[string]any{"statusCode": 1, "UserInfo": []map[string]any{{"UserID": 1}}}, "name or id"},
		{"no subject", map[string]any{"statusCode": 1, "UserInfo": []map[string]any{{"FullName": "A", "UserID": 1}}}, "Subject ID not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newTestServer(t, map[string]http.HandlerFunc{
				pathAuthMathScience: func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, tt.body) },
			})
			_, err := New(srv.URL).Authenticate(context.Background(), domain.Credentials{TopicID: 1})
			if !errors.Is(err, ErrAuthentication) {
				t.Fatalf("expected ErrAuthentication, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Fatalf("expected %q in %q", tt.contains, err.Error())
			}
		})
	}
}

func TestSubjectIDFromUserInfo(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]http.HandlerFunc{
		pathAuthMathScience: func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]any{
				"statusCode":      1,
				"UserInfo":        []map[string]any{{"FullName": "A", "UserID": 1, "SubjectID": 12}},
				"WeakConceptList": []map[string]any{{"ConceptID": 4, "ConceptText": "Ratios"}},
			})
		},
	})
	p, err := New(srv.URL).Authenticate(context.Background(), domain.Credentials{TopicID: 1})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if p.Identity.SubjectID != 12 {
		t.Fatalf("expected subject 12, got %d", p.Identity.SubjectID)
	}
	if !p.IsWeak(4) || p.IsWeak(5) {
		t.Fatal("weak concept lookup wrong")
	}
}

func TestRemoteErrors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]http.HandlerFunc{
		pathClassDetail: func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		},
		pathStudentConcepts: func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
	})
	c := New(srv.URL)

	_, err := c.ClassDetail(context.Background(), 1, 2, "012")
	var re *RemoteError
	if !errors.As(err, &re) || re.StatusCode != http.StatusBadGateway || re.Op != "class_detail" {
		t.Fatalf("expected RemoteError 502, got %v", err)
	}

	_, err = c.StudentConcepts(context.Background(), 1, 2, "012")
	if !errors.As(err, &re) || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("expected decode RemoteError, got %v", err)
	}

	srv.Close()
	_, err = c.AllConcepts(context.Background(), "012", 1, 1)
	if !errors.As(err, &re) {
		t.Fatalf("expected transport RemoteError, got %v", err)
	}
}

func TestClassDetailAndStudentConcepts(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]http.HandlerFunc{
		pathClassDetail: func(w http.ResponseWriter, r *http.Request) {
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["BatchID"] != float64(2) || req["OrgCode"] != "012" {
				t.Errorf("unexpected request %v", req)
			}
			writeJSON(w, map[string]any{
				"Students": []map[string]any{{"UserID": 10, "FullName": "Ravi", "ClearedConceptCount": 1, "TotalConceptCount": 3}},
				"Concepts": []map[string]any{{"ConceptID": 4, "ConceptText": "Ratios", "AttendedStudentCount": 5, "ClearedStudentCount": 2}},
			})
		},
		pathStudentConcepts: func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, map[string]any{
				"WeakConcepts_List":    []map[string]any{{"ConceptText": "Ratios", "AttendedQuestion": 4, "CorrectQuestion": 1, "AvgMarksPercent": 25.0, "AvgTimeTaken_SS": 30, "TotalTimeTaken_SS": 120}},
				"ClearedConcepts_List": []map[string]any{},
			})
		},
	})
	c := New(srv.URL)

	cd, err := c.ClassDetail(context.Background(), 2, 9, "012")
	if err != nil {
		t.Fatalf("ClassDetail failed: %v", err)
	}
	if len(cd.Students) != 1 || cd.Students[0].Progress() != domain.ProgressInProgress {
		t.Fatalf("unexpected students %+v", cd.Students)
	}

	sc, err := c.StudentConcepts(context.Background(), 10, 9, "012")
	if err != nil {
		t.Fatalf("StudentConcepts failed: %v", err)
	}
	if len(sc.Weak) != 1 || sc.Weak[0].TotalTimeTakenSS != 120 || *sc.Weak[0].AvgMarksPercent != 25 {
		t.Fatalf("unexpected concepts %+v", sc)
	}
}

func TestBaselineReport(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]http.HandlerFunc{
		pathBaseline: func(w http.ResponseWriter, r *http.Request) {
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["UserID"] != float64(10) || req["SubjectID"] != float64(3) || req["OrgCode"] != "012" {
				t.Errorf("unexpected request %v", req)
			}
			writeJSON(w, map[string]any{
				"u_list":            []map[string]any{{"FullName": "Ravi", "MarksPercent": 62.5, "TotalQuestion": 8, "DurationHH": 0, "DurationMM": 42}},
				"s_skills":          []map[string]any{{"SubjectSkillName": "Reasoning", "TotalQuestion": 4, "RightAnswerCount": 3, "RightAnswerPercent": 75}},
				"concept_wise_data": []map[string]any{{"ConceptText": "Ratios", "BranchName": "8", "RightAnswerPercent": 100.0}},
				"taxonomy_list":     []map[string]any{{"TaxonomyText": "Remember", "TotalQuestion": 2, "CorrectAnswer": 1, "PercentObt": 50}},
			})
		},
	})

	r, err := New(srv.URL).BaselineReport(context.Background(), 10, 3, "012")
	if err != nil {
		t.Fatalf("BaselineReport failed: %v", err)
	}
	if r.Empty() || r.Summary[0].MarksPercent != 62.5 || r.Summary[0].DurationMM != 42 {
		t.Fatalf("unexpected summary %+v", r.Summary)
	}
	if !r.Concepts[0].Cleared() || r.Skills[0].RightAnswerCount != 3 || r.Taxonomy[0].PercentObt != 50 {
		t.Fatalf("unexpected report %+v", r)
	}
}

func TestRemedialResourcesUsesCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := newTestServer(t, map[string]http.HandlerFunc{
		pathRemedial: func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			writeJSON(w, map[string]any{
				"Video_List": []map[string]any{{"LectureID": 99, "LectureTitle": "Ratios intro"}},
			})
		},
	})

	store, err := cache.NewStore(cache.StoreTypeMemory, cache.WithTTL(time.Minute))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	c := New(srv.URL, WithCache(store))

	for i := 0; i < 3; i++ {
		res, err := c.RemedialResources(context.Background(), 9, 4)
		if err != nil {
			t.Fatalf("RemedialResources failed: %v", err)
		}
		if len(res.Videos) != 1 || res.Videos[0].LectureID != 99 {
			t.Fatalf("unexpected resources %+v", res)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", calls.Load())
	}
}
