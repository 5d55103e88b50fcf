// Package gateway talks to the school's REST API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/edubull/eeebee/internal/cache"
	"github.com/edubull/eeebee/internal/domain"
	"github.com/edubull/eeebee/internal/metrics"
)

const (
	pathAuthEnglish     = "/EnglishLab/Auth_with_topic_for_chatbot"
	pathAuthMathScience = "/eProfessor/eProf_Org_StudentVerify_with_topic_for_chatbot"
	pathRemedial        = "/eProfessor/WeakConcept_Remedy_List_ByConceptID"
	pathClassDetail     = "/eProfessor/eProf_Org_Teacher_Topic_Wise_Weak_Concepts_AND_Students"
	pathStudentConcepts = "/eProfessor/eProf_Org_Teacher_Topic_Wise_Concepts_OF_Students"
	pathAllConcepts     = "/eProfessor/eProf_Org_ConceptList_Single_Student"
	pathBaseline        = "/eProfessor/eProf_Org_Baseline_Report_Single_Student"

	// VideoBaseURL prefixes a LectureID to build a video link.
	VideoBaseURL = "https://www.edubull.com/courses/videos/"

	maxResponseBody = 8 << 20
)

// Client is the school API client. It never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Store
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithCache caches remedial resource responses.
func WithCache(s cache.Store) Option {
	return func(cl *Client) { cl.cache = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New creates a client for baseURL, e.g. https://webapi.edubull.com/api.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// post sends payload as JSON and decodes the response into out.
func (c *Client) post(ctx context.Context, op, path string, payload, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveGateway(op, start, err) }()

	raw, err := c.postRaw(ctx, op, path, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &RemoteError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, op, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, &RemoteError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Gateway call failed", "op", op, "status", resp.StatusCode)
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode}
	}
	return raw, nil
}

// flexInt accepts a JSON number, a numeric string or null.
type flexInt struct {
	Value int64
	Valid bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = flexInt{}
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fl, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("not an integer: %s", b)
		}
		n = int64(fl)
	}
	*f = flexInt{Value: n, Valid: true}
	return nil
}

type authRequest struct {
	OrgCode  string `json:"OrgCode"`
	TopicID  int    `json:"TopicID"`
	LoginID  string `json:"LoginID"`
	Password string `json:"Password"`
	UserType *int   `json:"UserType,omitempty"`
}

type authUserInfo struct {
	FullName  string  `json:"FullName"`
	UserID    flexInt `json:"UserID"`
	OrgCode   string  `json:"OrgCode"`
	SubjectID flexInt `json:"SubjectID"`
}

type authResponse struct {
	StatusCode      flexInt          `json:"statusCode"`
	SubjectID       flexInt          `json:"SubjectID"`
	UserInfo        []authUserInfo   `json:"UserInfo"`
	BatchList       []domain.Batch   `json:"BatchList"`
	ConceptList     []domain.Concept `json:"ConceptList"`
	WeakConceptList []domain.Concept `json:"WeakConceptList"`
	TopicName       string           `json:"TopicName"`
	BranchName      string           `json:"BranchName"`
}

// Authenticate logs in. English mode uses the English lab endpoint, always
// logs in as a student and does not require a subject id.
func (c *Client) Authenticate(ctx context.Context, cred domain.Credentials) (*domain.Profile, error) {
	op, path := "auth", pathAuthMathScience
	role := cred.Role
	req := authRequest{
		OrgCode:  cred.OrgCode,
		TopicID:  cred.TopicID,
		LoginID:  cred.LoginID,
		Password: cred.Password,
	}
	if cred.English {
		op, path = "auth_english", pathAuthEnglish
		role = domain.RoleStudent
	} else {
		ut := role.UserType()
		req.UserType = &ut
	}

	var resp authResponse
	if err := c.post(ctx, op, path, req, &resp); err != nil {
		return nil, err
	}

	if !resp.StatusCode.Valid || resp.StatusCode.Value != 1 {
		return nil, authError("invalid status code")
	}
	if len(resp.UserInfo) == 0 {
		return nil, authError("user info missing from response")
	}
	info := resp.UserInfo[0]
	if info.FullName == "" || !info.UserID.Valid {
		return nil, authError("user name or id missing from response")
	}

	id := domain.Identity{
		UserID:     info.UserID.Value,
		Name:       info.FullName,
		OrgCode:    info.OrgCode,
		Role:       role,
		TopicName:  resp.TopicName,
		BranchName: resp.BranchName,
		English:    cred.English,
	}
	if id.OrgCode == "" {
		id.OrgCode = cred.OrgCode
	}
	if !cred.English {
		subject := resp.SubjectID
		if !subject.Valid {
			subject = info.SubjectID
		}
		if !subject.Valid {
			return nil, authError("Subject ID not found in authentication response")
		}
		id.SubjectID = int(subject.Value)
	}

	profile := &domain.Profile{
		Identity:     id,
		Batches:      resp.BatchList,
		Concepts:     resp.ConceptList,
		WeakConcepts: resp.WeakConceptList,
	}
	c.logger.Info("Authenticated",
		"user_id", id.UserID,
		"role", role.String(),
		"topic_id", cred.TopicID,
		"english", cred.English,
		"batches", len(profile.Batches),
		"concepts", len(profile.Concepts),
	)
	return profile, nil
}

// ClassDetail fetches the roster and concept coverage of one batch.
func (c *Client) ClassDetail(ctx context.Context, batchID, topicID int, orgCode string) (*domain.ClassDetail, error) {
	payload := map[string]any{"BatchID": batchID, "TopicID": topicID, "OrgCode": orgCode}
	var out domain.ClassDetail
	if err := c.post(ctx, "class_detail", pathClassDetail, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StudentConcepts fetches one student's weak and cleared concepts.
func (c *Client) StudentConcepts(ctx context.Context, userID int64, topicID int, orgCode string) (*domain.StudentConcepts, error) {
	payload := map[string]any{"UserID": userID, "TopicID": topicID, "OrgCode": orgCode}
	var out domain.StudentConcepts
	if err := c.post(ctx, "student_concepts", pathStudentConcepts, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AllConcepts lists every concept of the subject with the student's status.
func (c *Client) AllConcepts(ctx context.Context, orgCode string, subjectID int, userID int64) ([]domain.Concept, error) {
	payload := map[string]any{"OrgCode": orgCode, "SubjectID": subjectID, "UserID": userID}
	var out []domain.Concept
	if err := c.post(ctx, "all_concepts", pathAllConcepts, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BaselineReport fetches the student's baseline test result for a subject.
func (c *Client) BaselineReport(ctx context.Context, userID int64, subjectID int, orgCode string) (*domain.BaselineReport, error) {
	payload := map[string]any{"UserID": userID, "SubjectID": subjectID, "OrgCode": orgCode}
	var out domain.BaselineReport
	if err := c.post(ctx, "baseline", pathBaseline, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemedialResources fetches videos, notes and exercises for a concept.
// Responses are cached when a cache store is configured.
func (c *Client) RemedialResources(ctx context.Context, topicID, conceptID int) (res *domain.Resources, err error) {
	const op = "remedial"
	key := fmt.Sprintf("remedial:%d:%d", topicID, conceptID)

	if c.cache != nil {
		if raw, cerr := c.cache.Get(ctx, key); cerr != nil {
			c.logger.Warn("Resource cache read failed", "key", key, "error", cerr)
		} else if raw != nil {
			var out domain.Resources
			if jerr := json.Unmarshal(raw, &out); jerr == nil {
				metrics.CacheLookups.WithLabelValues("hit").Inc()
				return &out, nil
			}
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	defer func() { metrics.ObserveGateway(op, start, err) }()

	raw, err := c.postRaw(ctx, op, pathRemedial, map[string]any{"TopicID": topicID, "ConceptID": conceptID})
	if err != nil {
		return nil, err
	}
	var out domain.Resources
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &RemoteError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, raw); err != nil {
			c.logger.Warn("Resource cache write failed", "key", key, "error", err)
		}
	}
	return &out, nil
}
