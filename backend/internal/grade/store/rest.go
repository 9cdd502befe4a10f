package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"schooldash/backend/internal/grade"
)

// RESTStore talks to the dashboard's REST API. It does not retry.
type RESTStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewRESTStore creates a client for the API rooted at baseURL. A zero timeout
// leaves requests bounded only by their context.
func NewRESTStore(baseURL, token string, timeout time.Duration) *RESTStore {
	if timeout < 0 {
		timeout = 0
	}
	return &RESTStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Subjects implements Store.
func (r *RESTStore) Subjects(ctx context.Context) ([]grade.Subject, error) {
	var subjects []grade.Subject
	if err := r.do(ctx, http.MethodGet, "/subjects", nil, &subjects); err != nil {
		return nil, err
	}
	if subjects == nil {
		subjects = []grade.Subject{}
	}
	return subjects, nil
}

// Roster implements Store.
func (r *RESTStore) Roster(ctx context.Context, subjectID string) ([]WideRecord, error) {
	if subjectID == "" {
		return nil, status.Error(codes.InvalidArgument, "subject_id is required")
	}
	var records []WideRecord
	path := "/subjects/" + url.PathEscape(subjectID) + "/roster"
	if err := r.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		if status.Code(err) == codes.NotFound {
			return []WideRecord{}, nil
		}
		return nil, err
	}
	if records == nil {
		records = []WideRecord{}
	}
	return records, nil
}

// UpsertScore implements Store.
func (r *RESTStore) UpsertScore(ctx context.Context, w grade.ScoreWrite) error {
	if err := checkWrite(w); err != nil {
		return err
	}
	return r.do(ctx, http.MethodPut, "/scores", w, nil)
}

func (r *RESTStore) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return status.Errorf(codes.Internal, "encode request: %v", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return status.Errorf(codes.Internal, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return status.FromContextError(ctx.Err()).Err()
		}
		return status.Errorf(codes.Unavailable, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return status.Error(httpToCode(resp.StatusCode), remoteMessage(resp))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return status.Errorf(codes.Internal, "decode %s response: %v", path, err)
	}
	return nil
}

// remoteMessage extracts the message of a {success, message} error envelope.
func remoteMessage(resp *http.Response) string {
	var envelope struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &envelope) == nil && envelope.Message != "" {
		return envelope.Message
	}
	return fmt.Sprintf("remote store returned %s", resp.Status)
}

func httpToCode(statusCode int) codes.Code {
	switch statusCode {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.AlreadyExists
	case http.StatusPreconditionFailed:
		return codes.FailedPrecondition
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return codes.Unavailable
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}
