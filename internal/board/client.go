package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"taskboard/internal/models"
)

// API is the remote task board as seen by the controller.
type API interface {
	FindEmployee(ctx context.Context, empID int64) (*models.Employee, error)
	GetTasks(ctx context.Context, empID int64) (models.TaskLists, error)
	CreateTask(ctx context.Context, empID int64, text string) (string, error)
	ReplaceTasks(ctx context.Context, empID int64, lists models.TaskLists) error
	DeleteTask(ctx context.Context, empID int64, taskID string) error
}

// FieldError mirrors a field-level violation in an API error body.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the task board API.
type APIError struct {
	Status  int          `json:"status"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("task board api: status %d", e.Status)
	}
	return fmt.Sprintf("task board api: status %d: %s", e.Status, e.Message)
}

// Client talks to the task board HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the API rooted at baseURL (for example
// http://localhost:8080/api). A nil httpClient uses http.DefaultClient;
// requests are bounded only by their context and the transport defaults.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// FindEmployee confirms an employee id during sign-in.
func (c *Client) FindEmployee(ctx context.Context, empID int64) (*models.Employee, error) {
	emp := &models.Employee{}
	if err := c.do(ctx, http.MethodGet, employeePath(empID), nil, emp, http.StatusOK); err != nil {
		return nil, err
	}
	return emp, nil
}

// GetTasks fetches both lists.
func (c *Client) GetTasks(ctx context.Context, empID int64) (models.TaskLists, error) {
	var lists models.TaskLists
	if err := c.do(ctx, http.MethodGet, employeePath(empID)+"/tasks", nil, &lists, http.StatusOK); err != nil {
		return models.TaskLists{}, err
	}
	return lists.Normalize(), nil
}

// CreateTask creates a task and returns the server-assigned id.
func (c *Client) CreateTask(ctx context.Context, empID int64, text string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	body := map[string]string{"text": text}
	if err := c.do(ctx, http.MethodPost, employeePath(empID)+"/tasks", body, &resp, http.StatusCreated); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ReplaceTasks sends the complete state of both lists.
func (c *Client) ReplaceTasks(ctx context.Context, empID int64, lists models.TaskLists) error {
	return c.do(ctx, http.MethodPut, employeePath(empID)+"/tasks", lists.Normalize(), nil, http.StatusNoContent)
}

// DeleteTask removes a task by id.
func (c *Client) DeleteTask(ctx context.Context, empID int64, taskID string) error {
	path := employeePath(empID) + "/tasks/" + url.PathEscape(taskID)
	return c.do(ctx, http.MethodDelete, path, nil, nil, http.StatusNoContent)
}

func employeePath(empID int64) string {
	return "/employees/" + strconv.FormatInt(empID, 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, want int) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode}
		json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(apiErr)
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
