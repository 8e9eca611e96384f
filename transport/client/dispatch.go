package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/batchelor-project/batchelor/dispatch"
)

func (c *Client) Alive(ctx context.Context) error {
	return c.do(ctx, "GET", "/alive", nil, nil)
}

func (c *Client) FetchTask(ctx context.Context, ns string, req dispatch.FetchRequest) (dispatch.FetchResponse, error) {
	var resp dispatch.FetchResponse
	err := c.do(ctx, "POST", fmt.Sprintf("/fetch-task/%s", url.PathEscape(ns)), req, &resp)
	return resp, err
}

func (c *Client) RunTask(ctx context.Context, ns string, req dispatch.RunRequest) (dispatch.RunResponse, error) {
	var resp dispatch.RunResponse
	err := c.do(ctx, "POST", fmt.Sprintf("/task/%s", url.PathEscape(ns)), req, &resp)
	return resp, err
}

func (c *Client) SendSignal(ctx context.Context, ns, taskID, signal string) error {
	path := fmt.Sprintf("/signal/%s/%s/%s", url.PathEscape(ns), url.PathEscape(taskID), url.PathEscape(signal))
	return c.do(ctx, "POST", path, nil, nil)
}

func (c *Client) GetTask(ctx context.Context, ns, taskID string) (*dispatch.TaskStatusHead, error) {
	var resp dispatch.TaskStatusHead
	err := c.do(ctx, "GET", fmt.Sprintf("/task/%s/%s", url.PathEscape(ns), url.PathEscape(taskID)), nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetTasks(ctx context.Context, ns string, query string) ([]dispatch.TaskStatusHead, error) {
	var resp []dispatch.TaskStatusHead
	path := fmt.Sprintf("/tasks/%s", url.PathEscape(ns))
	if query != "" {
		path += "?" + query
	}
	err := c.do(ctx, "GET", path, nil, &resp)
	return resp, err
}

func (c *Client) GetEventTypes(ctx context.Context, ns string) ([]string, error) {
	var resp []string
	err := c.do(ctx, "GET", fmt.Sprintf("/event-types/%s", url.PathEscape(ns)), nil, &resp)
	return resp, err
}
