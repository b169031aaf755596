package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"todoclient/internal/models"
)

// List fetches one page of todos matching the search and filter
func (c *Client) List(ctx context.Context, params models.ListParams) (*models.Page, error) {
	if err := params.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	req := models.GetTodosRequest{
		Page:   params.Page,
		Limit:  params.Limit,
		Skip:   (params.Page - 1) * params.Limit,
		Search: strings.TrimSpace(params.Search),
	}
	if f := params.Filter.Normalize(); f.Status != models.StatusAll || f.Date != "" {
		req.Filter = &f
	}

	var payload models.TodosPayload
	if err := c.do(ctx, http.MethodPost, "/todos/get-todos", req, &payload, callOptions{}); err != nil {
		return nil, err
	}

	page := models.PageFromPayload(payload)
	if page.Number == 0 {
		page.Number = params.Page
	}
	if page.Limit == 0 {
		page.Limit = params.Limit
	}
	return &page, nil
}

// Create adds a todo; the returned value carries the server-assigned id
func (c *Client) Create(ctx context.Context, input models.CreateTodoRequest) (*models.Todo, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, &ValidationError{Message: "Title is required"}
	}

	var todo models.Todo
	if err := c.do(ctx, http.MethodPost, "/todos", input, &todo, callOptions{}); err != nil {
		return nil, err
	}
	return &todo, nil
}

// Update applies a partial update
func (c *Client) Update(ctx context.Context, id string, patch models.UpdateTodoRequest) (*models.Todo, error) {
	if patch.IsEmpty() {
		return nil, &ValidationError{Message: "Nothing to update"}
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, &ValidationError{Message: "Title must not be empty"}
	}

	var todo models.Todo
	if err := c.do(ctx, http.MethodPatch, todoPath(id), patch, &todo, callOptions{}); err != nil {
		return nil, err
	}
	return &todo, nil
}

// Delete removes a todo
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, todoPath(id), nil, nil, callOptions{})
}

// Toggle sets the completion flag
func (c *Client) Toggle(ctx context.Context, id string, completed bool) (*models.Todo, error) {
	var todo models.Todo
	body := models.UpdateTodoRequest{Completed: &completed}
	if err := c.do(ctx, http.MethodPatch, todoPath(id), body, &todo, callOptions{}); err != nil {
		return nil, err
	}
	return &todo, nil
}

func todoPath(id string) string {
	return "/todos/" + url.PathEscape(id)
}
