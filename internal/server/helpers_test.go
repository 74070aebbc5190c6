package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IlyaEru/blog-api/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- humanizeParam (pure function, no HTTP) ---

func TestHumanizeParam(t *testing.T) {
	tests := []struct {
		param    string
		expected string
	}{
		{"id", "ID"},
		{"postId", "post ID"},
		{"commentId", "comment ID"},
		{"parentPostId", "parent post ID"},
		{"something", "something"},
	}
	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			assert.Equal(t, tt.expected, humanizeParam(tt.param))
		})
	}
}

// --- parsePagination ---

func paginationApp() *fiber.App {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})
	return app
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query          string
		expectedLimit  float64
		expectedOffset float64
	}{
		{"", 25, 0},
		{"?limit=10&offset=30", 10, 30},
		{"?limit=0&offset=-5", 25, 0},
		{"?limit=1000", maxPaginationLimit, 0},
		{"?limit=abc", 25, 0},
	}

	app := paginationApp()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			var body map[string]float64
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.expectedLimit, body["limit"])
			assert.Equal(t, tt.expectedOffset, body["offset"])
		})
	}
}

// --- parseID ---

func TestParseID(t *testing.T) {
	s := &Server{}
	app := fiber.New()
	app.Get("/posts/:id", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{"/posts/7", fiber.StatusOK},
		{"/posts/0", fiber.StatusBadRequest},
		{"/posts/-3", fiber.StatusBadRequest},
		{"/posts/abc", fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == fiber.StatusBadRequest {
				var body models.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, "Invalid ID", body.Error)
				assert.Equal(t, models.CodeValidation, body.Code)
			}
		})
	}
}

// --- respondError ---

func TestRespondError(t *testing.T) {
	s := &Server{}
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   models.ErrorResponse
	}{
		{
			name:           "validation",
			err:            models.NewValidationError("title is required"),
			expectedStatus: fiber.StatusBadRequest,
			expectedBody:   models.ErrorResponse{Error: "title is required", Code: models.CodeValidation},
		},
		{
			name:           "duplicate",
			err:            models.NewDuplicateError("Post title is already taken"),
			expectedStatus: fiber.StatusBadRequest,
			expectedBody:   models.ErrorResponse{Error: "Post title is already taken", Code: models.CodeDuplicate},
		},
		{
			name:           "not found",
			err:            models.NewNotFoundError("Post", 9),
			expectedStatus: fiber.StatusNotFound,
			expectedBody:   models.ErrorResponse{Error: "Post with ID 9 not found", Code: models.CodeNotFound},
		},
		{
			name:           "internal error hides cause",
			err:            models.NewInternalError(errors.New("pq: connection refused")),
			expectedStatus: fiber.StatusInternalServerError,
			expectedBody:   models.ErrorResponse{Error: "Internal server error", Code: models.CodeInternal},
		},
		{
			name:           "plain error hides cause",
			err:            errors.New("boom"),
			expectedStatus: fiber.StatusInternalServerError,
			expectedBody:   models.ErrorResponse{Error: "Internal server error", Code: models.CodeInternal},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return s.respondError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			var body models.ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.expectedBody, body)
		})
	}
}
