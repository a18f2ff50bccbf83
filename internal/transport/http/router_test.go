package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/okrboard/backend/internal/config"
	"github.com/okrboard/backend/internal/core/ports"
	"github.com/okrboard/backend/internal/domain"
	"github.com/okrboard/backend/internal/infrastructure/logger"
	"github.com/okrboard/backend/internal/transport/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requester struct {
	userID       string
	unrestricted bool
	department   string
	organization string
}

var (
	manager = requester{userID: "u-admin", unrestricted: true, organization: "org-1"}
	member  = requester{userID: "u-1", department: "eng", organization: "org-1"}
)

func newTestApp(t *testing.T, mutate ...func(*config.Config)) *fiber.App {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Driver = config.DriverMemory
	for _, m := range mutate {
		m(&cfg)
	}
	app := fiber.New()
	SetupRoutes(app, RouterConfig{Logger: logger.NewNop(), Config: &cfg})
	return app
}

func call(t *testing.T, app *fiber.App, method, path string, who *requester, body interface{}, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		req.Header.Set("X-User-ID", who.userID)
		if who.unrestricted {
			req.Header.Set("X-Assign-Rights", "unrestricted")
		}
		if who.department != "" {
			req.Header.Set("X-Department-ID", who.department)
		}
		if who.organization != "" {
			req.Header.Set("X-Organization-ID", who.organization)
		}
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createTask(t *testing.T, app *fiber.App, who requester, body map[string]interface{}) *domain.Task {
	t.Helper()
	var res dto.CreateTaskResponse
	code := call(t, app, http.MethodPost, "/api/v1/tasks", &who, body, &res)
	require.Equal(t, fiber.StatusCreated, code)
	require.NotNil(t, res.Task)
	return res.Task
}

func TestCreateIndividualTaskDirectly(t *testing.T) {
	app := newTestApp(t)

	var res dto.CreateTaskResponse
	code := call(t, app, http.MethodPost, "/api/v1/tasks", &member, map[string]interface{}{
		"title": "Write quarterly report",
		"scope": "individual",
		"milestones": []map[string]interface{}{
			{"id": "m1", "description": "draft", "weight": 40, "completed": true},
			{"id": "m2", "description": "review", "weight": 60},
		},
	}, &res)

	require.Equal(t, fiber.StatusCreated, code)
	assert.Equal(t, "created", res.Status)
	require.NotNil(t, res.Task)
	assert.Equal(t, 40, res.Task.Progress)
	assert.Equal(t, domain.TaskStatusInProgress, res.Task.Status)
	assert.Equal(t, "u-1", res.Task.CreatedBy)
}

func TestCreateRequiresUserHeader(t *testing.T) {
	app := newTestApp(t)

	var res dto.ErrorResponse
	code := call(t, app, http.MethodPost, "/api/v1/tasks", nil, map[string]interface{}{
		"title": "x",
		"scope": "individual",
	}, &res)

	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Contains(t, res.Error, "X-User-ID")
}

func TestCreateValidation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		body map[string]interface{}
		code int
	}{
		{name: "missing title", body: map[string]interface{}{"scope": "individual"}, code: fiber.StatusBadRequest},
		{name: "unknown scope", body: map[string]interface{}{"title": "x", "scope": "team"}, code: fiber.StatusBadRequest},
		{name: "priority out of range", body: map[string]interface{}{"title": "x", "scope": "individual", "priority": 9}, code: fiber.StatusBadRequest},
		{
			name: "weights do not sum to 100",
			body: map[string]interface{}{
				"title": "x",
				"scope": "individual",
				"milestones": []map[string]interface{}{
					{"id": "m1", "description": "a", "weight": 30},
					{"id": "m2", "description": "b", "weight": 30},
				},
			},
			code: fiber.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res dto.ErrorResponse
			code := call(t, app, http.MethodPost, "/api/v1/tasks", &member, tt.body, &res)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestCommitMilestonesWeightErrorCarriesSum(t *testing.T) {
	app := newTestApp(t)
	task := createTask(t, app, member, map[string]interface{}{"title": "x", "scope": "individual"})

	var res dto.ErrorResponse
	code := call(t, app, http.MethodPut, "/api/v1/tasks/"+task.ID+"/milestones", &member, map[string]interface{}{
		"milestones": []map[string]interface{}{
			{"id": "m1", "description": "a", "weight": 50},
			{"id": "m2", "description": "b", "weight": 40},
		},
	}, &res)

	assert.Equal(t, fiber.StatusUnprocessableEntity, code)
	require.NotNil(t, res.Sum)
	assert.Equal(t, 90, *res.Sum)
	assert.Nil(t, res.Weight)
}

func TestCommitMilestonesOutOfRangeWeightIsReportedSeparately(t *testing.T) {
	app := newTestApp(t)
	task := createTask(t, app, member, map[string]interface{}{"title": "x", "scope": "individual"})

	var res dto.ErrorResponse
	code := call(t, app, http.MethodPut, "/api/v1/tasks/"+task.ID+"/milestones", &member, map[string]interface{}{
		"milestones": []map[string]interface{}{
			{"id": "m1", "description": "a", "weight": 130},
			{"id": "m2", "description": "b", "weight": -30},
		},
	}, &res)

	assert.Equal(t, fiber.StatusUnprocessableEntity, code)
	require.NotNil(t, res.Sum)
	assert.Equal(t, 100, *res.Sum)
	require.NotNil(t, res.Weight)
	assert.Equal(t, 130, *res.Weight)
}

func TestCommitMilestonesUpdatesProgress(t *testing.T) {
	app := newTestApp(t)
	task := createTask(t, app, member, map[string]interface{}{"title": "x", "scope": "individual"})

	var res ports.MutationResult
	code := call(t, app, http.MethodPut, "/api/v1/tasks/"+task.ID+"/milestones", &member, map[string]interface{}{
		"milestones": []map[string]interface{}{
			{"id": "m1", "description": "a", "weight": 50, "completed": true},
			{"id": "m2", "description": "b", "weight": 50, "completed": true},
		},
	}, &res)

	require.Equal(t, fiber.StatusOK, code)
	assert.True(t, res.Changed)
	assert.Equal(t, 100, res.Task.Progress)
	assert.Equal(t, domain.TaskStatusCompleted, res.Task.Status)
}

func TestGetUnknownTask(t *testing.T) {
	app := newTestApp(t)

	var res dto.ErrorResponse
	code := call(t, app, http.MethodGet, "/api/v1/tasks/nope", &member, nil, &res)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	app := newTestApp(t)
	task := createTask(t, app, member, map[string]interface{}{"title": "x", "scope": "individual"})

	var res dto.ErrorResponse
	code := call(t, app, http.MethodPost, "/api/v1/tasks/"+task.ID+"/status", &member, map[string]interface{}{"status": "done"}, &res)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, "validation failed", res.Error)
}

func TestReopenRequiresTerminalStatus(t *testing.T) {
	app := newTestApp(t)
	task := createTask(t, app, member, map[string]interface{}{"title": "x", "scope": "individual"})

	var res dto.ErrorResponse
	code := call(t, app, http.MethodPost, "/api/v1/tasks/"+task.ID+"/reopen", &member, nil, &res)
	assert.Equal(t, fiber.StatusConflict, code)
}

func TestExpandAndPushStatus(t *testing.T) {
	app := newTestApp(t)
	umbrella := createTask(t, app, manager, map[string]interface{}{"title": "Launch", "scope": "organization"})

	var expanded ports.ExpandResult
	code := call(t, app, http.MethodPost, "/api/v1/tasks/"+umbrella.ID+"/expand", &manager, map[string]interface{}{
		"department_ids": []string{"eng", "ops"},
	}, &expanded)
	require.Equal(t, fiber.StatusCreated, code)
	require.Len(t, expanded.Created, 2)

	var res ports.MutationResult
	code = call(t, app, http.MethodPost, "/api/v1/tasks/"+umbrella.ID+"/status", &manager, map[string]interface{}{"status": "hold"}, &res)
	require.Equal(t, fiber.StatusOK, code)
	require.NotNil(t, res.Cascade)
	assert.Len(t, res.Cascade.Updated, 2)

	var children []*domain.Task
	code = call(t, app, http.MethodGet, "/api/v1/tasks/"+umbrella.ID+"/children", &manager, nil, &children)
	require.Equal(t, fiber.StatusOK, code)
	require.Len(t, children, 2)
	for _, child := range children {
		assert.Equal(t, domain.TaskStatusHold, child.Status)
	}
}

func TestExpandForbiddenForRestrictedRequester(t *testing.T) {
	app := newTestApp(t)
	umbrella := createTask(t, app, manager, map[string]interface{}{"title": "Launch", "scope": "organization"})

	var res dto.ErrorResponse
	code := call(t, app, http.MethodPost, "/api/v1/tasks/"+umbrella.ID+"/expand", &member, map[string]interface{}{
		"department_ids": []string{"eng"},
	}, &res)
	assert.Equal(t, fiber.StatusForbidden, code)
}

func TestScopedCreationGoesThroughApproval(t *testing.T) {
	app := newTestApp(t)

	var pending dto.CreateTaskResponse
	code := call(t, app, http.MethodPost, "/api/v1/tasks", &member, map[string]interface{}{
		"title": "Migrate CI",
		"scope": "department",
		"notes": "needs the whole team",
	}, &pending)
	require.Equal(t, fiber.StatusAccepted, code)
	assert.Equal(t, "pending_approval", pending.Status)
	require.NotNil(t, pending.Request)

	var list []domain.ApprovalRequest
	code = call(t, app, http.MethodGet, "/api/v1/approvals?status=pending", &manager, nil, &list)
	require.Equal(t, fiber.StatusOK, code)
	require.Len(t, list, 1)

	var decision domain.ApprovalResponse
	code = call(t, app, http.MethodPost, "/api/v1/approvals/"+pending.Request.ID+"/resolve", &manager, map[string]interface{}{
		"approve": true,
	}, &decision)
	require.Equal(t, fiber.StatusOK, code)
	assert.True(t, decision.Success)
	require.NotNil(t, decision.TaskID)

	var task domain.Task
	code = call(t, app, http.MethodGet, "/api/v1/tasks/"+*decision.TaskID, &member, nil, &task)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "eng", domain.StringValue(task.DepartmentID))

	var again dto.ErrorResponse
	code = call(t, app, http.MethodPost, "/api/v1/approvals/"+pending.Request.ID+"/resolve", &manager, map[string]interface{}{
		"approve": false,
	}, &again)
	assert.Equal(t, fiber.StatusConflict, code)
}

func TestApprovalsRequireAdminToken(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Auth.AdminAPIKey = "secret"
	})

	code := call(t, app, http.MethodGet, "/api/v1/approvals", &manager, nil, nil)
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestTimelineByResource(t *testing.T) {
	app := newTestApp(t)
	task := createTask(t, app, member, map[string]interface{}{"title": "x", "scope": "individual"})

	var events []domain.TimelineEvent
	code := call(t, app, http.MethodGet, "/api/v1/timeline?resource_type=task&resource_id="+task.ID, nil, nil, &events)
	require.Equal(t, fiber.StatusOK, code)
	require.NotEmpty(t, events)
	assert.Equal(t, domain.EventTypeTaskCreated, events[0].Type)
}

func TestFeedRequiresUpgrade(t *testing.T) {
	app := newTestApp(t)

	code := call(t, app, http.MethodGet, "/ws/tasks", nil, nil, nil)
	assert.Equal(t, fiber.StatusUpgradeRequired, code)
}
