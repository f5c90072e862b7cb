package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ruuig/tienda-online-sub002/internal/dto"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/serverutils"
	"github.com/ruuig/tienda-online-sub002/pkg/rag"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-secret"

// ==========================================
// Mocks
// ==========================================

type MockAssistantService struct {
	mock.Mock
}

func (m *MockAssistantService) ProcessMessage(ctx context.Context, request *dto.ProcessMessageRequest) (*dto.ProcessMessageResponse, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ProcessMessageResponse), args.Error(1)
}

type MockRagService struct {
	mock.Mock
}

func (m *MockRagService) StreamAnswer(ctx context.Context, request *dto.StreamAnswerRequest) (<-chan rag.Token, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan rag.Token), args.Error(1)
}

func (m *MockRagService) RebuildIndex(ctx context.Context, vendorId uuid.UUID, force bool) (*dto.RebuildIndexResponse, error) {
	args := m.Called(ctx, vendorId, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RebuildIndexResponse), args.Error(1)
}

func (m *MockRagService) GetStats(ctx context.Context, vendorId uuid.UUID) (*dto.IndexStatsResponse, error) {
	args := m.Called(ctx, vendorId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.IndexStatsResponse), args.Error(1)
}

func (m *MockRagService) GetIndexedDocuments(ctx context.Context, vendorId uuid.UUID) ([]dto.IndexedDocumentResponse, error) {
	args := m.Called(ctx, vendorId)
	return args.Get(0).([]dto.IndexedDocumentResponse), args.Error(1)
}

func (m *MockRagService) EnqueueDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) error {
	return m.Called(ctx, vendorId, documentId).Error(0)
}

func (m *MockRagService) IndexDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) (*dto.RebuildIndexResponse, error) {
	args := m.Called(ctx, vendorId, documentId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RebuildIndexResponse), args.Error(1)
}

func (m *MockRagService) RemoveDocument(ctx context.Context, vendorId uuid.UUID, documentId uuid.UUID) error {
	return m.Called(ctx, vendorId, documentId).Error(0)
}

// ==========================================
// Helpers
// ==========================================

func newApp(assistant *MockAssistantService, ragSvc *MockRagService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	NewAssistantController(assistant, ragSvc, testSecret, logger.NewNop()).RegisterRoutes(api)
	NewRagController(ragSvc, testSecret).RegisterRoutes(api)
	return app
}

func bearer(t *testing.T, vendorID uuid.UUID, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   "user-1",
		"vendor_id": vendorID.String(),
		"role":      role,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func tokenChannel(tokens ...rag.Token) <-chan rag.Token {
	ch := make(chan rag.Token, len(tokens))
	for _, tok := range tokens {
		ch <- tok
	}
	close(ch)
	return ch
}

// ==========================================
// Tests
// ==========================================

func TestProcessMessageScopesRequestToToken(t *testing.T) {
	assistant := new(MockAssistantService)
	app := newApp(assistant, new(MockRagService))
	vendorID := uuid.New()

	assistant.On("ProcessMessage", mock.Anything, mock.MatchedBy(func(req *dto.ProcessMessageRequest) bool {
		return req.VendorId == vendorID && req.UserId == "user-1" && req.Text == "hola" && req.ConversationId == "c-1"
	})).Return(&dto.ProcessMessageResponse{
		Success: true,
		Message: dto.AssistantMessage{Content: "¡Hola!", Metadata: map[string]interface{}{"intent": "saludo"}},
	}, nil)

	req := httptest.NewRequest("POST", "/api/assistant/v1/messages", strings.NewReader(`{"conversation_id":"c-1","text":"hola"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, vendorID, ""))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body dto.ProcessMessageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "¡Hola!", body.Message.Content)
	assistant.AssertExpectations(t)
}

func TestProcessMessageRejectsInvalidBody(t *testing.T) {
	assistant := new(MockAssistantService)
	app := newApp(assistant, new(MockRagService))

	req := httptest.NewRequest("POST", "/api/assistant/v1/messages", strings.NewReader(`{"conversation_id":"c-1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, uuid.New(), ""))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assistant.AssertNotCalled(t, "ProcessMessage", mock.Anything, mock.Anything)
}

func TestProcessMessageMapsConfigurationError(t *testing.T) {
	assistant := new(MockAssistantService)
	app := newApp(assistant, new(MockRagService))
	assistant.On("ProcessMessage", mock.Anything, mock.Anything).Return(nil, apperror.Configuration("HUGGINGFACE_API_KEY is not set", nil))

	req := httptest.NewRequest("POST", "/api/assistant/v1/messages", strings.NewReader(`{"conversation_id":"c-1","text":"¿garantía?"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, uuid.New(), ""))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)
}

func TestStreamAnswerWritesServerSentEvents(t *testing.T) {
	ragSvc := new(MockRagService)
	app := newApp(new(MockAssistantService), ragSvc)
	vendorID := uuid.New()

	ragSvc.On("StreamAnswer", mock.Anything, mock.MatchedBy(func(req *dto.StreamAnswerRequest) bool {
		return req.VendorId == vendorID && req.Question == "envío"
	})).Return(tokenChannel(rag.Token{Text: "Tres "}, rag.Token{Text: "días."}), nil)

	req := httptest.NewRequest("GET", "/api/assistant/v1/stream?question=env%C3%ADo", nil)
	req.Header.Set("Authorization", bearer(t, vendorID, ""))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t,
		"data: {\"type\":\"token\",\"content\":\"Tres \"}\n\n"+
			"data: {\"type\":\"token\",\"content\":\"días.\"}\n\n"+
			"data: {\"type\":\"done\"}\n\n",
		string(raw))
}

func TestStreamAnswerEndsWithFallbackEvent(t *testing.T) {
	ragSvc := new(MockRagService)
	app := newApp(new(MockAssistantService), ragSvc)

	ragSvc.On("StreamAnswer", mock.Anything, mock.Anything).
		Return(tokenChannel(rag.Token{Text: "Tres "}, rag.Token{Text: rag.FallbackMessage, Fallback: true}), nil)

	req := httptest.NewRequest("GET", "/api/assistant/v1/stream?question=envio", nil)
	req.Header.Set("Authorization", bearer(t, uuid.New(), ""))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"fallback"`)
	assert.Contains(t, string(raw), `"fallback":true`)
}

func TestStreamAnswerErrorBeforeStreaming(t *testing.T) {
	ragSvc := new(MockRagService)
	app := newApp(new(MockAssistantService), ragSvc)
	ragSvc.On("StreamAnswer", mock.Anything, mock.Anything).Return(nil, apperror.NotFound("document", "x"))

	req := httptest.NewRequest("GET", "/api/assistant/v1/stream?question=envio&document_id="+uuid.NewString(), nil)
	req.Header.Set("Authorization", bearer(t, uuid.New(), ""))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestWebsocketRouteRequiresUpgrade(t *testing.T) {
	app := newApp(new(MockAssistantService), new(MockRagService))

	req := httptest.NewRequest("GET", "/api/assistant/v1/ws", nil)
	req.Header.Set("Authorization", bearer(t, uuid.New(), ""))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	ragSvc := new(MockRagService)
	app := newApp(new(MockAssistantService), ragSvc)
	vendorID := uuid.New()

	req := httptest.NewRequest("GET", "/api/admin/v1/rag/stats", nil)
	req.Header.Set("Authorization", bearer(t, vendorID, ""))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	ragSvc.On("GetStats", mock.Anything, vendorID).Return(&dto.IndexStatsResponse{VendorId: vendorID, Loaded: true, IndexedChunks: 7}, nil)
	req = httptest.NewRequest("GET", "/api/admin/v1/rag/stats", nil)
	req.Header.Set("Authorization", bearer(t, vendorID, "admin"))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body serverutils.BaseResponse[dto.IndexStatsResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 7, body.Data.IndexedChunks)
}

func TestRebuildAndIndexDocument(t *testing.T) {
	ragSvc := new(MockRagService)
	app := newApp(new(MockAssistantService), ragSvc)
	vendorID := uuid.New()
	documentID := uuid.New()

	ragSvc.On("RebuildIndex", mock.Anything, vendorID, true).Return(&dto.RebuildIndexResponse{Rebuilt: true}, nil)
	req := httptest.NewRequest("POST", "/api/admin/v1/rag/rebuild", strings.NewReader(`{"force":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, vendorID, "admin"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	ragSvc.On("EnqueueDocument", mock.Anything, vendorID, documentID).Return(nil)
	req = httptest.NewRequest("POST", "/api/admin/v1/rag/documents/"+documentID.String()+"/index", nil)
	req.Header.Set("Authorization", bearer(t, vendorID, "admin"))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 202, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/admin/v1/rag/documents/not-a-uuid/index", nil)
	req.Header.Set("Authorization", bearer(t, vendorID, "admin"))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	ragSvc.AssertExpectations(t)
}
