package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/internal/repository/contract"
	"github.com/ruuig/tienda-online-sub002/internal/repository/specification"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Find(ctx context.Context, filter contract.ProductFilter) ([]*entity.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *entity.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Product, error) {
	args := m.Called(ctx, specs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Product, error) {
	args := m.Called(ctx, specs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Product), args.Error(1)
}

type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	args := m.Called(ctx, history)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) ChatStream(ctx context.Context, history []llm.Message, onToken llm.TokenHandler, options ...llm.Option) error {
	return m.Called(ctx, history).Error(0)
}

// ==========================
// Helpers
// ==========================

func laptops(vendorID uuid.UUID) []*entity.Product {
	return []*entity.Product{
		{Id: uuid.New(), VendorId: vendorID, Name: "Laptop Lenovo IdeaPad 3", Category: "laptop", Price: 10999, Stock: 4, Status: entity.ProductStatusActive},
		{Id: uuid.New(), VendorId: vendorID, Name: "MacBook Air M2", Category: "laptop", Price: 21999, Stock: 2, Status: entity.ProductStatusActive},
	}
}

// ==========================
// Vocabulary
// ==========================

func TestSingular(t *testing.T) {
	cases := map[string]string{
		"laptops":    "laptop",
		"monitores":  "monitor",
		"celulares":  "celular",
		"cables":     "cable",
		"relojes":    "reloj",
		"portatiles": "portatil",
		"teclados":   "teclado",
		"mouse":      "mouse",
		"tv":         "tv",
	}
	for in, want := range cases {
		assert.Equal(t, want, Singular(in), in)
	}
}

func TestTokensAndCategories(t *testing.T) {
	tokens := Tokens("¿Qué laptops tienen disponibles?")
	assert.Equal(t, []string{"laptop"}, tokens)
	assert.Equal(t, []Category{CategoryLaptop}, DetectCategories(tokens))

	tokens = Tokens("Busco audífonos y un monitor, ¿tienen monitores 4K?")
	assert.Equal(t, []Category{CategoryAudio, CategoryMonitor}, DetectCategories(tokens))

	assert.Empty(t, Tokens("hola"))
	assert.Empty(t, Tokens("¡Hola! ¿Qué tal?"))
}

// ==========================
// Searcher
// ==========================

func TestSearchProductsForMessageFiltersByCategoryAndText(t *testing.T) {
	repo := new(MockProductRepository)
	vendorID := uuid.New()
	expected := laptops(vendorID)

	var captured contract.ProductFilter
	repo.On("Find", mock.Anything, mock.AnythingOfType("contract.ProductFilter")).
		Run(func(args mock.Arguments) { captured = args.Get(1).(contract.ProductFilter) }).
		Return(expected, nil).Once()

	searcher := NewSearcher(repo, logger.NewNop())
	got, err := searcher.SearchProductsForMessage(context.Background(), "¿Qué laptops tienen disponibles?", vendorID, 5)

	require.NoError(t, err)
	assert.Equal(t, expected, got)

	assert.Equal(t, entity.ProductStatusActive, captured.Status)
	assert.Equal(t, vendorID, captured.VendorID)
	assert.Contains(t, captured.Categories, "laptop")
	assert.NotEmpty(t, captured.Or)
	assert.Contains(t, captured.Or, specification.TextMatch{Field: "name", Term: "laptop"})
	assert.Contains(t, captured.Or, specification.TextMatch{Field: "description", Term: "laptop"})
	assert.Equal(t, 5, captured.Limit)
	repo.AssertExpectations(t)
}

func TestSearchProductsForMessageGreetingFallsBackToRecent(t *testing.T) {
	repo := new(MockProductRepository)
	vendorID := uuid.New()

	repo.On("Find", mock.Anything, contract.ProductFilter{
		Status:    entity.ProductStatusActive,
		VendorID:  vendorID,
		Limit:     5,
		SortField: "created_at",
		SortDesc:  true,
	}).Return([]*entity.Product{}, nil).Once()

	searcher := NewSearcher(repo, logger.NewNop())
	got, err := searcher.SearchProductsForMessage(context.Background(), "hola", vendorID, 5)

	require.NoError(t, err)
	assert.Empty(t, got)
	repo.AssertExpectations(t)
}

func TestSearchProductsForMessageRepositoryError(t *testing.T) {
	repo := new(MockProductRepository)
	repo.On("Find", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	searcher := NewSearcher(repo, logger.NewNop())
	_, err := searcher.SearchProductsForMessage(context.Background(), "laptops", uuid.New(), 5)
	assert.Error(t, err)
}

// ==========================
// Composer
// ==========================

func TestComposeWithPrefilteredProductsSkipsSearch(t *testing.T) {
	repo := new(MockProductRepository)
	provider := new(MockLLM)
	vendorID := uuid.New()
	products := laptops(vendorID)

	var sent []llm.Message
	provider.On("Chat", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]llm.Message) }).
		Return("Tenemos dos laptops.", nil).Once()

	composer := NewComposer(NewSearcher(repo, logger.NewNop()), provider, 5, 10, logger.NewNop())
	result, err := composer.Compose(context.Background(), ComposeRequest{
		Message:  "¿Cuál me recomiendas?",
		VendorID: vendorID,
		Products: products,
	})

	require.NoError(t, err)
	assert.Equal(t, "Tenemos dos laptops.", result.Reply)
	assert.Equal(t, products, result.Products)
	assert.Equal(t, len(products), result.ProductsCount)

	require.NotEmpty(t, sent)
	assert.Equal(t, llm.RoleSystem, sent[0].Role)
	for _, p := range products {
		assert.Contains(t, sent[0].Content, p.Name)
	}
	assert.Contains(t, sent[0].Content, OnlyListedInstruction)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "¿Cuál me recomiendas?"}, sent[len(sent)-1])

	repo.AssertNotCalled(t, "Find", mock.Anything, mock.Anything)
	provider.AssertExpectations(t)
}

func TestComposeSearchesWhenNoProductsSupplied(t *testing.T) {
	repo := new(MockProductRepository)
	provider := new(MockLLM)
	vendorID := uuid.New()
	products := laptops(vendorID)

	repo.On("Find", mock.Anything, mock.Anything).Return(products, nil).Once()
	provider.On("Chat", mock.Anything, mock.Anything).Return("ok", nil).Once()

	composer := NewComposer(NewSearcher(repo, logger.NewNop()), provider, 5, 10, logger.NewNop())
	result, err := composer.Compose(context.Background(), ComposeRequest{Message: "laptops", VendorID: vendorID})

	require.NoError(t, err)
	assert.Equal(t, 2, result.ProductsCount)
	repo.AssertExpectations(t)
}

func TestComposeKeepsBoundedHistory(t *testing.T) {
	provider := new(MockLLM)
	var sent []llm.Message
	provider.On("Chat", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]llm.Message) }).
		Return("ok", nil)

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "uno"},
		{Role: llm.RoleAssistant, Content: "dos"},
		{Role: llm.RoleSystem, Content: "ignorado"},
		{Role: llm.RoleUser, Content: "tres"},
		{Role: llm.RoleAssistant, Content: "cuatro"},
	}

	composer := NewComposer(NewSearcher(new(MockProductRepository), logger.NewNop()), provider, 5, 2, logger.NewNop())
	_, err := composer.Compose(context.Background(), ComposeRequest{Message: "cinco", VendorID: uuid.New(), Products: []*entity.Product{}, History: history})
	require.NoError(t, err)

	require.Len(t, sent, 4)
	assert.Equal(t, "tres", sent[1].Content)
	assert.Equal(t, "cuatro", sent[2].Content)
	assert.Equal(t, "cinco", sent[3].Content)
}
