// Package assistant передаёт вопросы пользователя внешней языковой модели вместе со сводкой данных ERP.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/textile-erp/internal/model"
)

var (
	// ErrNotConfigured возвращается, если ключ API не задан.
	ErrNotConfigured = errors.New("assistant is not configured")
	// ErrEmptyQuestion возвращается для пустого вопроса.
	ErrEmptyQuestion = errors.New("question is empty")
)

const recentTransactions = 10

// DefaultModel используется, если модель не задана в конфигурации.
const DefaultModel = string(shared.ChatModelGPT4o)

// ProductSummary кратко описывает товар для контекста.
type ProductSummary struct {
	Name  string          `json:"name"`
	Stock int64           `json:"stock"`
	Price decimal.Decimal `json:"price"`
	Brand string          `json:"brand"`
}

// CustomerSummary кратко описывает клиента для контекста.
type CustomerSummary struct {
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
	City    string          `json:"city,omitempty"`
}

// Context содержит сводку данных, передаваемую модели.
type Context struct {
	Products           []ProductSummary    `json:"products"`
	Customers          []CustomerSummary   `json:"customers"`
	RecentTransactions []model.Transaction `json:"recentTransactions"`
	TotalDebt          decimal.Decimal     `json:"totalDebt"`
	TotalCredit        decimal.Decimal     `json:"totalCredit"`
}

// BuildContext собирает сводку из агрегата: товары, клиенты с балансами,
// последние транзакции и итоги задолженности.
func BuildContext(state model.AppState) Context {
	c := Context{
		Products:           make([]ProductSummary, 0, len(state.Products)),
		Customers:          make([]CustomerSummary, 0, len(state.Customers)),
		RecentTransactions: []model.Transaction{},
		TotalDebt:          decimal.Zero,
		TotalCredit:        decimal.Zero,
	}

	for _, p := range state.Products {
		c.Products = append(c.Products, ProductSummary{
			Name:  p.Model,
			Stock: p.Stock,
			Price: p.SalePrice,
			Brand: p.Brand,
		})
	}

	for _, cu := range state.Customers {
		c.Customers = append(c.Customers, CustomerSummary{
			Name:    cu.Company,
			Balance: cu.BalanceUSD,
			City:    cu.City,
		})
		switch {
		case cu.BalanceUSD.IsPositive():
			c.TotalDebt = c.TotalDebt.Add(cu.BalanceUSD)
		case cu.BalanceUSD.IsNegative():
			c.TotalCredit = c.TotalCredit.Add(cu.BalanceUSD.Abs())
		}
	}

	// Новые транзакции добавляются в конец списка.
	for i := len(state.Transactions) - 1; i >= 0 && len(c.RecentTransactions) < recentTransactions; i-- {
		c.RecentTransactions = append(c.RecentTransactions, state.Transactions[i])
	}

	return c
}

func languageName(lang string) string {
	if strings.EqualFold(lang, "RU") {
		return "Russian"
	}
	return "Turkish"
}

func buildPrompt(data Context, question, language string) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal context: %w", err)
	}

	return fmt.Sprintf(`You are an intelligent ERP Assistant for a Textile Wholesale company.
You have access to the following JSON summary of the company data: %s.

Rules:
1. Answer the user's question based strictly on this data.
2. If you need to perform calculations (e.g., total stock value), do it based on the data provided.
3. Be professional, concise, and helpful.
4. Answer in the requested language: %s.

Question: %s`, payload, languageName(language), question), nil
}

// Client обращается к OpenAI Responses API.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient создаёт клиента. Без ключа API клиент возвращает ErrNotConfigured.
func NewClient(apiKey, modelName string) *Client {
	if modelName == "" {
		modelName = DefaultModel
	}
	if apiKey == "" {
		return &Client{model: modelName}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{client: &client, model: modelName}
}

// Ask задаёт вопрос модели с контекстом, собранным из агрегата.
func (c *Client) Ask(ctx context.Context, state model.AppState, question, language string) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrNotConfigured
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	prompt, err := buildPrompt(BuildContext(state), question, language)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(c.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai responses error: %w", err)
	}

	answer := resp.OutputText()
	if answer == "" {
		return "", fmt.Errorf("empty response content")
	}
	return answer, nil
}
