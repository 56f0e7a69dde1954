package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	bookingModel "rental-ledger/models/booking"
	receiptModel "rental-ledger/models/receipt"
	transactionModel "rental-ledger/models/transaction"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash-lite"

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("empty response from Gemini")

const (
	contractInstruction   = "You are a smart contract generator for property rentals. Generate fair and comprehensive terms for a rental agreement."
	validationInstruction = "You are a blockchain transaction validator. Validate if this transaction is legitimate and safe to process."
	receiptInstruction    = "You are a blockchain receipt generator. Generate a detailed, professional receipt for cryptocurrency transactions. Include all necessary details for legal and tax purposes."
)

// generator is the subset of *genai.Models the client needs
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client produces the free text attached to bookings, transactions and receipts
type Client struct {
	models generator
	model  string
}

// NewClient creates a Gemini API client
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not configured")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{models: client.Models, model: model}, nil
}

// DraftContractTerms writes rental terms for a new booking
func (c *Client) DraftContractTerms(ctx context.Context, b bookingModel.Booking) (string, error) {
	details, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return c.generate(ctx, contractInstruction, fmt.Sprintf("Generate smart contract terms for this booking: %s", details))
}

// ValidateTransaction returns the model's assessment of a pending transaction
func (c *Client) ValidateTransaction(ctx context.Context, tx transactionModel.Transaction) (string, error) {
	details, err := json.Marshal(tx)
	if err != nil {
		return "", err
	}
	return c.generate(ctx, validationInstruction, fmt.Sprintf("Transaction details: %s. Is this transaction valid?", details))
}

// ComposeReceipt writes the body of a receipt
func (c *Client) ComposeReceipt(ctx context.Context, r receiptModel.Receipt, userID string) (string, error) {
	details, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("Generate a receipt for transaction ID: %s for user: %s. Include transaction details, smart contract information, and blockchain verification data. Receipt data: %s",
		r.TransactionID, userID, details)
	return c.generate(ctx, receiptInstruction, prompt)
}

func (c *Client) generate(ctx context.Context, instruction, prompt string) (string, error) {
	result, err := c.models.GenerateContent(
		ctx,
		c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			Temperature:       genai.Ptr(float32(0.3)),
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractText(result)
}

// extractText joins the text parts of the first candidate
func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
