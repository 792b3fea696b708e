package tallyai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/models"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

var ErrAssistantDisabled = errors.New("TallyAI assistant is not configured")

const (
	historyLimit   = 20
	requestTimeout = 60 * time.Second
	maxReplyTokens = 700
)

type ChatReply struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// buildSystemPrompt grounds the assistant in the business's live numbers so
// answers about receivables, payables and cash reflect the ledger rather
// than the model's guesswork.
func buildSystemPrompt(ctx context.Context, businessId string) (string, error) {

	receivable, err := models.TotalOutstandingReceivable(ctx, businessId)
	if err != nil {
		return "", err
	}
	payable, err := models.TotalOutstandingPayable(ctx, businessId)
	if err != nil {
		return "", err
	}
	cash, err := models.TotalCashBalance(ctx, businessId)
	if err != nil {
		return "", err
	}
	overdueReceivable, err := models.TotalOverdueReceivable(ctx, businessId)
	if err != nil {
		return "", err
	}
	overduePayable, err := models.TotalOverduePayable(ctx, businessId)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are TallyAI, a bookkeeping assistant for a small business. ")
	b.WriteString("Answer questions about the business's finances using the snapshot below. ")
	b.WriteString("Be concise and use plain language. If a question needs data outside the snapshot, say so instead of guessing.\n\n")
	b.WriteString("Current financial snapshot:\n")
	fmt.Fprintf(&b, "- Total outstanding receivable (owed by debtors): %s\n", receivable.StringFixed(2))
	fmt.Fprintf(&b, "- Total outstanding payable (owed to creditors): %s\n", payable.StringFixed(2))
	fmt.Fprintf(&b, "- Total cash across bank accounts: %s\n", cash.StringFixed(2))
	fmt.Fprintf(&b, "- Overdue invoices (receivable): %s\n", overdueReceivable.StringFixed(2))
	fmt.Fprintf(&b, "- Overdue bills (payable): %s\n", overduePayable.StringFixed(2))
	return b.String(), nil
}

// Chat sends the user's message to the model with the business snapshot and
// recent conversation as context, persisting both turns.
func Chat(ctx context.Context, logger *logrus.Logger, businessId string, userId int, message string) (*ChatReply, error) {

	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.New("message is required")
	}

	client := config.GetOpenAIClient()
	if client == nil {
		return nil, ErrAssistantDisabled
	}

	systemPrompt, err := buildSystemPrompt(ctx, businessId)
	if err != nil {
		config.LogError(logger, "service.go", "Chat", "build system prompt", businessId, err)
		return nil, err
	}

	history, err := models.GetTallyHistory(ctx, businessId, historyLimit)
	if err != nil {
		config.LogError(logger, "service.go", "Chat", "load chat history", businessId, err)
		return nil, err
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == models.ChatRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       config.GetOpenAIModel(),
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   maxReplyTokens,
	})
	if err != nil {
		config.LogError(logger, "service.go", "Chat", "chat completion", businessId, err)
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("assistant returned no reply")
	}
	reply := resp.Choices[0].Message.Content

	if _, err := models.CreateTallyMessage(ctx, businessId, userId, models.ChatRoleUser, message); err != nil {
		config.LogError(logger, "service.go", "Chat", "persist user message", businessId, err)
		return nil, err
	}
	saved, err := models.CreateTallyMessage(ctx, businessId, userId, models.ChatRoleAssistant, reply)
	if err != nil {
		config.LogError(logger, "service.go", "Chat", "persist assistant message", businessId, err)
		return nil, err
	}

	return &ChatReply{Message: reply, CreatedAt: saved.CreatedAt}, nil
}
