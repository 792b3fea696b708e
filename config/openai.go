package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
)

var (
	openaiClient *openai.Client
)

func GetOpenAIClient() *openai.Client {
	return openaiClient
}

func GetOpenAIModel() string {
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4oMini
	}
	return model
}

func init() {
	godotenv.Load()
}

// InitOpenAI builds the chat-completion client. The assistant endpoints
// return a service-unavailable error when the key is not configured.
func InitOpenAI() {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Printf("OPENAI_API_KEY not set; TallyAI assistant disabled")
		return
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	openaiClient = openai.NewClientWithConfig(cfg)
}
