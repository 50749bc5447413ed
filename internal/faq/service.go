package faq

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/healthcareplus/scheduling-agent/internal/config"
	"github.com/healthcareplus/scheduling-agent/pkg/logging"
)

const (
	answerCacheTTL = time.Hour
	retrieveTopK   = 3
)

// ChatClient is the slice of the OpenAI client used to phrase answers.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Answer is the FAQ subsystem's response shape.
type Answer struct {
	Answer          string   `json:"answer"`
	Sources         []string `json:"sources"`
	Confidence      float64  `json:"confidence"`
	RetrievedChunks []string `json:"retrieved_chunks,omitempty"`
}

// Service answers clinic questions by retrieving knowledge chunks and
// asking the LLM to phrase an answer grounded only in that context.
// It degrades to a phone-number fallback instead of surfacing errors.
type Service struct {
	chat   ChatClient
	store  *Store
	cache  *redis.Client
	model  string
	clinic config.ClinicInfo
	logger *logging.Logger
}

func NewService(chat ChatClient, store *Store, cache *redis.Client, model string, clinic config.ClinicInfo, logger *logging.Logger) *Service {
	if model == "" {
		model = "gpt-4-turbo-preview"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		chat:   chat,
		store:  store,
		cache:  cache,
		model:  model,
		clinic: clinic,
		logger: logger,
	}
}

func (s *Service) systemPrompt() string {
	return fmt.Sprintf(`You are a helpful medical clinic assistant for %s.

Your role is to answer patient questions about the clinic using ONLY the information provided in the context.

Key guidelines:
- Be warm, friendly, and professional
- Answer accurately based on the provided context
- If information is not in the context, politely say you don't have that information and suggest calling the clinic
- Keep answers concise but complete
- If asked about booking appointments, mention they can schedule through the chat or call the clinic
- Never make up information or provide medical advice

Clinic Details:
- Name: %s
- Doctor: %s
- Location: %s
- Phone: %s
- Email: %s`,
		s.clinic.Name, s.clinic.Name, s.clinic.Doctor, s.clinic.Address, s.clinic.Phone, s.clinic.Email)
}

// Answer runs retrieval-augmented question answering. includeChunks
// controls whether the retrieved texts are echoed in the response.
func (s *Service) Answer(ctx context.Context, question string, includeChunks bool) *Answer {
	if cached := s.cacheGet(ctx, question, includeChunks); cached != nil {
		return cached
	}

	results, err := s.store.Search(ctx, question, retrieveTopK)
	if err != nil {
		s.logger.Warn("faq retrieval failed", "error", err)
		return s.fallback(0.1)
	}

	if len(results) == 0 {
		return &Answer{
			Answer: fmt.Sprintf("I don't have specific information about that in my knowledge base. Please call us at %s or email %s for assistance.",
				s.clinic.Phone, s.clinic.Email),
			Sources:    []string{},
			Confidence: 0.3,
		}
	}

	var contextParts, sources, chunks []string
	for _, r := range results {
		contextParts = append(contextParts, r.Chunk.Text)
		sources = append(sources, r.Chunk.ID)
		chunks = append(chunks, r.Chunk.Text)
	}
	contextText := strings.Join(contextParts, "\n\n")

	userPrompt := fmt.Sprintf(`Context information from our clinic database:

%s

Patient question: %s

Please provide a helpful, accurate answer based on the context above.`, contextText, question)

	resp, err := s.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil || len(resp.Choices) == 0 {
		s.logger.Warn("faq answer generation failed", "error", err)
		return s.fallback(0.1)
	}

	answerText := strings.TrimSpace(resp.Choices[0].Message.Content)

	answer := &Answer{
		Answer:     answerText,
		Sources:    sources,
		Confidence: confidenceScore(answerText, contextText),
	}
	if includeChunks {
		answer.RetrievedChunks = chunks
	}

	s.cacheSet(ctx, question, includeChunks, answer)
	return answer
}

func (s *Service) fallback(confidence float64) *Answer {
	return &Answer{
		Answer: fmt.Sprintf("I apologize, but I'm having trouble accessing information right now. Please call us at %s for assistance.",
			s.clinic.Phone),
		Sources:    []string{},
		Confidence: confidence,
	}
}

// confidenceScore is a heuristic: substantial answers grounded in
// retrieved context score high; hedging answers score low.
func confidenceScore(answer, context string) float64 {
	if context == "" {
		return 0.3
	}
	if len(answer) < 20 {
		return 0.5
	}
	lower := strings.ToLower(answer)
	if strings.Contains(lower, "i don't have") ||
		strings.Contains(lower, "not sure") ||
		strings.Contains(lower, "don't know") {
		return 0.4
	}
	if len(answer) > 50 {
		return 0.9
	}
	return 0.7
}

func answerCacheKey(question string, includeChunks bool) string {
	normalized := strings.ToLower(strings.TrimSpace(question))
	sum := sha256.Sum256([]byte(normalized))
	suffix := ""
	if includeChunks {
		suffix = ":chunks"
	}
	return "faq:answer:" + hex.EncodeToString(sum[:16]) + suffix
}

func (s *Service) cacheGet(ctx context.Context, question string, includeChunks bool) *Answer {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, answerCacheKey(question, includeChunks)).Bytes()
	if err != nil {
		return nil
	}
	var a Answer
	if err := json.Unmarshal(data, &a); err != nil {
		return nil
	}
	return &a
}

func (s *Service) cacheSet(ctx context.Context, question string, includeChunks bool, a *Answer) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, answerCacheKey(question, includeChunks), data, answerCacheTTL).Err(); err != nil {
		s.logger.Warn("faq answer cache write failed", "error", err)
	}
}
