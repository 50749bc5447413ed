package agent

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/healthcareplus/scheduling-agent/internal/booking"
	"github.com/healthcareplus/scheduling-agent/internal/config"
	"github.com/healthcareplus/scheduling-agent/internal/faq"
	"github.com/healthcareplus/scheduling-agent/internal/schedule"
	"github.com/healthcareplus/scheduling-agent/pkg/logging"
)

var errNoChoices = errors.New("model returned no choices")

// ChatClient is the slice of the OpenAI client the orchestrator needs;
// tests substitute scripted fakes.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Scheduler is the booking engine surface the tools call into.
type Scheduler interface {
	Availability(ctx context.Context, date, appointmentType string) (*booking.DayAvailability, error)
	Book(ctx context.Context, req booking.Request) (*booking.Appointment, error)
	TypeInfo(tag string) (schedule.AppointmentType, bool)
}

// FAQAnswerer is the retrieval subsystem surface.
type FAQAnswerer interface {
	Answer(ctx context.Context, question string, includeChunks bool) *faq.Answer
}

// ChatResult is the outcome of one conversational turn.
type ChatResult struct {
	Response  string
	SessionID string
	ToolCalls []string
}

// Service drives the tool-calling loop: it sends the conversation and
// tool schema to the model, executes any requested tools, feeds the
// results back, and returns the final reply.
type Service struct {
	chat       ChatClient
	sessions   *SessionStore
	scheduler  Scheduler
	faq        FAQAnswerer
	model      string
	clinic     config.ClinicInfo
	llmTimeout time.Duration
	logger     *logging.Logger
}

func NewService(chat ChatClient, sessions *SessionStore, scheduler Scheduler, faqSvc FAQAnswerer, model string, clinic config.ClinicInfo, llmTimeout time.Duration, logger *logging.Logger) *Service {
	if model == "" {
		model = "gpt-4-turbo-preview"
	}
	if llmTimeout <= 0 {
		llmTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		chat:       chat,
		sessions:   sessions,
		scheduler:  scheduler,
		faq:        faqSvc,
		model:      model,
		clinic:     clinic,
		llmTimeout: llmTimeout,
		logger:     logger,
	}
}

// Chat processes one user message within a session. It never returns
// an error: any failure of the model calls degrades to a fixed apology
// that surfaces the clinic's phone number, and the session history is
// left untouched by the failed turn.
func (s *Service) Chat(ctx context.Context, message, sessionID string) *ChatResult {
	history, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		s.logger.Warn("session history unavailable, starting fresh", "session_id", sessionID, "error", err)
		history = nil
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt(s.clinic),
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := s.complete(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Tools:       toolDefinitions(),
		ToolChoice:  "auto",
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	if err != nil {
		s.logger.Error("model call failed", "session_id", sessionID, "error", err)
		return s.apology(sessionID)
	}

	assistant := resp.Choices[0].Message

	var toolNames []string
	finalText := assistant.Content

	if len(assistant.ToolCalls) > 0 {
		messages = append(messages, assistant)

		for _, call := range assistant.ToolCalls {
			toolNames = append(toolNames, call.Function.Name)
			s.logger.Info("executing tool", "session_id", sessionID, "tool", call.Function.Name)

			payload := s.executeToolCall(ctx, call)
			content, err := json.Marshal(payload)
			if err != nil {
				content = []byte(`{"error":"failed to encode tool result"}`)
			}

			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    string(content),
			})
		}

		// Second call carries the tool results; no tools enabled so the
		// model must answer in text.
		finalResp, err := s.complete(ctx, openai.ChatCompletionRequest{
			Model:       s.model,
			Messages:    messages,
			Temperature: 0.7,
			MaxTokens:   1000,
		})
		if err != nil {
			s.logger.Error("follow-up model call failed", "session_id", sessionID, "error", err)
			return s.apology(sessionID)
		}
		finalText = finalResp.Choices[0].Message.Content
	}

	if err := s.sessions.AppendTurn(ctx, sessionID,
		Message{Role: openai.ChatMessageRoleUser, Content: message},
		Message{Role: openai.ChatMessageRoleAssistant, Content: finalText},
	); err != nil {
		s.logger.Warn("failed to persist session turn", "session_id", sessionID, "error", err)
	}

	if toolNames == nil {
		toolNames = []string{}
	}

	return &ChatResult{
		Response:  finalText,
		SessionID: sessionID,
		ToolCalls: toolNames,
	}
}

func (s *Service) complete(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	resp, err := s.chat.CreateChatCompletion(callCtx, req)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionResponse{}, errNoChoices
	}
	return resp, nil
}

func (s *Service) apology(sessionID string) *ChatResult {
	return &ChatResult{
		Response:  apologyMessage(s.clinic),
		SessionID: sessionID,
		ToolCalls: []string{},
	}
}

// ResetSession clears a session's conversation history.
func (s *Service) ResetSession(ctx context.Context, sessionID string) error {
	return s.sessions.Reset(ctx, sessionID)
}

// SessionInfo reports message count and recent messages for a session.
func (s *Service) SessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error) {
	return s.sessions.Info(ctx, sessionID)
}

func displayTime(minutes int) string {
	return schedule.FormatClock12(minutes)
}
