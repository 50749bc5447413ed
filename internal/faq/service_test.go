package faq

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcareplus/scheduling-agent/internal/config"
)

type fakeChat struct {
	reply string
	err   error
	calls int
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

func testClinic() config.ClinicInfo {
	return config.ClinicInfo{
		Name:    "HealthCare Plus Clinic",
		Doctor:  "Dr. Rajendra Kumar Gupta",
		Address: "302 Old Palasia, Indore, MP 452001",
		Phone:   "+91-731-555-0100",
		Email:   "care@healthcareplusclinic.in",
	}
}

func hydratedStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(&fakeEmbedder{vectors: testVectors()}, "", nil)
	require.NoError(t, store.Hydrate(context.Background(), testChunks()))
	return store
}

func TestAnswerGroundedInRetrieval(t *testing.T) {
	chat := &fakeChat{reply: "We are open Monday to Friday from 9 AM to 6 PM and Saturdays until 2 PM."}
	svc := NewService(chat, hydratedStore(t), nil, "", testClinic(), nil)

	answer := svc.Answer(context.Background(), "when are you open", true)

	assert.Equal(t, chat.reply, answer.Answer)
	assert.Contains(t, answer.Sources, "hours_of_operation")
	assert.Len(t, answer.RetrievedChunks, 3)
	// Long grounded answers score high.
	assert.InDelta(t, 0.9, answer.Confidence, 1e-9)
}

func TestAnswerExcludesChunksWhenNotRequested(t *testing.T) {
	chat := &fakeChat{reply: "We are open Monday to Friday from 9 AM to 6 PM and Saturdays until 2 PM."}
	svc := NewService(chat, hydratedStore(t), nil, "", testClinic(), nil)

	answer := svc.Answer(context.Background(), "when are you open", false)
	assert.Empty(t, answer.RetrievedChunks)
	assert.NotEmpty(t, answer.Sources)
}

func TestAnswerHedgingLowersConfidence(t *testing.T) {
	chat := &fakeChat{reply: "I don't have that information, please call the clinic for details."}
	svc := NewService(chat, hydratedStore(t), nil, "", testClinic(), nil)

	answer := svc.Answer(context.Background(), "do you do home visits", false)
	assert.InDelta(t, 0.4, answer.Confidence, 1e-9)
}

func TestAnswerFallbackOnChatFailure(t *testing.T) {
	chat := &fakeChat{err: errors.New("model unavailable")}
	svc := NewService(chat, hydratedStore(t), nil, "", testClinic(), nil)

	answer := svc.Answer(context.Background(), "when are you open", false)

	assert.Contains(t, answer.Answer, "+91-731-555-0100")
	assert.InDelta(t, 0.1, answer.Confidence, 1e-9)
	assert.Empty(t, answer.Sources)
}

func TestAnswerFallbackOnRetrievalFailure(t *testing.T) {
	brokenStore := NewStore(&fakeEmbedder{err: errors.New("rate limited")}, "", nil)
	chat := &fakeChat{reply: "unused"}
	svc := NewService(chat, brokenStore, nil, "", testClinic(), nil)

	answer := svc.Answer(context.Background(), "when are you open", false)

	assert.Contains(t, answer.Answer, "+91-731-555-0100")
	assert.Zero(t, chat.calls)
}

func TestAnswerCaching(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	chat := &fakeChat{reply: "We are open Monday to Friday from 9 AM to 6 PM and Saturdays until 2 PM."}
	svc := NewService(chat, hydratedStore(t), cache, "", testClinic(), nil)
	ctx := context.Background()

	first := svc.Answer(ctx, "When are you open?", true)
	require.Equal(t, 1, chat.calls)

	// Same question normalized: served from cache, no second model call.
	second := svc.Answer(ctx, "  when are you open?  ", true)
	assert.Equal(t, 1, chat.calls)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, first.Sources, second.Sources)

	// includeChunks participates in the cache key.
	svc.Answer(ctx, "When are you open?", false)
	assert.Equal(t, 2, chat.calls)
}

func TestConfidenceScore(t *testing.T) {
	long := strings.Repeat("a", 60)

	assert.InDelta(t, 0.3, confidenceScore(long, ""), 1e-9)
	assert.InDelta(t, 0.5, confidenceScore("short", "ctx"), 1e-9)
	assert.InDelta(t, 0.4, confidenceScore("I'm not sure about that, sorry", "ctx"), 1e-9)
	assert.InDelta(t, 0.9, confidenceScore(long, "ctx"), 1e-9)
	assert.InDelta(t, 0.7, confidenceScore("We are open on weekdays only.", "ctx"), 1e-9)
}
