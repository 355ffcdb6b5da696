// internal/respond/service.go
package respond

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/metareply/internal/types"
	"github.com/user/metareply/pkg/llm"
)

// Defaults holds the canned fallback responses from configuration.
type Defaults struct {
	DMPositive      string
	DMNegative      string
	CommentPositive string
	CommentNegative string
}

// Service builds the callbacks executed by the task backend: the deferred
// DM response bound to a buffer snapshot, and the one-shot comment reply.
type Service struct {
	classifier types.Classifier
	provider   llm.Provider
	responder  types.Responder
	tokens     types.TokenResolver
	prompts    *PromptBuilder
	defaults   Defaults

	clear func(types.ConversationKey)
}

// NewService wires the response collaborators together.
func NewService(
	classifier types.Classifier,
	provider llm.Provider,
	responder types.Responder,
	tokens types.TokenResolver,
	prompts *PromptBuilder,
	defaults Defaults,
) *Service {
	return &Service{
		classifier: classifier,
		provider:   provider,
		responder:  responder,
		tokens:     tokens,
		prompts:    prompts,
		defaults:   defaults,
	}
}

// BindClear registers the scheduler's clear operation, called after a DM
// task settles a conversation. Kept as a late binding because the scheduler
// is constructed around this service's DMCallback.
func (s *Service) BindClear(fn func(types.ConversationKey)) {
	s.clear = fn
}

// DMCallback returns the deferred-response task for a conversation.
// The snapshot was captured at schedule time; superseded tasks are cancelled
// before firing, so a snapshot that reaches this callback is the final one.
func (s *Service) DMCallback(key types.ConversationKey, snapshot types.Snapshot, accountID string) types.TaskCallback {
	return func(ctx context.Context) error {
		messages, ok := snapshot[key]
		if !ok || len(messages) == 0 {
			slog.Info("no messages to process", "conversation", key)
			return nil
		}

		recipientID := messages[0].SenderID
		texts := make([]string, len(messages))
		for i, msg := range messages {
			texts[i] = msg.Text
		}
		combined := strings.Join(texts, "\n")

		sentiment := s.classifier.Classify(combined)
		slog.Info("classified conversation",
			"conversation", key,
			"sentiment", sentiment,
			"message_count", len(messages),
		)

		responseText := s.generate(ctx, sentiment, combined)

		accessToken, err := s.tokens.ResolveAccessToken(accountID)
		if err != nil {
			// Fatal to the task: surfaced so the backend's retry policy can act.
			return fmt.Errorf("resolve access token: %w", err)
		}

		if err := s.responder.SendMessage(ctx, accessToken, recipientID, responseText); err != nil {
			// Content is ephemeral; accept the loss rather than retry forever.
			slog.Error("send message failed",
				"conversation", key,
				"recipient", recipientID,
				"account_id", accountID,
				"error", err,
			)
		} else {
			slog.Info("sent combined response",
				"conversation", key,
				"recipient", recipientID,
				"account_id", accountID,
				"message_count", len(messages),
			)
		}

		if s.clear != nil {
			s.clear(key)
		}
		return nil
	}
}

// generate asks the LLM for a response, falling back to the configured
// canned text for the sentiment when generation fails.
func (s *Service) generate(ctx context.Context, sentiment types.Sentiment, combined string) string {
	prompt := s.prompts.Build(sentiment, combined)
	resp, err := s.provider.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		slog.Error("llm generation failed, using default response", "error", err)
		if sentiment == types.SentimentPositive {
			return s.defaults.DMPositive
		}
		return s.defaults.DMNegative
	}
	return resp.Content
}

// CommentCallback returns the one-shot delayed comment reply task.
func (s *Service) CommentCallback(commentID, text, accountID string) types.TaskCallback {
	return func(ctx context.Context) error {
		accessToken, err := s.tokens.ResolveAccessToken(accountID)
		if err != nil {
			return fmt.Errorf("resolve access token: %w", err)
		}
		if err := s.responder.SendCommentReply(ctx, accessToken, commentID, text); err != nil {
			slog.Error("send comment reply failed",
				"comment_id", commentID,
				"account_id", accountID,
				"error", err,
			)
			return fmt.Errorf("send comment reply: %w", err)
		}
		slog.Info("reply sent to comment", "comment_id", commentID, "account_id", accountID)
		return nil
	}
}

// CommentDefault picks the canned comment response for a sentiment.
func (s *Service) CommentDefault(sentiment types.Sentiment) string {
	if sentiment == types.SentimentPositive {
		return s.defaults.CommentPositive
	}
	return s.defaults.CommentNegative
}
