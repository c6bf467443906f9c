package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 4 * time.Second

// ErrEmptyReply is returned by providers that answered with blank text.
var ErrEmptyReply = errors.New("chat: empty reply")

// Service answers chat requests. The zero value is not usable; use NewService.
type Service struct {
	provider Provider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewService builds a chat service. A nil provider means every reply comes
// from the scripted fallback.
func NewService(provider Provider, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{provider: provider, timeout: timeout, logger: logger.Named("chat")}
}

// ProviderName reports the configured provider, or "fallback".
func (s *Service) ProviderName() string {
	if s.provider == nil {
		return SourceFallback
	}
	return s.provider.Name()
}

// Reply answers the latest guest message. It never fails: provider errors,
// timeouts and blank answers all degrade to the scripted fallback.
func (s *Service) Reply(ctx context.Context, req Request) Response {
	persona := ParsePersona(string(req.Persona))
	req.Persona = persona
	prompt := req.LatestUserMessage()
	if reply, ok := Scripted(prompt); ok {
		return Response{Reply: reply, Mood: persona.Classify(reply), Source: SourceScripted}
	}
	fallback := Fallback(prompt, req.Dishes)

	if s.provider == nil {
		return Response{Reply: fallback, Mood: persona.Classify(fallback), Source: SourceFallback}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	out, err := s.provider.Complete(ctx, req)
	reply := strings.TrimSpace(out.Reply)
	if err == nil && reply == "" {
		err = ErrEmptyReply
	}
	if err != nil {
		s.logger.Warn("chat provider failed, using fallback",
			zap.String("provider", s.provider.Name()),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return Response{Reply: fallback, Mood: persona.Classify(fallback), Source: SourceFallback}
	}

	mood := persona.Classify(reply)
	// Only BuzzBot trusts a provider-supplied mood.
	if persona == PersonaBuzzBot && out.Mood != "" && persona.Allows(out.Mood) {
		mood = out.Mood
	}
	source := out.Source
	if source == "" {
		source = s.provider.Name()
	}
	return Response{Reply: reply, Mood: mood, Source: source}
}
