package agent

import (
	"github.com/edubull/eeebee/internal/llm"
	"github.com/edubull/eeebee/internal/session"
)

// BuildLLMMessages returns the system prompt followed by one message per
// transcript turn, in order.
func BuildLLMMessages(s *session.Session, prompts *Prompts) ([]llm.Message, error) {
	system, err := prompts.System(&s.Profile)
	if err != nil {
		return nil, err
	}

	turns := s.Transcript()
	msgs := make([]llm.Message, 0, len(turns)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, t := range turns {
		role := llm.RoleUser
		if t.Speaker == session.SpeakerAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Text})
	}
	return msgs, nil
}
