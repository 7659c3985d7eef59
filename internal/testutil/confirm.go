package testutil

import "sync"

// ScriptedConfirmation is a ConfirmationProvider for tests. It answers
// time-advance prompts with a scripted day count and manual checks with a
// fixed verdict, recording every prompt it receives.
type ScriptedConfirmation struct {
	mu sync.Mutex

	// AdvanceDays is returned for every time-advance prompt. When the
	// queue is non-empty its head is consumed first.
	AdvanceDays  int
	AdvanceQueue []int

	// ManualAnswer is the verdict for manual check prompts.
	ManualAnswer bool

	// Err is returned from every prompt when set.
	Err error

	AdvancePrompts []AdvancePrompt
	ManualPrompts  []string
}

// AdvancePrompt records one time-advance request.
type AdvancePrompt struct {
	Email         string
	RequestedDays int
}

// NewScriptedConfirmation returns a provider that confirms requested day
// counts as-is and passes every manual check.
func NewScriptedConfirmation() *ScriptedConfirmation {
	return &ScriptedConfirmation{AdvanceDays: -1, ManualAnswer: true}
}

func (s *ScriptedConfirmation) ConfirmTimeAdvance(email string, requestedDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.AdvancePrompts = append(s.AdvancePrompts, AdvancePrompt{Email: email, RequestedDays: requestedDays})
	if s.Err != nil {
		return 0, s.Err
	}
	if len(s.AdvanceQueue) > 0 {
		days := s.AdvanceQueue[0]
		s.AdvanceQueue = s.AdvanceQueue[1:]
		return days, nil
	}
	if s.AdvanceDays < 0 {
		return requestedDays, nil
	}
	return s.AdvanceDays, nil
}

func (s *ScriptedConfirmation) ConfirmManualCheck(description string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ManualPrompts = append(s.ManualPrompts, description)
	if s.Err != nil {
		return false, s.Err
	}
	return s.ManualAnswer, nil
}
