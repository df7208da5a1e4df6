package director

import "context"

// Mock is a writer/checker that stands in for the AI layer in tests and in
// AI-disabled runs. The deterministic core behaves identically with the mock
// in place, which is what makes replay tests possible.
type Mock struct {
	Prose string
	Delta *StateDelta
	Err   error
}

func (m *Mock) Narrate(ctx context.Context, tc TurnContext, onChunk func(string)) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	prose := m.Prose
	if prose == "" {
		prose = "Time passes."
	}
	if onChunk != nil {
		onChunk(prose)
	}
	return prose, nil
}

func (m *Mock) ExtractDelta(ctx context.Context, tc TurnContext, prose string) (*StateDelta, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Delta == nil {
		return &StateDelta{}, nil
	}
	return m.Delta, nil
}
