package service

import (
	"sort"
	"strings"

	"chatline/internal/domain"
	"chatline/internal/llm"
)

const defaultHistoryWindow = 20

// HistoryService convierte mensajes confirmados en turnos para el modelo.
type HistoryService struct {
	window int
}

func NewHistoryService(window int) *HistoryService {
	if window <= 0 {
		window = defaultHistoryWindow
	}
	return &HistoryService{window: window}
}

// Build devuelve los ultimos turnos en orden cronologico. Mensajes vacios se omiten.
func (s *HistoryService) Build(messages []domain.Message) []llm.Turn {
	if len(messages) == 0 {
		return nil
	}
	window := defaultHistoryWindow
	if s != nil && s.window > 0 {
		window = s.window
	}

	ordered := make([]domain.Message, len(messages))
	copy(ordered, messages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	if len(ordered) > window {
		ordered = ordered[len(ordered)-window:]
	}

	turns := make([]llm.Turn, 0, len(ordered))
	for _, m := range ordered {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := llm.TurnUser
		if m.Role == domain.RoleAssistant {
			role = llm.TurnModel
		}
		turns = append(turns, llm.Turn{Role: role, Text: m.Content})
	}
	return turns
}
