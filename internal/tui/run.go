package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/feirante/feirante/internal/curation"
	"github.com/feirante/feirante/internal/service"
)

// RunReview drives the interactive curation screen until the backlog is
// empty or the user quits. It returns how many products were settled.
func RunReview(ctx context.Context, storage service.Storage, curator *curation.Service) (int, error) {
	categories, err := storage.GetCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load categories: %w", err)
	}

	program := tea.NewProgram(New(ctx, curator, categories))
	final, err := program.Run()
	if err != nil {
		return 0, fmt.Errorf("review screen failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return 0, fmt.Errorf("unexpected final model type")
	}
	if m.errMsg != "" && m.done && m.reviewed == 0 {
		return 0, fmt.Errorf("review aborted: %s", m.errMsg)
	}

	return m.reviewed, nil
}
