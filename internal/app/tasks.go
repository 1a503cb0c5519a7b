package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/trowel/internal/core/domain"
)

var (
	nameColumn     = lipgloss.NewStyle().Width(14)
	categoryColumn = lipgloss.NewStyle().Width(18)
)

// taskTable renders one aligned line per task in execution order.
func taskTable(graph *domain.Graph) []string {
	var lines []string
	for task := range graph.Walk() {
		category := task.Category.String()
		if task.IsAggregate() {
			category = "-"
		}

		deps := make([]string, len(task.Dependencies))
		for i, d := range task.Dependencies {
			deps[i] = d.String()
		}

		line := nameColumn.Render(task.Name.String()) + categoryColumn.Render(category) + strings.Join(deps, ", ")
		lines = append(lines, strings.TrimRight(line, " "))
	}
	return lines
}
