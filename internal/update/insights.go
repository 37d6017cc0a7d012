package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasksync/internal/model"
	"github.com/sandeepkv93/tasksync/internal/views"
)

func (m Model) handleInsightsKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.SuggestionCursor < len(m.Suggestions)-1 {
			m.SuggestionCursor++
		}
	case "k", "up":
		if m.SuggestionCursor > 0 {
			m.SuggestionCursor--
		}
	case "enter":
		if m.rec == nil || m.SuggestionCursor >= len(m.Suggestions) {
			return m, nil
		}
		sg := m.Suggestions[m.SuggestionCursor]
		in := model.TaskInput{
			Title:       sg.Title,
			Description: sg.Description,
			Priority:    sg.Priority,
			CategoryID:  sg.CategoryID,
		}
		cmd := m.start(m.rec.Create(in, nil), "")
		return m, cmd
	case "pgdown":
		m.insightsViewport.HalfViewDown()
	case "pgup":
		m.insightsViewport.HalfViewUp()
	}
	return m, nil
}

func (m *Model) handleInsights(msg insightsMsg) {
	m.InsightsLoaded = true
	m.Suggestions = msg.suggestions
	m.SuggestionCursor = clamp(m.SuggestionCursor, len(m.Suggestions))
	if msg.analysis != nil {
		m.Analysis = msg.analysis
	}
	if msg.err != nil {
		m.Status = StatusBar{Text: failure("load insights", msg.err), IsError: true}
	}
	m.insightsViewport.SetContent(views.RenderMarkdown(analysisMarkdown(m.Analysis)))
	m.insightsViewport.GotoTop()
}

func analysisMarkdown(a *model.Analysis) string {
	if a == nil {
		return "_No analysis available_"
	}
	var b strings.Builder
	b.WriteString("## Productivity\n\n")
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total | %d |\n", a.TotalTasks)
	fmt.Fprintf(&b, "| Completed | %d |\n", a.CompletedTasks)
	fmt.Fprintf(&b, "| Pending | %d |\n", a.PendingTasks)
	if a.TotalTasks > 0 {
		fmt.Fprintf(&b, "| Completion rate | %.0f%% |\n", 100*float64(a.CompletedTasks)/float64(a.TotalTasks))
	}
	switch {
	case a.AvgCompletionTimeHours > 0:
		fmt.Fprintf(&b, "| Avg. time to complete | %.1f h |\n", a.AvgCompletionTimeHours)
	case a.AvgCompletionTimeSecond > 0:
		fmt.Fprintf(&b, "| Avg. time to complete | %.1f h |\n", a.AvgCompletionTimeSecond/3600)
	}
	return b.String()
}

func (m Model) renderInsightsView() string {
	data := views.InsightsPanelData{Cursor: m.SuggestionCursor, Loaded: m.InsightsLoaded}
	for _, sg := range m.Suggestions {
		data.Suggestions = append(data.Suggestions, views.SuggestionData{
			Title:       sg.Title,
			Priority:    string(sg.Priority),
			Description: sg.Description,
		})
	}
	return views.RenderInsightsPanel(data)
}
