package update

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasksync/internal/model"
	"github.com/sandeepkv93/tasksync/internal/realtime"
	"github.com/sandeepkv93/tasksync/internal/views"
)

// labelItems lists the active section with per-label task counts.
func (m Model) labelItems() []views.LabelData {
	if m.rec == nil {
		return nil
	}
	st := m.rec.Store()
	catUses := make(map[int64]int)
	tagUses := make(map[int64]int)
	for _, t := range st.Tasks() {
		if t.CategoryID != nil {
			catUses[*t.CategoryID]++
		}
		for _, id := range t.TagIDs() {
			tagUses[id]++
		}
	}
	if m.LabelSection == SectionTags {
		tags := st.TagsList()
		out := make([]views.LabelData, 0, len(tags))
		for _, t := range tags {
			out = append(out, views.LabelData{ID: t.ID, Name: t.Name, Uses: tagUses[t.ID]})
		}
		return out
	}
	cats := st.Categories()
	out := make([]views.LabelData, 0, len(cats))
	for _, c := range cats {
		out = append(out, views.LabelData{ID: c.ID, Name: c.Name, Color: c.Color, Uses: catUses[c.ID]})
	}
	return out
}

func (m Model) handleLabelsKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		if m.LabelSection == SectionCategories {
			m.LabelSection = SectionTags
		} else {
			m.LabelSection = SectionCategories
		}
		m.LabelCursor = 0
	case "j", "down":
		if m.LabelCursor < len(m.labelItems())-1 {
			m.LabelCursor++
		}
	case "k", "up":
		if m.LabelCursor > 0 {
			m.LabelCursor--
		}
	case "x":
		items := m.labelItems()
		if m.LabelCursor < len(items) {
			_ = m.deleteLabel(m.LabelSection, items[m.LabelCursor].ID)
		}
	case "enter":
		// narrow the task list to the selected label
		items := m.labelItems()
		if m.LabelCursor >= len(items) {
			return m, nil
		}
		id := items[m.LabelCursor].ID
		if m.LabelSection == SectionTags {
			m.Filter.TagIDs = []int64{id}
		} else {
			m.Filter.CategoryID = &id
		}
		m.CurrentView = ViewTasks
		m.TaskCursor = 0
		cmd := m.filterChanged()
		return m, cmd
	}
	return m, nil
}

// Labels are local, so these run on the loop.

func (m *Model) saveLabel(section LabelSection, name, color string) error {
	ctx, cancel := m.labelContext()
	defer cancel()
	if section == SectionTags {
		tag, ok := m.rec.SaveTag(ctx, model.Tag{Name: name})
		if !ok {
			return labelError(m.rec.ErrorMessage())
		}
		m.outgoing(realtime.TagCreate, tag)
		m.Status = StatusBar{Text: fmt.Sprintf("saved tag #%d %s", tag.ID, tag.Name)}
		return nil
	}
	cat, ok := m.rec.SaveCategory(ctx, model.Category{Name: name, Color: color})
	if !ok {
		return labelError(m.rec.ErrorMessage())
	}
	m.outgoing(realtime.CategoryCreate, cat)
	m.Status = StatusBar{Text: fmt.Sprintf("saved category #%d %s", cat.ID, cat.Name)}
	return nil
}

func (m *Model) deleteLabel(section LabelSection, id int64) error {
	ctx, cancel := m.labelContext()
	defer cancel()
	var ok bool
	if section == SectionTags {
		ok = m.rec.DeleteTag(ctx, id)
	} else {
		ok = m.rec.DeleteCategory(ctx, id)
	}
	if !ok {
		m.Status = StatusBar{Text: m.rec.ErrorMessage(), IsError: true}
		return labelError(m.rec.ErrorMessage())
	}
	if section == SectionTags {
		m.Filter.TagIDs = without(m.Filter.TagIDs, id)
		m.outgoing(realtime.TagDelete, realtime.Ref{ID: id})
	} else {
		if m.Filter.CategoryID != nil && *m.Filter.CategoryID == id {
			m.Filter.CategoryID = nil
		}
		m.outgoing(realtime.CategoryDelete, realtime.Ref{ID: id})
	}
	m.Status = StatusBar{Text: fmt.Sprintf("deleted %s #%d", singular(section), id)}
	m.clampCursors()
	return nil
}

type labelError string

func (e labelError) Error() string { return string(e) }

func singular(s LabelSection) string {
	if s == SectionTags {
		return "tag"
	}
	return "category"
}

func without(ids []int64, id int64) []int64 {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (m Model) renderLabelsView() string {
	data := views.LabelsPanelData{Section: string(m.LabelSection), Cursor: m.LabelCursor}
	section := m.LabelSection
	m.LabelSection = SectionCategories
	data.Categories = m.labelItems()
	m.LabelSection = SectionTags
	data.Tags = m.labelItems()
	m.LabelSection = section
	return views.RenderLabelsPanel(data)
}
