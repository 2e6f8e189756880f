package punish

import (
	"fmt"
	"testing"
	"time"

	"modlog-bot/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryPage(t *testing.T) {
	history := []model.Case{
		{CaseID: 1, Action: model.ActionWarned, Reason: "spam", Timestamp: "10/16/2026 09:30 AM"},
		{CaseID: 3, Action: model.ActionMuted, Reason: "again", Timestamp: "10/16/2026 10:00 AM"},
	}
	e, comps := HistoryPage("42", "alice", history, 1)
	assert.Equal(t, "Moderation History for alice", e.Title)
	assert.Len(t, e.Fields, 2)
	assert.Equal(t, "Case 1", e.Fields[0].Name)
	assert.Equal(t, "**Warned** - spam - 10/16/2026 09:30 AM", e.Fields[0].Value)
	assert.Equal(t, "Page 1/1・2 cases", e.Footer.Text)
	assert.Nil(t, comps)
}

func TestHistoryPage_Pages(t *testing.T) {
	var history []model.Case
	for i := 1; i <= 23; i++ {
		history = append(history, model.Case{CaseID: i, Action: model.ActionWarned})
	}

	e, comps := HistoryPage("42", "bob", history, 3)
	assert.Len(t, e.Fields, 3)
	assert.Equal(t, "Case 21", e.Fields[0].Name)
	assert.Equal(t, "Page 3/3・23 cases", e.Footer.Text)
	require.Len(t, comps, 1)

	e, _ = HistoryPage("42", "bob", history, 99)
	assert.Equal(t, fmt.Sprintf("Page %d/3・23 cases", 3), e.Footer.Text)
}

func TestCaseEmbed(t *testing.T) {
	end := time.Date(2026, 10, 16, 10, 30, 0, 0, time.UTC)
	c := model.Case{
		CaseID: 4, Action: model.ActionMuted, ModeratorID: "7", SubjectID: "42",
		Reason: "spam", Duration: "1 Hour(s)", Appealable: model.NotApplicable,
		Timestamp: "10/16/2026 09:30 AM", EndTime: &end,
	}
	e := CaseEmbed(c)
	assert.Equal(t, "📁 Case #4", e.Title)
	assert.Len(t, e.Fields, 8)
	assert.Equal(t, "End_time", e.Fields[7].Name)
	assert.Equal(t, "2026-10-16T10:30:00Z", e.Fields[7].Value)

	c.EndTime = nil
	c.Reason = ""
	e = CaseEmbed(c)
	assert.Len(t, e.Fields, 7)
	assert.Equal(t, model.NotApplicable, e.Fields[3].Value)
}
