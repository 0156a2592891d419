package turn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexterslab/plural-backend/internal/types"
)

func assertAlternating(t *testing.T, dialogue []types.DialogueTurn) {
	t.Helper()
	for i := 1; i < len(dialogue); i++ {
		require.NotEqual(t, dialogue[i-1].Role, dialogue[i].Role,
			"turns %d and %d share role %s", i-1, i, dialogue[i].Role)
	}
}

func TestAssembleDialogueEmptyHistory(t *testing.T) {
	latest := []types.ContentBlock{types.TextBlock("why do cats purr?")}
	dialogue, skipped := AssembleDialogue("persona", nil, latest)

	assert.Zero(t, skipped)
	require.Len(t, dialogue, 3)
	assert.Equal(t, types.RoleUser, dialogue[0].Role)
	assert.Equal(t, "persona", dialogue[0].Blocks[0].Text)
	assert.Equal(t, types.RoleModel, dialogue[1].Role)
	assert.Equal(t, types.RoleUser, dialogue[2].Role)
	assert.Equal(t, "why do cats purr?", dialogue[2].Blocks[0].Text)
	assertAlternating(t, dialogue)
}

func TestAssembleDialogueDropsLeadingUserTurn(t *testing.T) {
	history := []types.Message{
		textMessage(types.RoleUser, "first question"),
		textMessage(types.RoleModel, "first answer"),
	}
	latest := []types.ContentBlock{types.TextBlock("next question")}

	dialogue, skipped := AssembleDialogue("persona", history, latest)

	assert.Zero(t, skipped)
	assertAlternating(t, dialogue)
	for _, turn := range dialogue {
		assert.NotEqual(t, "first question", turn.Blocks[0].Text)
	}
	assert.Equal(t, types.RoleUser, dialogue[len(dialogue)-1].Role)
}

func TestAssembleDialogueSkipsConsecutiveSameRole(t *testing.T) {
	// A corrupted record inserts an extra consecutive user turn.
	history := []types.Message{
		textMessage(types.RoleModel, "answer one"),
		textMessage(types.RoleUser, "question two"),
		textMessage(types.RoleUser, "question two again"),
		textMessage(types.RoleModel, "answer two"),
	}
	latest := []types.ContentBlock{types.TextBlock("question three")}

	dialogue, skipped := AssembleDialogue("persona", history, latest)

	assert.Equal(t, 1, skipped)
	assertAlternating(t, dialogue)
	var texts []string
	for _, turn := range dialogue {
		texts = append(texts, turn.Blocks[0].Text)
	}
	assert.NotContains(t, texts, "question two again")
	assert.Contains(t, texts, "question two")
}

func TestAssembleDialogueInsertsFillerBeforeLatest(t *testing.T) {
	history := []types.Message{
		textMessage(types.RoleModel, "an answer"),
		textMessage(types.RoleUser, "a question"),
	}
	latest := []types.ContentBlock{types.TextBlock("another question")}

	dialogue, _ := AssembleDialogue("persona", history, latest)

	assertAlternating(t, dialogue)
	last := dialogue[len(dialogue)-1]
	assert.Equal(t, types.RoleUser, last.Role)
	assert.Equal(t, "another question", last.Blocks[0].Text)
	assert.Equal(t, fillerAckText, dialogue[len(dialogue)-2].Blocks[0].Text)
}

func TestAssembleDialogueAlwaysEndsOnUser(t *testing.T) {
	histories := [][]types.Message{
		nil,
		{textMessage(types.RoleModel, "a")},
		{textMessage(types.RoleUser, "a")},
		{textMessage(types.RoleModel, "a"), textMessage(types.RoleUser, "b")},
		{textMessage(types.RoleUser, "a"), textMessage(types.RoleModel, "b"), textMessage(types.RoleUser, "c")},
	}
	latest := []types.ContentBlock{types.TextBlock("latest")}

	for _, history := range histories {
		dialogue, _ := AssembleDialogue("persona", history, latest)
		assertAlternating(t, dialogue)
		assert.Equal(t, types.RoleUser, dialogue[len(dialogue)-1].Role)
		assert.Equal(t, "latest", dialogue[len(dialogue)-1].Blocks[0].Text)
	}
}

func TestAssembleDialogueDropsHistoryImages(t *testing.T) {
	history := []types.Message{
		textMessage(types.RoleModel, "look at this"),
		{
			ID:   textMessage(types.RoleUser, "").ID,
			Role: types.RoleUser,
			Content: types.NewMixedContent([]types.ContentPart{
				{Type: types.PartTypeText, Text: "what is it?"},
				{Type: types.PartTypeImageURL, ImageURL: &types.ImageRef{URL: "https://example.com/a.png"}},
			}),
		},
	}
	latest := []types.ContentBlock{types.TextBlock("latest")}

	dialogue, _ := AssembleDialogue("persona", history, latest)

	assertAlternating(t, dialogue)
	for _, turn := range dialogue {
		for _, block := range turn.Blocks {
			assert.Equal(t, types.BlockText, block.Kind, "history must contribute text only")
		}
	}
}
