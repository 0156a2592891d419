package turn

import (
	"github.com/dexterslab/plural-backend/internal/types"
)

// Fixed model-role turns used to keep the dialogue strictly alternating.
// The generation API has no system role, so the persona instruction is
// delivered as an opening user turn followed by a model acknowledgement.
const (
	personaAckText = "Understood. I'm ready to guide the child."
	fillerAckText  = "Okay."
)

func textTurn(role types.MessageRole, text string) types.DialogueTurn {
	return types.DialogueTurn{Role: role, Blocks: []types.ContentBlock{types.TextBlock(text)}}
}

// AssembleDialogue builds the ordered dialogue fed to the generation
// service: a persona preamble, the selected history reduced to its text
// portions, and the latest user turn with its normalized (possibly
// multimodal) blocks.
//
// The returned sequence strictly alternates role and always ends with
// exactly one user turn. History turns that would repeat the preceding
// role are skipped, tolerating malformed stored data; the number of
// skipped turns is returned so the caller can log it.
func AssembleDialogue(systemPrompt string, history []types.Message, latestBlocks []types.ContentBlock) ([]types.DialogueTurn, int) {
	dialogue := []types.DialogueTurn{
		textTurn(types.RoleUser, systemPrompt),
		textTurn(types.RoleModel, personaAckText),
	}

	// Only the latest turn carries image content; history contributes text
	// to bound the payload size.
	var historyTurns []types.DialogueTurn
	for _, msg := range history {
		text := msg.Content.PlainText()
		if text == "" {
			continue
		}
		historyTurns = append(historyTurns, textTurn(msg.Role, text))
	}

	// A leading user-role history turn is dropped; the latest user turn
	// appended below carries the current question.
	if len(historyTurns) > 0 && historyTurns[0].Role == types.RoleUser {
		historyTurns = historyTurns[1:]
	}

	skipped := 0
	lastRole := types.RoleModel
	for _, t := range historyTurns {
		if t.Role == lastRole {
			skipped++
			continue
		}
		dialogue = append(dialogue, t)
		lastRole = t.Role
	}

	if dialogue[len(dialogue)-1].Role == types.RoleUser {
		dialogue = append(dialogue, textTurn(types.RoleModel, fillerAckText))
	}

	dialogue = append(dialogue, types.DialogueTurn{Role: types.RoleUser, Blocks: latestBlocks})
	return dialogue, skipped
}
