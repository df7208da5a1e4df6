package director

import "fmt"

func buildWriterPrompt(tc TurnContext) string {
	return `You are the narrator of a turn-based story game. You have complete knowledge of the world state provided below.

Your job: respond to the player's action with 2-4 sentences of vivid narration that feels natural and immersive.

Rules:
- Stay consistent with the provided world state and established facts
- Weave any pending story beats into the narration
- If the action is impossible, narrate why and hint at alternatives
- Keep responses concise but atmospheric
- Never invent items, characters or places that are not in the world state
- Never state numeric stat changes outright; imply them`
}

func buildCheckerPrompt(tc TurnContext) string {
	return fmt.Sprintf(`You are the state checker of a turn-based story game. Read the narration of the latest turn and extract only the state changes it establishes.

Return a JSON object with any of these keys (omit keys with no changes):
%s

Rules:
- Be conservative: extract only changes the narration clearly establishes
- Use ids exactly as they appear in the world state
- "memory" entries are short factual sentences worth remembering across turns
- If the narration changes nothing, return {}`, deltaShape)
}

const deltaShape = `{
  "meters": [{"owner": "player", "meter": "energy", "op": "subtract", "value": 10}],
  "inventory": [{"owner": "player", "item": "coffee", "action": "add", "count": 1}],
  "flags": [{"flag": "met_alex", "value": true}],
  "clothing": [{"character": "alex", "layer": "jacket", "state": "removed"}],
  "discoveries": ["library"],
  "modifiers": [{"character": "player", "modifier": "tired", "action": "apply", "duration": 3}],
  "memory": ["The player promised to meet Alex at the library."]
}`
