package age_group

import (
	"encoding/json"
	"fmt"
	"time"
)

// Player is a backend player record kept as a generic object so admin edits
// round-trip unknown fields untouched.
type Player map[string]any

// LabelPlayers decodes a player list, adds an "ageGroup" field derived from
// "dateOfBirth" and keeps only players in group when group is non-empty.
// Players without a parseable date of birth are labelled "" and never match a filter.
func LabelPlayers(raw json.RawMessage, now time.Time, group string) ([]Player, error) {
	var players []Player
	if len(raw) == 0 || string(raw) == "null" {
		return []Player{}, nil
	}
	if err := json.Unmarshal(raw, &players); err != nil {
		return nil, fmt.Errorf("failed to decode players: %w", err)
	}

	out := make([]Player, 0, len(players))
	for _, p := range players {
		label := ""
		if dob, ok := p["dateOfBirth"].(string); ok {
			if l, err := ClassifyString(dob, now); err == nil {
				label = l
			}
		}
		p["ageGroup"] = label
		if group != "" && label != group {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// IsLabel reports whether s is one of the known group labels.
func IsLabel(s string) bool {
	for _, l := range Labels() {
		if l == s {
			return true
		}
	}
	return false
}
