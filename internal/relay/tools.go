package relay

// BetTools returns the fixed tool catalog sent with every completion
// request: the three tracked-bet operations the model may invoke.
func BetTools() []Tool {
	return []Tool{
		{
			Name: "add_bet",
			Description: "Adds a bet to the user's tracked bets list. Use when the user asks to " +
				"track, tail, or log a pick. Stake is computed from the user's unit size.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"sport": map[string]any{
						"type":        "string",
						"description": "Sport code: nba, nhl, or ncaab",
					},
					"type": map[string]any{
						"type":        "string",
						"description": "Bet type: prop, spread, total, or moneyline",
					},
					"matchup": map[string]any{
						"type":        "string",
						"description": "Game matchup, e.g. 'BOS @ LAL'",
					},
					"pick": map[string]any{
						"type":        "string",
						"description": "The pick, e.g. 'LAL -3.5' or 'Over 24.5'",
					},
					"player": map[string]any{
						"type":        "string",
						"description": "Player name for prop bets",
					},
					"statType": map[string]any{
						"type":        "string",
						"description": "Stat type for prop bets, e.g. points, rebounds",
					},
					"line": map[string]any{
						"type":        "number",
						"description": "The betting line",
					},
					"confidence": map[string]any{
						"type":        "number",
						"description": "Model confidence percentage (0-100)",
					},
					"odds": map[string]any{
						"type":        "string",
						"description": "American odds, e.g. '-110' or '+150'",
					},
				},
				"required": []string{"sport", "type", "matchup", "pick", "line", "confidence"},
			},
		},
		{
			Name: "remove_bet",
			Description: "Removes a bet from the user's tracked bets list, matched by exact " +
				"matchup and pick.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"matchup": map[string]any{
						"type":        "string",
						"description": "Game matchup of the bet to remove",
					},
					"pick": map[string]any{
						"type":        "string",
						"description": "The pick of the bet to remove",
					},
				},
				"required": []string{"matchup", "pick"},
			},
		},
		{
			Name: "get_tracked_bets",
			Description: "Returns the user's tracked bets for a date. Use when the user asks " +
				"what they are tracking or how their bets are doing.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date": map[string]any{
						"type":        "string",
						"description": "Date in YYYY-MM-DD format; defaults to today",
					},
				},
				"required": []string{},
			},
		},
	}
}
