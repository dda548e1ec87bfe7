package config

import (
	"fmt"
	"slices"
)

// BotData is a bot with its resolved identity and team placement.
type BotData struct {
	Rank int      // one-based priority within the team
	UID  uint32   // the bot's own user id
	Bot  Bot      // the bot's configuration
	Team []uint32 // teammates' uids in priority order, including this bot
	Room *Room    // the room's enforced settings, nil if none
}

// TeamKey identifies a team across rooms.
func TeamKey(room string, team uint32) string {
	return fmt.Sprintf("Room %s Team %d", room, team)
}

// Plan groups bots into teams by room and team number in registration order.
// uids must be the bots' user ids in the same order as cfg.Bots.
func Plan(cfg *Config, uids []uint32) ([]BotData, map[string][]uint32, error) {
	if len(uids) != len(cfg.Bots) {
		return nil, nil, fmt.Errorf("plan: %d bots but %d uids", len(cfg.Bots), len(uids))
	}

	teams := make(map[string][]uint32)
	ranks := make([]int, len(cfg.Bots))
	for i, b := range cfg.Bots {
		key := TeamKey(b.Room, b.Team)
		members := teams[key]
		if idx := slices.Index(members, uids[i]); idx >= 0 {
			ranks[i] = idx + 1
			continue
		}
		teams[key] = append(members, uids[i])
		ranks[i] = len(teams[key])
	}

	out := make([]BotData, len(cfg.Bots))
	for i, b := range cfg.Bots {
		bd := BotData{
			Rank: ranks[i],
			UID:  uids[i],
			Bot:  b,
			Team: slices.Clone(teams[TeamKey(b.Room, b.Team)]),
		}
		if r, ok := cfg.Rooms[b.Room]; ok {
			bd.Room = &r
		}
		out[i] = bd
	}
	return out, teams, nil
}
