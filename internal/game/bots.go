package game

import (
	"fmt"
	rand "math/rand/v2"
	"strings"
)

// nextBotNameLocked produces a placeholder display name for a new bot.
// addPlayerLocked still de-duplicates, this just keeps the numbering tidy.
func (rm *Room) nextBotNameLocked() string {
	n := 1
	for _, p := range rm.players {
		if p.IsBot {
			n++
		}
	}
	return fmt.Sprintf("Bot %d", n)
}

// IsBotID reports whether an id was generated for a synthetic player.
func IsBotID(id string) bool {
	return strings.HasPrefix(id, "bot-")
}

// GenerateBotVotes produces one vote per alive bot, each targeting a random
// alive player other than itself. It is a pure computation: no votes are
// recorded here. The caller feeds each vote through Vote sequentially so a
// round closing part-way through the sequence short-circuits the rest.
func (r *Registry) GenerateBotVotes(code string) []BotVote {
	rm, ok := r.lookup(code)
	if !ok {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.phase != PhasePlaying {
		return nil
	}

	alive := rm.alivePlayersLocked()
	if len(alive) < 2 {
		return nil
	}

	var votes []BotVote
	r.withRNG(func(rng *rand.Rand) {
		for _, bot := range alive {
			if !bot.IsBot {
				continue
			}
			target := bot
			for target.ID == bot.ID {
				target = alive[rng.IntN(len(alive))]
			}
			votes = append(votes, BotVote{VoterID: bot.ID, TargetID: target.ID})
		}
	})
	return votes
}
