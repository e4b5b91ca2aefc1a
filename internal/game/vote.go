package game

// Vote records voterID's vote against targetID and, when the vote completes
// the alive quorum, resolves the round. Stale votes (missing room, wrong
// phase, unknown or dead voter) are ignored without touching any state.
// Re-voting before the round closes simply overwrites the previous choice.
//
// Within a round, the last vote to complete the quorum is authoritative:
// its result carries the tie, elimination or win for the whole round, and
// any vote arriving after the room moved to RESULTS is ignored.
func (r *Registry) Vote(code, voterID, targetID string) VoteResult {
	rm, ok := r.lookup(code)
	if !ok {
		return VoteResult{Ignored: true}
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.phase != PhasePlaying {
		return VoteResult{Ignored: true}
	}

	voter := rm.findPlayerLocked(voterID)
	if voter == nil || voter.IsDead {
		return VoteResult{Ignored: true}
	}

	voter.VotedFor = targetID

	alive := rm.alivePlayersLocked()
	cast := 0
	for _, p := range alive {
		if p.VotedFor != "" {
			cast++
		}
	}
	if cast < len(alive) {
		// Round still open; expose the updated vote state.
		return VoteResult{View: rm.publicViewLocked()}
	}

	return r.resolveRoundLocked(rm, alive)
}

// resolveRoundLocked tallies a completed round and applies the outcome.
func (r *Registry) resolveRoundLocked(rm *Room, alive []*Player) VoteResult {
	counts := make(map[string]int)
	for _, p := range alive {
		counts[p.VotedFor]++
	}

	max := 0
	candidate := ""
	tied := false
	for id, n := range counts {
		switch {
		case n > max:
			max, candidate, tied = n, id, false
		case n == max:
			tied = true
		}
	}

	eliminated := rm.findPlayerLocked(candidate)
	if tied || eliminated == nil {
		// No strict majority, or the top target already left the room.
		// Nobody is eliminated; same alive set votes again.
		rm.clearVotesLocked()
		r.logger.Debug("round tied", "room", rm.code, "alive", len(alive))
		return VoteResult{
			RoundClosed:  true,
			Tie:          true,
			NeedBotVotes: true,
			Message:      "The vote was tied. Nobody was eliminated, vote again!",
			View:         rm.publicViewLocked(),
		}
	}

	eliminated.IsDead = true
	r.logger.Info("player eliminated", "room", rm.code, "player", eliminated.Name, "votes", max)

	impostorName := ""
	if imp := rm.findPlayerLocked(rm.impostorID); imp != nil {
		impostorName = imp.Name
	}

	if eliminated.ID == rm.impostorID {
		rm.phase = PhaseResults
		r.logger.Info("game over", "room", rm.code, "winner", WinnerCitizens)
		return VoteResult{
			RoundClosed: true,
			Eliminated:  eliminated.Name,
			GameOver:    true,
			Results: &Results{
				Winner:         WinnerCitizens,
				ImpostorName:   impostorName,
				EliminatedName: eliminated.Name,
			},
			View: rm.publicViewLocked(),
		}
	}

	// The impostor survives the round. With two or fewer players left the
	// citizens can no longer outvote them.
	if len(rm.alivePlayersLocked()) <= 2 {
		rm.phase = PhaseResults
		r.logger.Info("game over", "room", rm.code, "winner", WinnerImpostor)
		return VoteResult{
			RoundClosed: true,
			Eliminated:  eliminated.Name,
			GameOver:    true,
			Results: &Results{
				Winner:         WinnerImpostor,
				ImpostorName:   impostorName,
				EliminatedName: eliminated.Name,
				Reason:         "impostor survived",
			},
			View: rm.publicViewLocked(),
		}
	}

	rm.clearVotesLocked()
	return VoteResult{
		RoundClosed:  true,
		Eliminated:   eliminated.Name,
		NeedBotVotes: true,
		Message:      eliminated.Name + " was eliminated, but the impostor is still among you.",
		View:         rm.publicViewLocked(),
	}
}
