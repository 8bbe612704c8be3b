package evolution

import "time"

// recordOccurrence applies one reported occurrence to the state and
// returns the updated pattern plus whether it was newly created.
//
// On a never-seen (patternID, category) pair it creates a pattern with
// Occurrences = 1 and FirstSeen = LastSeen = now. On an existing pair it
// increments the count by exactly one and overwrites the evidence fields
// with the latest description/solution. The state is mutated in place;
// persisting it is the caller's job.
func recordOccurrence(state *State, patternID, category, description, solution string, now time.Time) (MistakePattern, bool, error) {
	if patternID == "" {
		return MistakePattern{}, false, validationErrorf("pattern_id is required")
	}
	if category == "" {
		return MistakePattern{}, false, validationErrorf("category is required")
	}

	key := PatternKey(patternID, category)

	existing, ok := state.Patterns[key]
	if !ok {
		created := MistakePattern{
			PatternID:       patternID,
			Category:        category,
			Occurrences:     1,
			FirstSeen:       now,
			LastSeen:        now,
			LastDescription: description,
			LastSolution:    solution,
		}
		state.Patterns[key] = created
		return created, true, nil
	}

	existing.Occurrences++
	existing.LastSeen = now
	existing.LastDescription = description
	existing.LastSolution = solution
	state.Patterns[key] = existing
	return existing, false, nil
}
