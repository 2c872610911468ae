package app

import (
	"fmt"
	"sort"

	"mathquiz-service/internal/domain"
)

// WinnerCount is how many finished sessions the winners notification carries.
const WinnerCount = 3

// Rank orders sessions: finished before in progress, then score descending,
// then (finished only) elapsed time ascending. Remaining ties keep input order.
func Rank(sessions []domain.SessionSnapshot) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(sessions))
	for _, s := range sessions {
		key := domain.SortKey{Finished: s.Finished(), Score: s.Score}
		if key.Finished {
			key.Elapsed = s.Elapsed
		}
		entries = append(entries, domain.LeaderboardEntry{
			ID:          s.ID,
			DisplayName: s.DisplayName,
			Score:       s.Score,
			StatusLabel: statusLabel(s),
			SortKey:     key,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return rankLess(entries[i].SortKey, entries[j].SortKey)
	})
	return entries
}

// Winners returns the top finished sessions, best first.
func Winners(sessions []domain.SessionSnapshot) []domain.Winner {
	finished := make([]domain.SessionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		if s.Finished() {
			finished = append(finished, s)
		}
	}
	sort.SliceStable(finished, func(i, j int) bool {
		if finished[i].Score != finished[j].Score {
			return finished[i].Score > finished[j].Score
		}
		return finished[i].Elapsed < finished[j].Elapsed
	})
	if len(finished) > WinnerCount {
		finished = finished[:WinnerCount]
	}

	winners := make([]domain.Winner, 0, len(finished))
	for _, s := range finished {
		winners = append(winners, domain.Winner{
			DisplayName:   s.DisplayName,
			Score:         s.Score,
			FormattedTime: domain.FormatElapsed(s.Elapsed),
		})
	}
	return winners
}

func rankLess(a, b domain.SortKey) bool {
	if a.Finished != b.Finished {
		return a.Finished
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	// in-progress time is unbounded, so only finished entries compare on it
	if a.Finished {
		return a.Elapsed < b.Elapsed
	}
	return false
}

func statusLabel(s domain.SessionSnapshot) string {
	if s.Finished() {
		return fmt.Sprintf("Finished (%s)", domain.FormatElapsed(s.Elapsed))
	}
	return fmt.Sprintf("Q%d/%d", s.QuestionIndex+1, s.Total)
}
