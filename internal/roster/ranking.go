package roster

import "sort"

// User is the minimal account view the ranking operates on.
type User struct {
	ID       string
	Username string
	Score    int
}

// RankedUser pairs a user with its 1-based position in the Rangliste.
type RankedUser struct {
	User
	Rank int
}

// Ranking orders users descending by score and assigns dense 1-based ranks.
// The sort is stable: users with equal scores keep their input order and do
// not share a rank. The input slice is never modified.
func Ranking(users []User) []RankedUser {
	sorted := make([]User, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	ranked := make([]RankedUser, len(sorted))
	for i, u := range sorted {
		ranked[i] = RankedUser{User: u, Rank: i + 1}
	}
	return ranked
}
