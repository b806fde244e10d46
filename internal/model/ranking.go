package model

import "github.com/google/uuid"

// RankedUser is one leaderboard entry, ordered by XP.
type RankedUser struct {
	Rank    int       `json:"rank"`
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Points  int64     `json:"points"`
	Avatar  string    `json:"avatar"`
	Faculty string    `json:"faculty"`
	Career  string    `json:"career"`
}

// FacultyStanding aggregates XP across a faculty for the faculty battle.
type FacultyStanding struct {
	Rank    int         `json:"rank"`
	Name    string      `json:"name"`
	XP      int64       `json:"xp"`
	Members int         `json:"members"`
	Meta    FacultyMeta `json:"meta"`
}

type FacultyMeta struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type Ranking struct {
	Users     RankingUsers      `json:"users"`
	Faculties []FacultyStanding `json:"faculties"`
}

type RankingUsers struct {
	Top3  []RankedUser `json:"top3"`
	List  []RankedUser `json:"list"`
	User  RankedUser   `json:"user"`
	Rival RankedUser   `json:"rival"`
}
