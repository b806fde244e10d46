package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"capypay/internal/model"
)

const (
	rankingCacheKey = "ranking:board"
	rankingCacheTTL = time.Minute
	rankingTopSize  = 50
)

// Static faculty metadata for the faculty battle view.
var facultyMeta = map[string]model.FacultyMeta{
	"Ingeniería":          {Color: "#3b82f6", Icon: "🔧"},
	"Medicina":            {Color: "#ef4444", Icon: "⚕️"},
	"Ciencias Económicas": {Color: "#10b981", Icon: "💰"},
	"Odontología":         {Color: "#f59e0b", Icon: "🦷"},
	"Derecho":             {Color: "#8b5cf6", Icon: "⚖️"},
	"Agronomía":           {Color: "#84cc16", Icon: "🌾"},
}

var defaultFacultyMeta = model.FacultyMeta{Color: "#6b7280", Icon: "🏛️"}

type RankingService interface {
	GetRanking(ctx context.Context, userID uuid.UUID) (*model.Ranking, error)
}

// rankingBoard is the user-independent part of the ranking response,
// cached as one unit.
type rankingBoard struct {
	Users     []model.RankedUser      `json:"users"`
	Faculties []model.FacultyStanding `json:"faculties"`
}

// RankingAggregator derives leaderboard standings from profile XP.
// Advisory only: served from a short-lived cache and never part of any
// consistency-critical path.
type RankingAggregator struct {
	accounts AccountStore
	cache    ResponseCache
}

func NewRankingAggregator(accounts AccountStore, cache ResponseCache) *RankingAggregator {
	return &RankingAggregator{accounts: accounts, cache: cache}
}

func (r *RankingAggregator) GetRanking(ctx context.Context, userID uuid.UUID) (*model.Ranking, error) {
	board, err := r.board(ctx)
	if err != nil {
		return nil, err
	}

	ranking := &model.Ranking{Faculties: board.Faculties}
	if len(board.Users) > 3 {
		ranking.Users.Top3 = board.Users[:3]
		end := len(board.Users)
		if end > 20 {
			end = 20
		}
		ranking.Users.List = board.Users[3:end]
	} else {
		ranking.Users.Top3 = board.Users
		ranking.Users.List = []model.RankedUser{}
	}

	ranking.Users.User = model.RankedUser{Name: "Invitado"}
	if userID != uuid.Nil {
		r.fillUserStanding(ctx, board.Users, userID, &ranking.Users)
	}
	return ranking, nil
}

// fillUserStanding locates the requesting user on the board and their
// rival, the entry one rank above. Users outside the top board are
// fetched in isolation with rank 0.
func (r *RankingAggregator) fillUserStanding(ctx context.Context, board []model.RankedUser, userID uuid.UUID, users *model.RankingUsers) {
	for i, u := range board {
		if u.ID == userID {
			users.User = u
			if i > 0 {
				users.Rival = board[i-1]
			}
			return
		}
	}
	account, err := r.accounts.GetByID(ctx, userID)
	if err != nil {
		slog.Warn("ranking: requesting user lookup failed", "user_id", userID, "error", err)
		return
	}
	users.User = model.RankedUser{
		ID:      account.ID,
		Name:    account.Name,
		Points:  account.XP,
		Avatar:  avatarURL(account.Name),
		Faculty: account.Faculty,
		Career:  account.Career,
	}
}

func (r *RankingAggregator) board(ctx context.Context) (*rankingBoard, error) {
	var cached rankingBoard
	if err := r.cache.GetJSON(ctx, rankingCacheKey, &cached); err == nil {
		return &cached, nil
	}

	top, err := r.accounts.TopByXP(ctx, rankingTopSize)
	if err != nil {
		return nil, err
	}
	users := make([]model.RankedUser, 0, len(top))
	for i, a := range top {
		faculty := a.Faculty
		if faculty == "" {
			faculty = "General"
		}
		career := a.Career
		if career == "" {
			career = "Estudiante"
		}
		users = append(users, model.RankedUser{
			Rank:    i + 1,
			ID:      a.ID,
			Name:    a.Name,
			Points:  a.XP,
			Avatar:  avatarURL(a.Name),
			Faculty: faculty,
			Career:  career,
		})
	}

	standings, err := r.accounts.FacultyXP(ctx)
	if err != nil {
		return nil, err
	}
	for i := range standings {
		standings[i].Rank = i + 1
		meta, ok := facultyMeta[standings[i].Name]
		if !ok {
			meta = defaultFacultyMeta
		}
		standings[i].Meta = meta
	}

	board := &rankingBoard{Users: users, Faculties: standings}
	if err := r.cache.SetJSON(ctx, rankingCacheKey, board, rankingCacheTTL); err != nil {
		slog.Warn("ranking cache write failed", "error", err)
	}
	return board, nil
}

func avatarURL(name string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=random&color=fff", url.QueryEscape(name))
}
