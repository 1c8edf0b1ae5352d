package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mikeymath/mathgame/internal/api"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results, most recent kept (0 = unlimited)
	From  time.Time // timestamp >= From
	Types []string  // event types to include (empty = all)
}

// User is a demo learner.
type User struct {
	ID        uint32
	Name      string
	CreatedAt time.Time
}

// CreateUser inserts a learner.
func (s *Store) CreateUser(ctx context.Context, name string) (User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `INSERT INTO users (name, created_at) VALUES (?, ?)`, name, now.UnixNano())
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return User{ID: uint32(id), Name: name, CreatedAt: now}, nil
}

// GameState returns the learner's game state.
func (s *Store) GameState(ctx context.Context, userID uint32) (api.GameState, error) {
	gs := api.GameState{UserID: userID}
	err := s.db.QueryRowContext(ctx,
		`SELECT problem_id, video_id, solved, target FROM gamestates WHERE user_id = ?`, userID,
	).Scan(&gs.ProblemID, &gs.VideoID, &gs.Solved, &gs.Target)
	if errors.Is(err, sql.ErrNoRows) {
		return gs, fmt.Errorf("gamestate %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return gs, fmt.Errorf("get gamestate: %w", err)
	}
	return gs, nil
}

// SaveGameState inserts or replaces the learner's game state.
func (s *Store) SaveGameState(ctx context.Context, gs api.GameState) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO gamestates (user_id, problem_id, video_id, solved, target) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET problem_id = excluded.problem_id, video_id = excluded.video_id,
		 solved = excluded.solved, target = excluded.target`,
		gs.UserID, gs.ProblemID, gs.VideoID, gs.Solved, gs.Target)
	if err != nil {
		return fmt.Errorf("save gamestate: %w", err)
	}
	return nil
}

// Problem returns one problem, disabled or not.
func (s *Store) Problem(ctx context.Context, id uint32) (api.Problem, error) {
	p := api.Problem{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT problem_type_bitmap, expression, answer, difficulty FROM problems WHERE id = ?`, id,
	).Scan(&p.ProblemTypeBitmap, &p.Expression, &p.Answer, &p.Difficulty)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("problem %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("get problem: %w", err)
	}
	return p, nil
}

// SaveProblem inserts or updates a problem. A disabled problem stays
// disabled.
func (s *Store) SaveProblem(ctx context.Context, p api.Problem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO problems (id, problem_type_bitmap, expression, answer, difficulty) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET problem_type_bitmap = excluded.problem_type_bitmap,
		 expression = excluded.expression, answer = excluded.answer, difficulty = excluded.difficulty`,
		p.ID, p.ProblemTypeBitmap, p.Expression, p.Answer, p.Difficulty)
	if err != nil {
		return fmt.Errorf("save problem: %w", err)
	}
	return nil
}

// EnabledProblemIDs lists problems that may be served.
func (s *Store) EnabledProblemIDs(ctx context.Context) ([]uint32, error) {
	return s.ids(ctx, `SELECT id FROM problems WHERE disabled = 0 ORDER BY id`)
}

// DisableProblem stops a problem from being served again.
func (s *Store) DisableProblem(ctx context.Context, id uint32) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE problems SET disabled = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("disable problem: %w", err)
	}
	return nil
}

// Video returns one video.
func (s *Store) Video(ctx context.Context, id uint32) (api.Video, error) {
	v := api.Video{ID: id}
	err := s.db.QueryRowContext(ctx,
		`SELECT title, url, thumbnailurl FROM videos WHERE id = ?`, id,
	).Scan(&v.Title, &v.URL, &v.ThumbnailURL)
	if errors.Is(err, sql.ErrNoRows) {
		return v, fmt.Errorf("video %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return v, fmt.Errorf("get video: %w", err)
	}
	return v, nil
}

// SaveVideo inserts or updates a video, keeping its disabled flag.
func (s *Store) SaveVideo(ctx context.Context, v api.Video) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (id, title, url, thumbnailurl) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, url = excluded.url, thumbnailurl = excluded.thumbnailurl`,
		v.ID, v.Title, v.URL, v.ThumbnailURL)
	if err != nil {
		return fmt.Errorf("save video: %w", err)
	}
	return nil
}

// AssignVideos gives userID access to videos.
func (s *Store) AssignVideos(ctx context.Context, userID uint32, videoIDs ...uint32) error {
	for _, id := range videoIDs {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_has_video (user_id, video_id) VALUES (?, ?)`, userID, id); err != nil {
			return fmt.Errorf("assign video %d: %w", id, err)
		}
	}
	return nil
}

// EnabledVideoIDs lists the enabled videos assigned to userID.
func (s *Store) EnabledVideoIDs(ctx context.Context, userID uint32) ([]uint32, error) {
	return s.ids(ctx, `
		SELECT uhv.video_id FROM user_has_video uhv
		INNER JOIN videos v ON v.id = uhv.video_id AND v.disabled = 0
		WHERE uhv.user_id = ? ORDER BY uhv.video_id`, userID)
}

// AllVideoIDs lists every enabled video.
func (s *Store) AllVideoIDs(ctx context.Context) ([]uint32, error) {
	return s.ids(ctx, `SELECT id FROM videos WHERE disabled = 0 ORDER BY id`)
}

// DisableVideo stops a video from being selected again.
func (s *Store) DisableVideo(ctx context.Context, id uint32) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE videos SET disabled = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("disable video: %w", err)
	}
	return nil
}

func (s *Store) ids(ctx context.Context, query string, args ...any) ([]uint32, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint32
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
