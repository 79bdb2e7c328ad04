package course

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Put(ctx context.Context, c Course) error {
	sj, err := json.Marshal(c.Structure)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO courses (id,title,online,structure_json,created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, online=EXCLUDED.online, structure_json=EXCLUDED.structure_json`,
		c.ID, c.Title, c.Online, string(sj), time.Now().Unix())
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,online,structure_json,created_at FROM courses WHERE id=$1`, id)
	var c Course
	var sjson string
	if err := row.Scan(&c.ID, &c.Title, &c.Online, &sjson, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Course{}, apperr.NewNotFoundError("course %s not found", id)
		}
		return Course{}, err
	}
	if sjson != "" {
		if err := json.Unmarshal([]byte(sjson), &c.Structure); err != nil {
			return Course{}, err
		}
	}
	return c, nil
}
