package database

import (
	"database/sql"

	_ "github.com/lib/pq"
)

type PgBattleRepository struct {
	conn *sql.DB
}

func NewPgBattleRepository(dsn string) (*PgBattleRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgBattleRepository{conn: db}, nil
}

func (db *PgBattleRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgBattleRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
