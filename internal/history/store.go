// Package history persists finished matches and exports their shot journals.
package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"battleship/internal/session"
)

// MatchRecord is one finished game as seen by one side
type MatchRecord struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	SessionID  string       `json:"session_id" gorm:"uniqueIndex;size:32"`
	Role       string       `json:"role" gorm:"size:10"`
	Outcome    string       `json:"outcome" gorm:"size:20;index"`
	Message    string       `json:"message" gorm:"size:255"`
	Peer       string       `json:"peer" gorm:"size:64"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Shots      []ShotRecord `json:"shots" gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ShotRecord is one journal entry of a match
type ShotRecord struct {
	ID      uint      `json:"id" gorm:"primaryKey"`
	MatchID uint      `json:"match_id" gorm:"index"`
	Seq     int       `json:"seq"`
	By      string    `json:"by" gorm:"size:10"`
	Label   string    `json:"label" gorm:"size:16"`
	X       int       `json:"x"`
	Y       int       `json:"y"`
	Result  string    `json:"result" gorm:"size:10"`
	At      time.Time `json:"at"`
}

// FromEvent converts a finished event into a record
func FromEvent(e session.Event) MatchRecord {
	m := MatchRecord{
		SessionID:  e.SessionID,
		Role:       string(e.Role),
		Outcome:    string(e.Outcome),
		Message:    e.Message,
		Peer:       e.Peer,
		Width:      e.Width,
		Height:     e.Height,
		StartedAt:  e.StartedAt,
		FinishedAt: e.At,
	}
	m.Shots = shotRecords(e.Shots)
	return m
}

// FromSnapshot converts a live session view into a record. Outcome stays empty
// until the game is over.
func FromSnapshot(s session.Snapshot) MatchRecord {
	m := MatchRecord{
		SessionID: s.SessionID,
		Role:      string(s.Role),
		Outcome:   string(s.Outcome),
		Message:   s.Message,
		Peer:      s.Peer,
		Width:     s.Width,
		Height:    s.Height,
		StartedAt: s.StartedAt,
	}
	m.Shots = shotRecords(s.Shots)
	return m
}

func shotRecords(shots []session.Shot) []ShotRecord {
	records := make([]ShotRecord, 0, len(shots))
	for _, s := range shots {
		records = append(records, ShotRecord{
			Seq:    s.Seq,
			By:     string(s.By),
			Label:  s.Label,
			X:      s.Target.X,
			Y:      s.Target.Y,
			Result: s.Result,
			At:     s.At,
		})
	}
	return records
}

// Store keeps match history in a gorm database
type Store struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the history tables
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewStore(db)
}

// NewStore wraps an open database and migrates the history tables
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&MatchRecord{}, &ShotRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveMatch stores m with its shots
func (s *Store) SaveMatch(ctx context.Context, m *MatchRecord) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to save match %s: %w", m.SessionID, err)
	}
	return nil
}

// Recent returns the latest matches, newest first, without shots
func (s *Store) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var matches []MatchRecord
	err := s.db.WithContext(ctx).Order("finished_at DESC").Limit(limit).Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

// Match returns one match with its shots in journal order
func (s *Store) Match(ctx context.Context, sessionID string) (*MatchRecord, error) {
	var m MatchRecord
	err := s.db.WithContext(ctx).
		Preload("Shots", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("session_id = ?", sessionID).
		First(&m).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", sessionID, err)
	}
	return &m, nil
}

// Close releases the database connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Name() string { return "history" }

// Handle saves finished matches and ignores everything else
func (s *Store) Handle(ctx context.Context, e session.Event) error {
	if e.Kind != session.EventFinished {
		return nil
	}
	m := FromEvent(e)
	return s.SaveMatch(ctx, &m)
}
