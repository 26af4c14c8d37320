// Package datastore persists golf sessions and swing sequences.
package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/screener/screener-go/internal/errors"
	"github.com/screener/screener-go/internal/logging"
)

// GolfSession is the database record for one session.
type GolfSession struct {
	ID         uint   `gorm:"primaryKey"`
	SessionID  string `gorm:"uniqueIndex"`
	GolferID   string
	StartTime  time.Time
	EndTime    *time.Time
	SwingCount int
}

// SwingSequence is the database record for one recorded swing.
type SwingSequence struct {
	ID           uint   `gorm:"primaryKey"`
	SessionID    string `gorm:"index"`
	Number       int
	InPoint      time.Time
	OutPoint     *time.Time
	Method       string
	Reason       string
	ExportStatus string
	ClipPath     string
}

// Interface abstracts the sequence/session store.
type Interface interface {
	Open() error
	Close() error
	SaveSession(s *GolfSession) error
	UpdateSession(s *GolfSession) error
	GetSession(sessionID string) (*GolfSession, error)
	SaveSequence(seq *SwingSequence) error
	UpdateSequenceExport(sessionID string, number int, status, clipPath string) error
	GetSequences(sessionID string) ([]SwingSequence, error)
	GetRecentSequences(limit int) ([]SwingSequence, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// performAutoMigration migrates the schema, wrapping failures with context.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&GolfSession{}, &SwingSequence{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", dbType).
			Build()
	}
	if debug {
		logging.ForService("datastore").Debug("database schema migrated", "db", connectionInfo)
	}
	return nil
}

// SaveSession inserts a new session row.
func (ds *DataStore) SaveSession(s *GolfSession) error {
	if err := ds.DB.Create(s).Error; err != nil {
		return dbError(err, "save session")
	}
	return nil
}

// UpdateSession updates an existing session row by its session id.
func (ds *DataStore) UpdateSession(s *GolfSession) error {
	tx := ds.DB.Model(&GolfSession{}).
		Where("session_id = ?", s.SessionID).
		Updates(map[string]any{
			"end_time":    s.EndTime,
			"swing_count": s.SwingCount,
		})
	if tx.Error != nil {
		return dbError(tx.Error, "update session")
	}
	return nil
}

// GetSession fetches one session by its session id.
func (ds *DataStore) GetSession(sessionID string) (*GolfSession, error) {
	var s GolfSession
	if err := ds.DB.Where("session_id = ?", sessionID).First(&s).Error; err != nil {
		return nil, dbError(err, "get session")
	}
	return &s, nil
}

// SaveSequence inserts a completed sequence row.
func (ds *DataStore) SaveSequence(seq *SwingSequence) error {
	if err := ds.DB.Create(seq).Error; err != nil {
		return dbError(err, "save sequence")
	}
	return nil
}

// UpdateSequenceExport updates a sequence's export status and clip path.
func (ds *DataStore) UpdateSequenceExport(sessionID string, number int, status, clipPath string) error {
	tx := ds.DB.Model(&SwingSequence{}).
		Where("session_id = ? AND number = ?", sessionID, number).
		Updates(map[string]any{
			"export_status": status,
			"clip_path":     clipPath,
		})
	if tx.Error != nil {
		return dbError(tx.Error, "update sequence export")
	}
	return nil
}

// GetSequences returns all sequences of one session, in order.
func (ds *DataStore) GetSequences(sessionID string) ([]SwingSequence, error) {
	var seqs []SwingSequence
	if err := ds.DB.Where("session_id = ?", sessionID).Order("number asc").Find(&seqs).Error; err != nil {
		return nil, dbError(err, "get sequences")
	}
	return seqs, nil
}

// GetRecentSequences returns the most recently completed sequences.
func (ds *DataStore) GetRecentSequences(limit int) ([]SwingSequence, error) {
	var seqs []SwingSequence
	if err := ds.DB.Order("id desc").Limit(limit).Find(&seqs).Error; err != nil {
		return nil, dbError(err, "get recent sequences")
	}
	return seqs, nil
}

func dbError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
