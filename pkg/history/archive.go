package history

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"frostgreet/internal/util"
	"frostgreet/pkg/domain"
)

// TurnModel is the archived form of a conversation turn.
type TurnModel struct {
	ID          string         `gorm:"primaryKey"`
	SessionID   string         `gorm:"not null;index"`
	Kind        string         `gorm:"not null"`
	TurnType    string         `gorm:"not null"`
	RequestText string         `gorm:"not null"`
	Output      datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null;index"`
}

// Archive persists completed turns to Postgres so greetings survive the
// process. It is an optional side channel: turn results never depend on it.
type Archive struct {
	db *gorm.DB
}

// NewArchive opens the database and runs auto-migration.
func NewArchive(dsn string) (*Archive, error) {
	if dsn == "" {
		return nil, fmt.Errorf("archive database URL required")
	}
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	if err := db.AutoMigrate(&TurnModel{}); err != nil {
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return &Archive{db: db}, nil
}

// SaveTurn archives one turn under its conversation session id.
func (a *Archive) SaveTurn(sessionID string, kind domain.Kind, entry domain.HistoryEntry) error {
	output, err := json.Marshal(entry.Output)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	model := TurnModel{
		ID:          util.NewID(),
		SessionID:   sessionID,
		Kind:        string(kind),
		TurnType:    string(entry.Type),
		RequestText: entry.Request,
		Output:      output,
		CreatedAt:   entry.CreatedAt,
	}
	if err := a.db.Create(&model).Error; err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

// ListTurns returns the archived turns of a conversation in creation order.
func (a *Archive) ListTurns(sessionID string) ([]domain.HistoryEntry, error) {
	var models []TurnModel
	if err := a.db.Where("session_id = ?", sessionID).Order("created_at asc").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	entries := make([]domain.HistoryEntry, 0, len(models))
	for _, m := range models {
		var output domain.Output
		if err := json.Unmarshal(m.Output, &output); err != nil {
			return nil, fmt.Errorf("decode archived output: %w", err)
		}
		entries = append(entries, domain.HistoryEntry{
			Type:      domain.TurnType(m.TurnType),
			Request:   m.RequestText,
			Output:    output,
			CreatedAt: m.CreatedAt,
		})
	}
	return entries, nil
}
