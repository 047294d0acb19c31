package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/KamdynS/go-swarm/chess"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Sale is one order line of the demo sales data.
type Sale struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	OrderDate time.Time `json:"order_date" gorm:"index;not null"`
	Region    string    `json:"region" gorm:"index;not null"`
	Product   string    `json:"product" gorm:"not null"`
	Category  string    `json:"category" gorm:"not null"`
	Units     int       `json:"units" gorm:"not null"`
	UnitPrice float64   `json:"unit_price" gorm:"not null"`
}

// GameRecord is a finished chess game.
type GameRecord struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Result    string         `json:"result" gorm:"not null"` // 1-0, 0-1, 1/2-1/2 or *
	Method    string         `json:"method"`
	Summary   string         `json:"summary"`
	Moves     datatypes.JSON `json:"moves"`
	Plies     int            `json:"plies"`
	FinalFEN  string         `json:"final_fen"`
	CreatedAt time.Time      `json:"created_at"`
}

// BeforeCreate assigns the id.
func (g *GameRecord) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// SaveGame archives a finished game.
func (db *DB) SaveGame(ctx context.Context, rec chess.Record) error {
	moves, err := json.Marshal(rec.Moves)
	if err != nil {
		return err
	}
	row := &GameRecord{
		Result:   rec.Result,
		Method:   rec.Method,
		Summary:  rec.Summary,
		Moves:    datatypes.JSON(moves),
		Plies:    len(rec.Moves),
		FinalFEN: rec.FinalFEN,
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("save game: %w", err)
	}
	return nil
}

// RecentGames returns the latest archived games, newest first.
func (db *DB) RecentGames(ctx context.Context, limit int) ([]GameRecord, error) {
	var games []GameRecord
	err := db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&games).Error
	return games, err
}

var _ chess.Archive = (*DB)(nil)

var (
	seedRegions  = []string{"North", "South", "East", "West"}
	seedProducts = []struct {
		name, category string
		price          float64
	}{
		{"Laptop", "Electronics", 1200},
		{"Monitor", "Electronics", 300},
		{"Desk", "Furniture", 450},
		{"Chair", "Furniture", 150},
		{"Notebook", "Office Supplies", 5},
		{"Pen Pack", "Office Supplies", 12},
	}
)

// Seed fills the sales table with deterministic demo data. It is a no-op
// when sales already exist.
func (db *DB) Seed(ctx context.Context) error {
	var count int64
	if err := db.WithContext(ctx).Model(&Sale{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count sales: %w", err)
	}
	if count > 0 {
		return nil
	}
	sales := SeedSales()
	if err := db.WithContext(ctx).CreateInBatches(sales, 100).Error; err != nil {
		return fmt.Errorf("seed sales: %w", err)
	}
	return nil
}

// SeedSales generates one order per region and product for each month of 2024.
func SeedSales() []Sale {
	var out []Sale
	for month := 1; month <= 12; month++ {
		for ri, region := range seedRegions {
			for pi, p := range seedProducts {
				units := 1 + (month*7+ri*5+pi*3)%20
				out = append(out, Sale{
					OrderDate: time.Date(2024, time.Month(month), 1+(ri*7+pi)%28, 0, 0, 0, 0, time.UTC),
					Region:    region,
					Product:   p.name,
					Category:  p.category,
					Units:     units,
					UnitPrice: p.price,
				})
			}
		}
	}
	return out
}
