package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	storemodel "supertrader/internal/store/model"
	"supertrader/internal/trader"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type orderJournalModel = storemodel.OrderJournalModel

const defaultListLimit = 100

// OrderRecord is a journal row as seen by readers.
type OrderRecord struct {
	ID          string              `json:"id"`
	Broker      string              `json:"broker"`
	Action      string              `json:"action"`
	Symbol      string              `json:"symbol"`
	Side        string              `json:"side,omitempty"`
	OrderType   string              `json:"order_type,omitempty"`
	Quantity    float64             `json:"quantity"`
	Price       float64             `json:"price"`
	ClientID    string              `json:"client_id,omitempty"`
	OrderID     string              `json:"order_id,omitempty"`
	Status      string              `json:"status,omitempty"`
	AvgPrice    float64             `json:"avg_price"`
	ExecutedQty float64             `json:"executed_qty"`
	Error       string              `json:"error,omitempty"`
	Report      *trader.OrderReport `json:"report,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// OrderFilter narrows ListOrders. Zero values match everything.
type OrderFilter struct {
	Broker string
	Symbol string
	Limit  int
}

// Journal persists every order action into SQLite through gorm.
type Journal struct {
	db  *gorm.DB
	now func() time.Time
}

var _ trader.Journal = (*Journal)(nil)

// Open creates or migrates the journal database at path.
func Open(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("order journal: path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&orderJournalModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Journal{db: db, now: time.Now}, nil
}

// RecordOrder appends one entry. The report, when present, is kept verbatim
// as JSON next to the flattened columns.
func (j *Journal) RecordOrder(ctx context.Context, e trader.JournalEntry) error {
	if j == nil || j.db == nil {
		return fmt.Errorf("order journal is closed")
	}
	row := orderJournalModel{
		ID:            uuid.NewString(),
		Broker:        e.Broker,
		Action:        string(e.Action),
		Symbol:        e.Request.Symbol,
		Quantity:      e.Request.Quantity,
		ClientID:      e.Request.ClientID,
		CreatedAtUnix: j.now().UnixMilli(),
	}
	if e.Request.Symbol != "" {
		row.Side = string(e.Request.Side)
		row.OrderType = string(e.Request.Price.OrderType())
		row.Price = e.Request.Price.Limit
	}
	if e.Err != nil {
		row.Error = e.Err.Error()
	}
	if r := e.Report; r != nil {
		row.OrderID = r.OrderID
		row.Status = string(r.Status)
		row.AvgPrice = r.AvgPrice
		row.ExecutedQty = r.ExecutedQty
		if row.Symbol == "" {
			row.Symbol = r.Symbol
		}
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("order journal: encode report: %w", err)
		}
		row.ReportJSON = datatypes.JSON(raw)
	}
	return j.db.WithContext(ctx).Create(&row).Error
}

// ListOrders returns the newest entries first.
func (j *Journal) ListOrders(ctx context.Context, f OrderFilter) ([]OrderRecord, error) {
	if j == nil || j.db == nil {
		return nil, fmt.Errorf("order journal is closed")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := j.db.WithContext(ctx).Model(&orderJournalModel{})
	if b := strings.TrimSpace(f.Broker); b != "" {
		q = q.Where("broker = ?", b)
	}
	if s := strings.TrimSpace(f.Symbol); s != "" {
		q = q.Where("symbol = ?", s)
	}
	var rows []orderJournalModel
	if err := q.Order("seq DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]OrderRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	j.db = nil
	return sqlDB.Close()
}

func toRecord(row orderJournalModel) (OrderRecord, error) {
	rec := OrderRecord{
		ID:          row.ID,
		Broker:      row.Broker,
		Action:      row.Action,
		Symbol:      row.Symbol,
		Side:        row.Side,
		OrderType:   row.OrderType,
		Quantity:    row.Quantity,
		Price:       row.Price,
		ClientID:    row.ClientID,
		OrderID:     row.OrderID,
		Status:      row.Status,
		AvgPrice:    row.AvgPrice,
		ExecutedQty: row.ExecutedQty,
		Error:       row.Error,
		CreatedAt:   time.UnixMilli(row.CreatedAtUnix),
	}
	if len(row.ReportJSON) > 0 {
		var rep trader.OrderReport
		if err := json.Unmarshal(row.ReportJSON, &rep); err != nil {
			return OrderRecord{}, fmt.Errorf("order journal: decode report %s: %w", row.ID, err)
		}
		rec.Report = &rep
	}
	return rec, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
