package bot

import (
	"context"
	"time"

	"callcentre-bot/internal/db"
	"callcentre-bot/internal/models"
)

// storage is the slice of the data layer the Telegram surface consumes.
// Satisfied by *db.DB, faked in tests.
type storage interface {
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, statuses []models.Status, cities []string, limit int) ([]models.Order, error)
	ListMasterOrders(ctx context.Context, masterID int64, statuses []models.Status, cities []string, limit int) ([]models.Order, error)
	SearchOrders(ctx context.Context, query string, cities []string, limit int) ([]models.Order, error)

	GetMaster(ctx context.Context, id int64) (*models.Master, error)
	GetMasterByTgID(ctx context.Context, tgID int64) (*models.Master, error)
	ListActiveMasters(ctx context.Context, cities []string, limit, offset int) ([]models.Master, error)
	CountActiveMasters(ctx context.Context, cities []string) (int, error)
	SearchMastersByName(ctx context.Context, name string, cities []string) ([]models.Master, error)
	CreateMaster(ctx context.Context, m *models.Master) (int64, error)
	UpdateMasterStatus(ctx context.Context, id int64, statusWork string) error
	UpdateMasterContacts(ctx context.Context, id int64, chatID, tgID *int64) error

	GetDirectorByTgID(ctx context.Context, tgID int64) (*models.Director, error)

	AddCashEntry(ctx context.Context, e *models.CashEntry) (int64, error)
	CashBalance(ctx context.Context, city string) (float64, error)
	CashHistory(ctx context.Context, cities []string, from, to time.Time) ([]models.CashEntry, error)

	ReportByCity(ctx context.Context, cities []string, from, to time.Time) ([]db.CityReport, error)
	ReportByMasters(ctx context.Context, cities []string, from, to time.Time) ([]db.MasterReport, error)
	GetMasterStats(ctx context.Context, masterID int64) (*db.MasterStats, error)
}
