package services

import (
	"encoding/json"
	"errors"

	"github.com/grandebingo/bingo90-backend/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is the persistence boundary the engine writes through. The engine
// stays authoritative in memory; the store only needs atomic
// read-modify-write per call.
type Store interface {
	ListUsers() ([]models.User, error)
	SaveUser(u *models.User) error
	CreateTransaction(tx *models.Transaction) error
	SaveEvent(ev *models.GameEvent) error
	SaveCards(cards []models.Card) error
	SaveSeries(s *models.Series) error
	ClearCards() error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) ListUsers() ([]models.User, error) {
	var users []models.User
	if err := s.db.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *GormStore) SaveUser(u *models.User) error {
	return s.db.Save(u).Error
}

func (s *GormStore) CreateTransaction(tx *models.Transaction) error {
	return s.db.Create(tx).Error
}

// SaveEvent snapshots the game record, folding the in-memory drawn-balls and
// winner lists into their JSON columns.
func (s *GormStore) SaveEvent(ev *models.GameEvent) error {
	drawn, err := json.Marshal(ev.DrawnBalls)
	if err != nil {
		return err
	}
	winners, err := json.Marshal(ev.Winners)
	if err != nil {
		return err
	}
	ev.DrawnJSON = datatypes.JSON(drawn)
	ev.WinnersJSON = datatypes.JSON(winners)
	return s.db.Save(ev).Error
}

func (s *GormStore) SaveCards(cards []models.Card) error {
	if len(cards) == 0 {
		return nil
	}
	return s.db.Save(&cards).Error
}

func (s *GormStore) SaveSeries(series *models.Series) error {
	return s.db.Save(series).Error
}

func (s *GormStore) ClearCards() error {
	if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Card{}).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Series{}).Error
}
