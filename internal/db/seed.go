package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/diewo77/care-meals/internal/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminEmail marks a seeded database.
const AdminEmail = "admin@example.com"

//go:embed seed.yaml
var seedYAML []byte

type fixture struct {
	Users []struct {
		Email string      `yaml:"email"`
		Name  string      `yaml:"name"`
		Role  models.Role `yaml:"role"`
	} `yaml:"users"`
	Residents []struct {
		Key                 string   `yaml:"key"`
		Name                string   `yaml:"name"`
		Room                string   `yaml:"room"`
		Table               string   `yaml:"table"`
		Station             string   `yaml:"station"`
		DietaryRestrictions []string `yaml:"dietaryRestrictions"`
		Aversions           string   `yaml:"aversions"`
		Notes               string   `yaml:"notes"`
	} `yaml:"residents"`
	Orders []struct {
		Resident    string                   `yaml:"resident"`
		MealType    models.MealType          `yaml:"mealType"`
		Status      models.OrderStatus       `yaml:"status"`
		HighCalorie bool                     `yaml:"highCalorie"`
		Aversions   string                   `yaml:"aversions"`
		Notes       string                   `yaml:"notes"`
		Breakfast   *models.BreakfastDetails `yaml:"breakfast"`
		Lunch       *models.LunchDetails     `yaml:"lunch"`
		Dinner      *models.DinnerDetails    `yaml:"dinner"`
	} `yaml:"orders"`
}

// Seed creates the baseline users, residents and today's sample orders.
// It does nothing when the admin user already exists, so it is safe to run on every start.
func Seed(ctx context.Context, db *gorm.DB, password string, log *zap.Logger) error {
	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", AdminEmail).First(&existing).Error
	if err == nil {
		log.Info("seeding skipped, data already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check seed marker: %w", err)
	}

	var fx fixture
	if err := yaml.Unmarshal(seedYAML, &fx); err != nil {
		return fmt.Errorf("parse seed fixture: %w", err)
	}

	today := models.Today()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range fx.Users {
			user := models.User{Email: u.Email, Name: u.Name, Role: u.Role}
			if err := user.SetPassword(password); err != nil {
				return err
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("create user %s: %w", u.Email, err)
			}
		}

		residents := make(map[string]uint, len(fx.Residents))
		for _, r := range fx.Residents {
			res := models.Resident{
				Name:                r.Name,
				Room:                r.Room,
				Table:               r.Table,
				Station:             r.Station,
				DietaryRestrictions: datatypes.JSONSlice[string](r.DietaryRestrictions),
				Aversions:           r.Aversions,
				Notes:               r.Notes,
			}
			if err := tx.Create(&res).Error; err != nil {
				return fmt.Errorf("create resident %s: %w", r.Name, err)
			}
			residents[r.Key] = res.ID
		}

		for i, o := range fx.Orders {
			rid, ok := residents[o.Resident]
			if !ok {
				return fmt.Errorf("order %d references unknown resident %q", i, o.Resident)
			}
			order := models.Order{
				Date:        today,
				MealType:    o.MealType,
				ResidentID:  rid,
				Status:      o.Status,
				HighCalorie: o.HighCalorie,
				Aversions:   o.Aversions,
				Notes:       o.Notes,
			}
			order.SetBreakfast(o.Breakfast)
			order.SetLunch(o.Lunch)
			order.SetDinner(o.Dinner)
			if err := tx.Create(&order).Error; err != nil {
				return fmt.Errorf("create order %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info("seeding completed",
		zap.Int("users", len(fx.Users)),
		zap.Int("residents", len(fx.Residents)),
		zap.Int("orders", len(fx.Orders)))
	return nil
}
