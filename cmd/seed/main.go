// Seeds the reference rows the ledger needs before the first sale: sedes,
// payment methods and billing settings. Outside production it also prints an
// administrator token for local testing, since tokens are normally issued by
// the identity service.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/config"
	"github.com/alejo0789/agenda-ia-sub000/internal/infra"
	"github.com/alejo0789/agenda-ia-sub000/internal/middleware"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.AutoMigrate = true

	db, err := infra.NewDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	if err := db.Transaction(seed); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Msg("seed completed")

	if cfg.Env != "production" {
		token, err := tokenDesarrollo(cfg.JWTSecret)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to sign token")
		}
		fmt.Println(token)
	}
}

func seed(tx *gorm.DB) error {
	sedes := []model.Sede{
		{ID: 1, Nombre: "Principal", EsDevolucion: true, Activa: true},
		{ID: 2, Nombre: "Sucursal Norte", Activa: true},
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&sedes).Error; err != nil {
		return err
	}

	metodos := []model.MetodoPago{
		{Codigo: "efectivo", Nombre: "Efectivo", EsEfectivo: true, Activo: true},
		{Codigo: "tarjeta_debito", Nombre: "Tarjeta débito", RequiereReferencia: true, Activo: true},
		{Codigo: "tarjeta_credito", Nombre: "Tarjeta crédito", RequiereReferencia: true, Activo: true},
		{Codigo: "transferencia", Nombre: "Transferencia", RequiereReferencia: true, Activo: true},
	}
	if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "codigo"}}, DoNothing: true}).
		Create(&metodos).Error; err != nil {
		return err
	}

	ajustes := []model.Configuracion{
		{Clave: model.ConfigPrefijoFactura, Valor: "FV"},
		{Clave: model.ConfigSiguienteNumero, Valor: "1"},
		{Clave: model.ConfigTasaImpuesto, Valor: "19"},
		{Clave: model.ConfigVentanaAnulacion, Valor: "1"},
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ajustes).Error
}

func tokenDesarrollo(secret string) (string, error) {
	claims := middleware.JWTClaims{
		UserID:   uuid.NewString(),
		Username: "admin",
		Rol:      middleware.RolAdministrador,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
