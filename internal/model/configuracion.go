package model

import "time"

// Claves of runtime business settings, read at call time.
const (
	ConfigPrefijoFactura   = "factura.prefijo"
	ConfigSiguienteNumero  = "factura.siguiente_numero"
	ConfigTasaImpuesto     = "factura.tasa_impuesto"
	ConfigVentanaAnulacion = "factura.ventana_anulacion_dias"
)

type Configuracion struct {
	Clave     string `gorm:"type:varchar(60);primaryKey"`
	Valor     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (Configuracion) TableName() string { return "configuraciones" }
