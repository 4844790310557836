package service

import (
	"context"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemLinea is the catalog item an invoice line sells. The only
// implementations are itemServicio and itemProducto; switches over it are
// exhaustive.
type ItemLinea interface {
	Tipo() model.TipoLinea
	ID() uuid.UUID
	Nombre() string
	Precio() decimal.Decimal
	Activo() bool
	esItemLinea()
}

type itemServicio struct{ s *model.Servicio }

func (i itemServicio) Tipo() model.TipoLinea   { return model.LineaServicio }
func (i itemServicio) ID() uuid.UUID           { return i.s.ID }
func (i itemServicio) Nombre() string          { return i.s.Nombre }
func (i itemServicio) Precio() decimal.Decimal { return i.s.Precio }
func (i itemServicio) Activo() bool            { return i.s.Activo }
func (itemServicio) esItemLinea()              {}

type itemProducto struct{ p *model.Producto }

func (i itemProducto) Tipo() model.TipoLinea   { return model.LineaProducto }
func (i itemProducto) ID() uuid.UUID           { return i.p.ID }
func (i itemProducto) Nombre() string          { return i.p.Nombre }
func (i itemProducto) Precio() decimal.Decimal { return i.p.PrecioVenta }
func (i itemProducto) Activo() bool            { return i.p.Activo }
func (itemProducto) esItemLinea()              {}

// ItemServicio and ItemProducto wrap catalog rows, mostly for tests and callers
// that already hold the row.
func ItemServicio(s *model.Servicio) ItemLinea { return itemServicio{s: s} }
func ItemProducto(p *model.Producto) ItemLinea { return itemProducto{p: p} }

// cargarItem resolves a line kind and id against the catalog.
func cargarItem(ctx context.Context, catalogo repository.CatalogoRepository, tipo model.TipoLinea, id uuid.UUID) (ItemLinea, error) {
	switch tipo {
	case model.LineaServicio:
		s, err := catalogo.FindServicio(ctx, id)
		if err != nil {
			return nil, noEncontrado(err, "servicio %s no encontrado", id)
		}
		return itemServicio{s: s}, nil
	case model.LineaProducto:
		p, err := catalogo.FindProducto(ctx, id)
		if err != nil {
			return nil, noEncontrado(err, "producto %s no encontrado", id)
		}
		return itemProducto{p: p}, nil
	default:
		return nil, apierror.Validation("tipo de línea inválido: %q", tipo)
	}
}
