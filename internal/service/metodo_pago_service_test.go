package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
)

func TestMetodoPago_ValidarReferencia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, ref := range []*string{nil, strPtr(""), strPtr("   "), strPtr("\t\n")} {
		_, err := f.metodos.Validar(ctx, f.tarjeta.ID, ref)
		assertKind(t, err, apierror.KindValidation)
	}

	m, err := f.metodos.Validar(ctx, f.tarjeta.ID, strPtr("AUT-778"))
	require.NoError(t, err)
	assert.Equal(t, "tarjeta_debito", m.Codigo)

	_, err = f.metodos.Validar(ctx, f.efectivo.ID, nil)
	assert.NoError(t, err, "efectivo no pide referencia")

	_, err = f.metodos.Validar(ctx, uuid.New(), nil)
	assertKind(t, err, apierror.KindNotFound)
}
