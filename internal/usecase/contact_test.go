package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/storynest/internal/domain"
	"github.com/storynest/storynest/internal/infra/store"
)

func TestSendContact(t *testing.T) {
	mem := store.NewMemory()
	u := NewContactUsecase(mem, nil)
	ctx := context.Background()

	id, err := u.Send(ctx, domain.ContactMessage{Name: " Ana ", Email: "ana@example.com", Message: "Love it"})
	require.NoError(t, err)

	rec, err := mem.Get(ctx, domain.CollectionContacts, id)
	require.NoError(t, err)
	assert.Equal(t, "Ana", rec.String("name"))
	assert.Equal(t, domain.ContactStatusNew, rec.String("status"))
	assert.NotNil(t, rec.Fields[domain.FieldCreatedAt])

	_, err = u.Send(ctx, domain.ContactMessage{Name: "Ana", Email: "ana@example.com", Message: "  "})
	var verr domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSendContactStoreFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewContactUsecase(store.NewMemory(), nil).Send(ctx, domain.ContactMessage{Message: "hi"})
	assert.ErrorIs(t, err, domain.ErrCancelled)
}
