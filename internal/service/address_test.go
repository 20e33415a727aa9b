package service

import (
	"context"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAddress() *model.Address {
	return &model.Address{
		FirstName: "Asha",
		LastName:  "Rao",
		Email:     "asha@example.com",
		Street:    "12 MG Road",
		City:      "Bengaluru",
		State:     "KA",
		Zipcode:   "560001",
		Country:   "IN",
		Phone:     "+91 98450 00000",
	}
}

func TestAddressService_AddAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewAddressService(repository.NewAddressRepository(db))
	ctx := context.Background()

	input := validAddress()
	input.UserID = "someone-else"

	created, err := svc.Add(ctx, "user1", input)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "user1", created.UserID)

	list, err := svc.List(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	others, err := svc.List(ctx, "user2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestAddressService_AddRejectsIncomplete(t *testing.T) {
	db := newTestDB(t)
	svc := NewAddressService(repository.NewAddressRepository(db))
	ctx := context.Background()

	missingCity := validAddress()
	missingCity.City = "  "

	_, err := svc.Add(ctx, "user1", missingCity)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorContains(t, err, "city")

	_, err = svc.Add(ctx, "user1", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Add(ctx, "", validAddress())
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.List(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
