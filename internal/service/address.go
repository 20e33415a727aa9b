package service

import (
	"context"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"strings"

	"github.com/google/uuid"
)

type AddressService interface {
	Add(ctx context.Context, userID string, address *model.Address) (*model.Address, error)
	List(ctx context.Context, userID string) ([]*model.Address, error)
}

type addressServiceImpl struct {
	addressRepo repository.AddressRepository
}

func NewAddressService(addressRepo repository.AddressRepository) AddressService {
	return &addressServiceImpl{
		addressRepo: addressRepo,
	}
}

func (s *addressServiceImpl) Add(ctx context.Context, userID string, address *model.Address) (*model.Address, error) {
	if userID == "" {
		return nil, invalidInput("user is required")
	}
	if address == nil {
		return nil, invalidInput("address is required")
	}

	required := map[string]string{
		"firstName": address.FirstName,
		"lastName":  address.LastName,
		"email":     address.Email,
		"street":    address.Street,
		"city":      address.City,
		"state":     address.State,
		"zipcode":   address.Zipcode,
		"country":   address.Country,
		"phone":     address.Phone,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return nil, invalidInput(field + " is required")
		}
	}

	address.ID = uuid.NewString()
	address.UserID = userID

	if err := s.addressRepo.Create(ctx, address); err != nil {
		return nil, persistence("store address", err)
	}
	return address, nil
}

func (s *addressServiceImpl) List(ctx context.Context, userID string) ([]*model.Address, error) {
	if userID == "" {
		return nil, invalidInput("user is required")
	}

	addresses, err := s.addressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, persistence("list addresses", err)
	}
	return addresses, nil
}
