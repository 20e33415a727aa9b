package handler

import (
	"net/http"
	"storefront-api/internal/dto"
	"storefront-api/internal/service"

	"github.com/labstack/echo/v4"
)

type AddressHandler struct {
	addressService service.AddressService
}

func NewAddressHandler(addressService service.AddressService) *AddressHandler {
	return &AddressHandler{
		addressService: addressService,
	}
}

func (h *AddressHandler) AddAddress(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	var req dto.AddAddressRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, bindError(err))
	}

	if _, err := h.addressService.Add(ctx, userID, req.Address); err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, &dto.Response{
		Success: true,
		Message: "Address added successfully",
	})
}

func (h *AddressHandler) GetAddresses(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err)
	}

	addresses, err := h.addressService.List(ctx, userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, &dto.AddressesResponse{
		Success:   true,
		Addresses: addresses,
	})
}
