package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/diillson/vehicle-registry/internal/app/vehicle"
	apperrors "github.com/diillson/vehicle-registry/pkg/errors"
	"github.com/diillson/vehicle-registry/pkg/logging"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgVehicleFields  = "Nombre y placa son obligatorios"
	msgVehicleBody    = "Cuerpo de la solicitud inválido"
	msgVehicleDeleted = "Vehículo eliminado"
)

// VehicleHandler expõe o CRUD de veículos
type VehicleHandler struct {
	service *vehicle.Service
	logger  *logging.ContextLogger
}

// NewVehicleHandler cria o handler de veículos
func NewVehicleHandler(service *vehicle.Service, logger *zap.Logger) *VehicleHandler {
	return &VehicleHandler{
		service: service,
		logger:  logging.NewContextLogger(logger),
	}
}

type createVehicleRequest struct {
	Name      string  `json:"name"`
	Plate     string  `json:"plate"`
	Type      string  `json:"type"`
	FacePhoto *string `json:"facePhoto"`
}

// updateVehicleRequest usa ponteiros para distinguir campo ausente de vazio
type updateVehicleRequest struct {
	Name      *string `json:"name"`
	Plate     *string `json:"plate"`
	Type      *string `json:"type"`
	FacePhoto *string `json:"facePhoto"`
}

// List devolve todos os veículos
func (h *VehicleHandler) List(c *gin.Context) {
	vehicles, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

// Create cadastra um veículo
func (h *VehicleHandler) Create(c *gin.Context) {
	var req createVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bodyError(err, apperrors.Validation(msgVehicleFields)))
		return
	}

	v, err := h.service.Create(c.Request.Context(), vehicle.CreateInput{
		Name:      req.Name,
		Plate:     req.Plate,
		Type:      req.Type,
		FacePhoto: req.FacePhoto,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, v)
}

// Update aplica uma atualização parcial
func (h *VehicleHandler) Update(c *gin.Context) {
	// O id é validado antes do corpo
	if _, err := vehicle.ParseID(c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req updateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, h.logger, bodyError(err, apperrors.Validation(msgVehicleBody)))
		return
	}

	v, err := h.service.Update(c.Request.Context(), c.Param("id"), vehicle.UpdateInput{
		Name:      req.Name,
		Plate:     req.Plate,
		Type:      req.Type,
		FacePhoto: req.FacePhoto,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, v)
}

// Delete remove um veículo
func (h *VehicleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgVehicleDeleted})
}
