package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	incdomain "plate-registry/internal/domain/incident"
	"plate-registry/internal/domain/plate"
	"plate-registry/internal/ocr"
	"plate-registry/internal/service"
)

type Handler struct {
	registry    *service.RegistryService
	recognition *service.RecognitionService
	incidents   *service.IncidentService
	log         zerolog.Logger
}

func NewHandler(
	registry *service.RegistryService,
	recognition *service.RecognitionService,
	incidents *service.IncidentService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		registry:    registry,
		recognition: recognition,
		incidents:   incidents,
		log:         log,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/recognitions", h.recognizeImage)
		api.GET("/vehicles/plate/:plate", h.lookupPlate)

		api.POST("/persons", h.createPerson)
		api.GET("/persons", h.listPersons)
		api.GET("/persons/:id", h.getPerson)
		api.PUT("/persons/:id", h.updatePerson)
		api.DELETE("/persons/:id", h.deletePerson)

		api.POST("/vehicles", h.createVehicle)
		api.GET("/vehicles", h.listVehicles)
		api.GET("/vehicles/:id", h.getVehicle)
		api.PUT("/vehicles/:id", h.updateVehicle)
		api.DELETE("/vehicles/:id", h.deleteVehicle)

		api.POST("/incidents", h.createIncident)
		api.GET("/incidents", h.listIncidents)
		api.GET("/incidents/:id", h.getIncident)
		api.PATCH("/incidents/:id/status", h.updateIncidentStatus)
		api.DELETE("/incidents/:id", h.deleteIncident)

		api.POST("/profiles", h.createProfile)
		api.GET("/profiles", h.listProfiles)
		api.GET("/profiles/:id", h.getProfile)
		api.PUT("/profiles/:id", h.updateProfile)
		api.DELETE("/profiles/:id", h.deleteProfile)
	}
}

func (h *Handler) recognizeImage(c *gin.Context) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("image file is required"))
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("failed to read image"))
		return
	}

	result, err := h.recognition.ResolveImage(c.Request.Context(), imageBytes)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if !result.Registered {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "plate text resolved, but no matching registration",
			"plate": result.Plate,
		})
		return
	}
	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) lookupPlate(c *gin.Context) {
	match, err := h.registry.FindByPlate(c.Request.Context(), c.Param("plate"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(match))
}

func (h *Handler) createPerson(c *gin.Context) {
	var input service.PersonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	person, err := h.registry.CreatePerson(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(person))
}

func (h *Handler) listPersons(c *gin.Context) {
	persons, err := h.registry.ListPersons(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(persons))
}

func (h *Handler) getPerson(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	person, err := h.registry.GetPerson(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(person))
}

func (h *Handler) updatePerson(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var input service.PersonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	person, err := h.registry.UpdatePerson(c.Request.Context(), id, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(person))
}

func (h *Handler) deletePerson(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.registry.DeletePerson(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) createVehicle(c *gin.Context) {
	var input service.VehicleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	vehicle, err := h.registry.CreateVehicle(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(vehicle))
}

func (h *Handler) listVehicles(c *gin.Context) {
	vehicles, err := h.registry.ListVehicles(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(vehicles))
}

func (h *Handler) getVehicle(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	vehicle, err := h.registry.GetVehicle(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(vehicle))
}

func (h *Handler) updateVehicle(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var input service.VehicleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	vehicle, err := h.registry.UpdateVehicle(c.Request.Context(), id, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(vehicle))
}

func (h *Handler) deleteVehicle(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteVehicle(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) createIncident(c *gin.Context) {
	var input service.IncidentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	inc, err := h.incidents.Report(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(inc))
}

func (h *Handler) listIncidents(c *gin.Context) {
	personID, err := strconv.ParseInt(c.Query("person_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("person_id parameter is required"))
		return
	}

	incidents, err := h.incidents.List(c.Request.Context(), personID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(incidents))
}

func (h *Handler) getIncident(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	inc, err := h.incidents.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(inc))
}

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) updateIncidentStatus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.incidents.ApplyStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) deleteIncident(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.incidents.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) createProfile(c *gin.Context) {
	var input service.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	profile, err := h.registry.CreateProfile(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(profile))
}

func (h *Handler) listProfiles(c *gin.Context) {
	profiles, err := h.registry.ListProfiles(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(profiles))
}

func (h *Handler) getProfile(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	profile, err := h.registry.GetProfile(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(profile))
}

func (h *Handler) updateProfile(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var input service.ProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	profile, err := h.registry.UpdateProfile(c.Request.Context(), id, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(profile))
}

func (h *Handler) deleteProfile(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteProfile(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, ocr.ErrImageDecode),
		errors.Is(err, ocr.ErrNoTextDetected),
		errors.Is(err, plate.ErrNoCandidates):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, incdomain.ErrIncomplete):
		h.log.Error().Err(err).Msg("incident integrity error")
		c.JSON(http.StatusInternalServerError, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
