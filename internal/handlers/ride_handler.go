package handlers

import (
	"gotrike/internal/models"
	"gotrike/internal/repositories/interfaces"
	"gotrike/internal/services"
	"gotrike/internal/utils"
	"gotrike/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideHandler struct {
	rideService services.RideService
}

func NewRideHandler(rideService services.RideService) *RideHandler {
	return &RideHandler{
		rideService: rideService,
	}
}

// BookRide creates a pending ride for the authenticated rider
func (h *RideHandler) BookRide(c *gin.Context) {
	var request validators.BookRideRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateBookRideRequest(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Fields())
		return
	}

	riderID, ok := currentUserID(c)
	if !ok {
		return
	}

	ride, err := h.rideService.BookRide(c.Request.Context(), &services.BookRideInput{
		RiderID:     riderID,
		PickupName:  request.PickupLocation.Name,
		PickupLat:   request.PickupLocation.Latitude,
		PickupLon:   request.PickupLocation.Longitude,
		DropoffName: request.DropoffLocation.Name,
		DropoffLat:  request.DropoffLocation.Latitude,
		DropoffLon:  request.DropoffLocation.Longitude,
		DistanceKM:  request.DistanceKM,
		Fare:        request.Fare,
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Ride booked successfully", ride)
}

// AcceptRide assigns the authenticated driver to a pending ride. Exactly one
// of any number of concurrent accepts wins; the rest get a conflict.
func (h *RideHandler) AcceptRide(c *gin.Context) {
	rideID, ok := pathObjectID(c, "id", "Invalid ride ID")
	if !ok {
		return
	}

	driverID, ok := currentUserID(c)
	if !ok {
		return
	}

	ride, err := h.rideService.AssignDriver(c.Request.Context(), rideID, driverID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride accepted successfully", ride)
}

// UpdateRideStatus moves an accepted ride forward (in_progress, completed)
func (h *RideHandler) UpdateRideStatus(c *gin.Context) {
	rideID, ok := pathObjectID(c, "id", "Invalid ride ID")
	if !ok {
		return
	}

	var request validators.RideStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Fields())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ride, err := h.rideService.AdvanceStatus(c.Request.Context(), rideID, models.RideStatus(request.Status), userID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride status updated successfully", ride)
}

// CancelRide cancels a pending or accepted ride on behalf of the caller
func (h *RideHandler) CancelRide(c *gin.Context) {
	rideID, ok := pathObjectID(c, "id", "Invalid ride ID")
	if !ok {
		return
	}

	var request validators.RideCancelRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateStruct(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Fields())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ride, err := h.rideService.Cancel(c.Request.Context(), rideID, userID, request.Reason)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride cancelled successfully", ride)
}

// GetRide retrieves one ride by ID
func (h *RideHandler) GetRide(c *gin.Context) {
	rideID, ok := pathObjectID(c, "id", "Invalid ride ID")
	if !ok {
		return
	}

	ride, err := h.rideService.GetRide(c.Request.Context(), rideID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride retrieved successfully", ride)
}

// ListRides lists rides filtered by status, TODA group and party
func (h *RideHandler) ListRides(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := interfaces.RideFilter{
		Status:    models.RideStatus(c.Query("status")),
		TodaGroup: c.Query("toda_group"),
	}
	if riderID, err := primitive.ObjectIDFromHex(c.Query("rider_id")); err == nil {
		filter.RiderID = riderID
	}
	if driverID, err := primitive.ObjectIDFromHex(c.Query("driver_id")); err == nil {
		filter.DriverID = driverID
	}

	rides, total, err := h.rideService.ListRides(c.Request.Context(), filter, params)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Rides retrieved successfully", rides, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	})
}
