package mongodb

import (
	"context"
	"fmt"
	"time"

	"gotrike/internal/models"
	"gotrike/internal/repositories/interfaces"
	"gotrike/internal/services"
	"gotrike/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type rideRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewRideRepository(db *mongo.Database, cache services.CacheService) interfaces.RideRepository {
	return &rideRepository{
		collection: db.Collection("rides"),
		cache:      cache,
	}
}

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	ride.ID = primitive.NewObjectID()
	now := time.Now()
	ride.CreatedAt = now
	ride.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, ride)
	if err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}

	if ride.Status == models.RideStatusPending {
		r.cacheRide(ctx, ride)
	}

	return nil
}

func (r *rideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	if ride := r.getRideFromCache(ctx, id.Hex()); ride != nil {
		return ride, nil
	}

	var ride models.Ride
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}

	if !ride.Status.IsTerminal() {
		r.cacheRide(ctx, &ride)
	}

	return &ride, nil
}

// AcceptPending is the single acceptance entry point for the accept race: the
// status check and the driver write happen in one FindOneAndUpdate, so of any
// number of concurrent accept attempts exactly one observes status=pending.
func (r *rideRepository) AcceptPending(ctx context.Context, id, driverID primitive.ObjectID) (*models.Ride, error) {
	now := time.Now()

	filter := bson.M{
		"_id":    id,
		"status": models.RideStatusPending,
	}
	update := bson.M{
		"$set": bson.M{
			"status":      models.RideStatusAccepted,
			"driver_id":   driverID,
			"accepted_at": now,
			"updated_at":  now,
		},
	}

	var ride models.Ride
	err := r.collection.FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrPreconditionFailed
		}
		return nil, fmt.Errorf("failed to accept ride: %w", err)
	}

	r.invalidateRideCache(ctx, id.Hex())

	return &ride, nil
}

func (r *rideRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.RideStatus) (*models.Ride, error) {
	now := time.Now()

	set := bson.M{
		"status":     to,
		"updated_at": now,
	}
	switch to {
	case models.RideStatusInProgress:
		set["started_at"] = now
	case models.RideStatusCompleted:
		set["completed_at"] = now
	}

	var ride models.Ride
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrPreconditionFailed
		}
		return nil, fmt.Errorf("failed to transition ride status: %w", err)
	}

	r.invalidateRideCache(ctx, id.Hex())

	return &ride, nil
}

func (r *rideRepository) CancelFrom(ctx context.Context, id primitive.ObjectID, allowedFrom []models.RideStatus, cancelledBy models.CancelParty, reason string) (*models.Ride, error) {
	now := time.Now()

	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": allowedFrom},
	}
	update := bson.M{
		"$set": bson.M{
			"status":              models.RideStatusCancelled,
			"cancelled_by":        cancelledBy,
			"cancellation_reason": reason,
			"cancelled_at":        now,
			"updated_at":          now,
		},
	}

	var ride models.Ride
	err := r.collection.FindOneAndUpdate(
		ctx,
		filter,
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, interfaces.ErrPreconditionFailed
		}
		return nil, fmt.Errorf("failed to cancel ride: %w", err)
	}

	r.invalidateRideCache(ctx, id.Hex())

	return &ride, nil
}

func (r *rideRepository) UpdateRoute(ctx context.Context, id primitive.ObjectID, route *models.Route) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"route":      route,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update ride route: %w", err)
	}

	r.invalidateRideCache(ctx, id.Hex())

	return nil
}

func (r *rideRepository) List(ctx context.Context, filter interfaces.RideFilter, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.TodaGroup != "" {
		query["toda_group"] = filter.TodaGroup
	}
	if !filter.RiderID.IsZero() {
		query["rider_id"] = filter.RiderID
	}
	if !filter.DriverID.IsZero() {
		query["driver_id"] = filter.DriverID
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count rides: %w", err)
	}

	cursor, err := r.collection.Find(ctx, query, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find rides: %w", err)
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	for cursor.Next(ctx) {
		var ride models.Ride
		if err := cursor.Decode(&ride); err != nil {
			return nil, 0, fmt.Errorf("failed to decode ride: %w", err)
		}
		rides = append(rides, &ride)
	}

	return rides, total, nil
}

// Cache operations
func (r *rideRepository) cacheRide(ctx context.Context, ride *models.Ride) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("ride:%s", ride.ID.Hex())
		r.cache.Set(ctx, cacheKey, ride, 15*time.Minute)
	}
}

func (r *rideRepository) getRideFromCache(ctx context.Context, rideID string) *models.Ride {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf("ride:%s", rideID)
	var ride models.Ride
	err := r.cache.Get(ctx, cacheKey, &ride)
	if err != nil {
		return nil
	}

	return &ride
}

func (r *rideRepository) invalidateRideCache(ctx context.Context, rideID string) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("ride:%s", rideID)
		r.cache.Delete(ctx, cacheKey)
	}
}
