package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "tutorbook/internal/domain/availability"
	"tutorbook/internal/domain/shared/timewindow"
)

const slotCollection = "slots"

// SlotRepository stores one document per slot. Occupancy changes are single-document
// conditional updates, so they stay atomic across instances.
type SlotRepository struct {
	col *mongo.Collection
}

func NewSlotRepository(db *mongo.Database) *SlotRepository {
	return &SlotRepository{col: db.Collection(slotCollection)}
}

func ensureSlotIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "date", Value: 1}, {Key: "start", Value: 1}}},
		{Keys: bson.D{{Key: "booking_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	return err
}

func (r *SlotRepository) ByID(ctx context.Context, id domainavailability.SlotID) (*domainavailability.TimeSlot, error) {
	var doc slotDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainavailability.ErrSlotNotFound
		}
		return nil, err
	}
	return doc.toSlot()
}

func (r *SlotRepository) Day(ctx context.Context, providerID string, date timewindow.Date) ([]domainavailability.TimeSlot, error) {
	return r.Range(ctx, providerID, date, date)
}

func (r *SlotRepository) Range(ctx context.Context, providerID string, from, to timewindow.Date) ([]domainavailability.TimeSlot, error) {
	filter := bson.M{
		"provider_id": providerID,
		"date":        bson.M{"$gte": from.String(), "$lte": to.String()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "start", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]domainavailability.TimeSlot, 0)
	for cur.Next(ctx) {
		var doc slotDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		slot, err := doc.toSlot()
		if err != nil {
			return nil, err
		}
		out = append(out, *slot)
	}
	return out, cur.Err()
}

func (r *SlotRepository) Insert(ctx context.Context, slots ...domainavailability.TimeSlot) error {
	if len(slots) == 0 {
		return nil
	}
	docs := make([]any, 0, len(slots))
	for _, s := range slots {
		docs = append(docs, newSlotDocument(s))
	}
	if _, err := r.col.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("mongo: duplicate slot id: %w", err)
		}
		return err
	}
	return nil
}

func (r *SlotRepository) DeleteIfUnchanged(ctx context.Context, snapshot domainavailability.TimeSlot) error {
	res, err := r.col.DeleteOne(ctx, bson.M{
		"_id":        string(snapshot.ID),
		"occupied":   snapshot.Occupied,
		"booking_id": snapshot.BookingID,
	})
	if err != nil {
		if isWriteConflict(err) {
			return domainavailability.ErrSlotChanged
		}
		return err
	}
	if res.DeletedCount == 1 {
		return nil
	}
	if _, err := r.ByID(ctx, snapshot.ID); err != nil {
		return err
	}
	return domainavailability.ErrSlotChanged
}

func (r *SlotRepository) Occupy(ctx context.Context, id domainavailability.SlotID, bookingID string) (*domainavailability.TimeSlot, error) {
	filter := bson.M{"_id": string(id), "occupied": false}
	update := bson.M{"$set": bson.M{"occupied": true, "booking_id": bookingID}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc slotDocument
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	switch {
	case err == nil:
		return doc.toSlot()
	case errors.Is(err, mongo.ErrNoDocuments):
		if _, lookupErr := r.ByID(ctx, id); lookupErr != nil {
			return nil, lookupErr
		}
		return nil, domainavailability.ErrSlotUnavailable
	case isWriteConflict(err):
		return nil, domainavailability.ErrSlotUnavailable
	default:
		return nil, err
	}
}

func (r *SlotRepository) Release(ctx context.Context, id domainavailability.SlotID, bookingID string) error {
	filter := bson.M{"_id": string(id), "occupied": true, "booking_id": bookingID}
	update := bson.M{"$set": bson.M{"occupied": false, "booking_id": ""}}
	if _, err := r.col.UpdateOne(ctx, filter, update); err != nil {
		if isWriteConflict(err) {
			return domainavailability.ErrSlotChanged
		}
		return err
	}
	return nil
}

type slotDocument struct {
	ID         string    `bson:"_id"`
	ProviderID string    `bson:"provider_id"`
	Date       string    `bson:"date"`
	Start      int       `bson:"start"`
	End        int       `bson:"end"`
	Occupied   bool      `bson:"occupied"`
	BookingID  string    `bson:"booking_id"`
	CreatedAt  time.Time `bson:"created_at"`
}

func newSlotDocument(s domainavailability.TimeSlot) slotDocument {
	return slotDocument{
		ID:         string(s.ID),
		ProviderID: s.ProviderID,
		Date:       s.Date.String(),
		Start:      int(s.Start),
		End:        int(s.End),
		Occupied:   s.Occupied,
		BookingID:  s.BookingID,
		CreatedAt:  s.CreatedAt.UTC(),
	}
}

func (d slotDocument) toSlot() (*domainavailability.TimeSlot, error) {
	date, err := timewindow.ParseDate(d.Date)
	if err != nil {
		return nil, fmt.Errorf("mongo: slot %s: %w", d.ID, err)
	}
	return &domainavailability.TimeSlot{
		ID:         domainavailability.SlotID(d.ID),
		ProviderID: d.ProviderID,
		Date:       date,
		Start:      timewindow.Clock(d.Start),
		End:        timewindow.Clock(d.End),
		Occupied:   d.Occupied,
		BookingID:  d.BookingID,
		CreatedAt:  d.CreatedAt,
	}, nil
}

var _ domainavailability.Repository = (*SlotRepository)(nil)
