package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "tutorbook/internal/domain/availability"
	domainbooking "tutorbook/internal/domain/booking"
	"tutorbook/internal/domain/shared/money"
)

const bookingCollection = "bookings"

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingCollection)}
}

func ensureBookingIndexes(ctx context.Context, col *mongo.Collection) error {
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "consumer_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "end", Value: 1}}},
	})
	return err
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save is a version-conditional upsert. paid is only written on insert; MarkPaid owns it afterwards.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	next := b.Version + 1
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	update := bson.M{
		"$set": bson.M{
			"slot_id":           doc.SlotID,
			"provider_id":       doc.ProviderID,
			"consumer_id":       doc.ConsumerID,
			"start":             doc.Start,
			"end":               doc.End,
			"price":             doc.Price,
			"status":            doc.Status,
			"meeting_reference": doc.MeetingReference,
			"notes":             doc.Notes,
			"cancel_reason":     doc.CancelReason,
			"created_at":        doc.CreatedAt,
			"status_changed_at": doc.StatusChangedAt,
			"version":           next,
		},
		"$setOnInsert": bson.M{"paid": doc.Paid},
	}
	res, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) || isWriteConflict(err) {
			return domainbooking.ErrStaleBooking
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrStaleBooking
	}
	b.Version = next
	return nil
}

func (r *BookingRepository) ListByProvider(ctx context.Context, providerID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"provider_id": providerID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (r *BookingRepository) ListByConsumer(ctx context.Context, consumerID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"consumer_id": consumerID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (r *BookingRepository) ListElapsed(ctx context.Context, now time.Time, limit int) ([]*domainbooking.Booking, error) {
	filter := bson.M{"status": string(domainbooking.StatusConfirmed), "end": bson.M{"$lte": now.UTC()}}
	opts := options.Find().SetSort(bson.D{{Key: "end", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

func (r *BookingRepository) MarkPaid(ctx context.Context, id domainbooking.BookingID) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": string(id)}, bson.M{"$set": bson.M{"paid": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainbooking.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

// Start and End are wall-clock instants labelled UTC.
type bookingDocument struct {
	ID               string      `bson:"_id"`
	SlotID           string      `bson:"slot_id"`
	ProviderID       string      `bson:"provider_id"`
	ConsumerID       string      `bson:"consumer_id"`
	Start            time.Time   `bson:"start"`
	End              time.Time   `bson:"end"`
	Price            money.Money `bson:"price"`
	Paid             bool        `bson:"paid"`
	Status           string      `bson:"status"`
	MeetingReference string      `bson:"meeting_reference"`
	Notes            string      `bson:"notes"`
	CancelReason     string      `bson:"cancel_reason"`
	CreatedAt        time.Time   `bson:"created_at"`
	StatusChangedAt  time.Time   `bson:"status_changed_at"`
	Version          int64       `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:               string(b.ID),
		SlotID:           string(b.SlotID),
		ProviderID:       b.ProviderID,
		ConsumerID:       b.ConsumerID,
		Start:            b.Start.UTC(),
		End:              b.End.UTC(),
		Price:            b.Price,
		Paid:             b.Paid,
		Status:           string(b.Status),
		MeetingReference: b.MeetingReference,
		Notes:            b.Notes,
		CancelReason:     b.CancelReason,
		CreatedAt:        b.CreatedAt.UTC(),
		StatusChangedAt:  b.StatusChangedAt.UTC(),
		Version:          b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:               domainbooking.BookingID(d.ID),
		SlotID:           domainavailability.SlotID(d.SlotID),
		ProviderID:       d.ProviderID,
		ConsumerID:       d.ConsumerID,
		Start:            d.Start.UTC(),
		End:              d.End.UTC(),
		Price:            d.Price,
		Paid:             d.Paid,
		Status:           domainbooking.Status(d.Status),
		MeetingReference: d.MeetingReference,
		Notes:            d.Notes,
		CancelReason:     d.CancelReason,
		CreatedAt:        d.CreatedAt.UTC(),
		StatusChangedAt:  d.StatusChangedAt.UTC(),
		Version:          d.Version,
	}
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
