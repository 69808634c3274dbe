package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/instantcurrency/rates/storage/types"
)

// productPath addresses one product's field group inside a customer's
// subscription document
func productPath(productID string) types.FieldPath {
	return types.FieldPath("products").Child(productID)
}

// ProductSubscription looks up one customer's subscription record for one
// product, keyed by email
func (a *Adapter) ProductSubscription(
	ctx context.Context,
	email string,
	productID string,
) (*types.ProductSubscription, bool, error) {
	path := productPath(productID).String()

	filter := bson.M{
		"email": email,
		path:    bson.M{"$exists": true},
	}

	opts := options.FindOne().SetProjection(bson.M{path: 1})

	var raw bson.Raw

	if err := a.subscriptions.FindOne(ctx, filter, opts).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("unable to find subscription for %s: %w", productID, err)
	}

	value, err := raw.LookupErr("products", productID)
	if err != nil {
		return nil, false, nil
	}

	doc, ok := value.DocumentOK()
	if !ok {
		return nil, false, fmt.Errorf("malformed subscription record for %s", productID)
	}

	var record types.ProductSubscription

	if err := bson.Unmarshal(doc, &record); err != nil {
		return nil, false, fmt.Errorf("unable to decode subscription record: %w", err)
	}

	return &record, true, nil
}

// UpsertProductSubscription merges one product's subscription fields into
// the customer's document, creating it (with the email key) when absent
func (a *Adapter) UpsertProductSubscription(
	ctx context.Context,
	email string,
	productID string,
	record types.ProductSubscription,
) error {
	path := productPath(productID)

	update := bson.M{
		"$set": bson.M{
			path.Child("productName").String():      record.ProductName,
			path.Child("stripeCustomerId").String(): record.StripeCustomerID,
			path.Child("status").String():           record.Status.String(),
			path.Child("lastUpdated").String():      record.LastUpdated,
		},
		// Email is set only on document creation
		"$setOnInsert": bson.M{"email": email},
	}

	_, err := a.subscriptions.UpdateOne(
		ctx,
		bson.M{"email": email},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("unable to upsert subscription for %s: %w", productID, err)
	}

	return nil
}

// SetSubscriptionStatus updates only the status and timestamp of an
// existing product subscription, leaving its other fields intact
func (a *Adapter) SetSubscriptionStatus(
	ctx context.Context,
	email string,
	productID string,
	status types.SubscriptionStatus,
) error {
	path := productPath(productID)

	filter := bson.M{
		"email":       email,
		path.String(): bson.M{"$exists": true},
	}

	update := bson.M{
		"$set": bson.M{
			path.Child("status").String():      status.String(),
			path.Child("lastUpdated").String(): time.Now().UTC(),
		},
	}

	if _, err := a.subscriptions.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("unable to set subscription status for %s: %w", productID, err)
	}

	return nil
}
