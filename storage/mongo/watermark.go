package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/instantcurrency/rates/storage/types"
)

// propLastRateDate is the property key holding the refresh watermark:
// the most recent rate date for which the full matrix is known complete
const propLastRateDate = "lastCompletedRateDate"

type propertyDocument struct {
	ID    string `bson:"_id"`
	Value string `bson:"value"`
}

func (a *Adapter) LastRateDate(ctx context.Context) (types.RateDate, bool, error) {
	var doc propertyDocument

	err := a.properties.FindOne(ctx, bson.M{"_id": propLastRateDate}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.RateDate{}, false, nil
		}

		return types.RateDate{}, false, fmt.Errorf("unable to read watermark: %w", err)
	}

	date, err := types.ParseRateDate(doc.Value)
	if err != nil {
		// A corrupt watermark reads as absent; the next complete run rewrites it
		return types.RateDate{}, false, nil
	}

	return date, true, nil
}

func (a *Adapter) SetLastRateDate(ctx context.Context, date types.RateDate) error {
	_, err := a.properties.UpdateOne(
		ctx,
		bson.M{"_id": propLastRateDate},
		bson.M{"$set": bson.M{"value": date.String()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("unable to advance watermark: %w", err)
	}

	return nil
}
