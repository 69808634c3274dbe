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

// FindRate point-looks-up one pair for one date. The filter uses a
// field-existence predicate on the pair's dotted path, and the projection
// is restricted to that path so the rest of the rates document is never
// transferred
func (a *Adapter) FindRate(ctx context.Context, key types.RateKey) (*types.RateRecord, bool, error) {
	pairPath := types.PairPath(key.Date, key.Pair).String()

	filter := bson.M{
		"_id":    a.ratesDocumentID,
		pairPath: bson.M{"$exists": true},
	}

	opts := options.FindOne().SetProjection(bson.M{pairPath: 1})

	var raw bson.Raw

	if err := a.rates.FindOne(ctx, filter, opts).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("unable to find rate %s: %w", pairPath, err)
	}

	value, err := raw.LookupErr("rates", key.Date.String(), key.Pair.Key())
	if err != nil {
		return nil, false, nil
	}

	doc, ok := value.DocumentOK()
	if !ok {
		return nil, false, fmt.Errorf("malformed rate record at %s", pairPath)
	}

	var record types.RateRecord

	if err := bson.Unmarshal(doc, &record); err != nil {
		return nil, false, fmt.Errorf("unable to decode rate record at %s: %w", pairPath, err)
	}

	return &record, true, nil
}

// UpsertRate merges one pair's field group at its dotted path, never
// replacing sibling pairs or dates. The parent document is created if
// absent
func (a *Adapter) UpsertRate(ctx context.Context, key types.RateKey, record types.RateRecord) error {
	set := bson.M{}
	appendRecordFields(set, types.PairPath(key.Date, key.Pair), record)

	return a.updateRatesDocument(ctx, set)
}

// BatchUpsertRates merges many pairs for one date in a single update.
// The call is atomic at the document-update level, and independent of any
// other batch committed in the same run
func (a *Adapter) BatchUpsertRates(
	ctx context.Context,
	date types.RateDate,
	records map[types.Pair]types.RateRecord,
) error {
	if len(records) == 0 {
		return nil
	}

	set := bson.M{}

	for pair, record := range records {
		appendRecordFields(set, types.PairPath(date, pair), record)
	}

	return a.updateRatesDocument(ctx, set)
}

// updateRatesDocument applies a $set of dotted-path field merges to the
// fixed rates document
func (a *Adapter) updateRatesDocument(ctx context.Context, set bson.M) error {
	_, err := a.rates.UpdateOne(
		ctx,
		bson.M{"_id": a.ratesDocumentID},
		bson.M{"$set": set},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("unable to update rates document: %w", err)
	}

	return nil
}

// appendRecordFields expands one record into its per-field merge paths
func appendRecordFields(set bson.M, path types.FieldPath, record types.RateRecord) {
	set[path.Child(types.FieldRate).String()] = record.Rate
	set[path.Child(types.FieldLastUpdated).String()] = record.LastUpdated
	set[path.Child(types.FieldSource).String()] = record.Source.String()
}

// ExistingPairs returns the pair keys present under one date. Only the
// date's subtree is projected; rate values still ride along, but sibling
// dates do not
func (a *Adapter) ExistingPairs(ctx context.Context, date types.RateDate) (map[types.Pair]struct{}, error) {
	doc, err := a.dateSubtree(ctx, date)
	if err != nil || doc == nil {
		return nil, err
	}

	elements, err := doc.Elements()
	if err != nil {
		return nil, fmt.Errorf("malformed rates subtree for %s: %w", date, err)
	}

	existing := make(map[types.Pair]struct{}, len(elements))

	for _, element := range elements {
		pair, err := types.ParsePairKey(element.Key())
		if err != nil {
			// Foreign keys under a date are skipped, not fatal
			continue
		}

		existing[pair] = struct{}{}
	}

	return existing, nil
}

// RatesForDate returns every record stored under one date
func (a *Adapter) RatesForDate(
	ctx context.Context,
	date types.RateDate,
) (map[types.Pair]types.RateRecord, error) {
	doc, err := a.dateSubtree(ctx, date)
	if err != nil || doc == nil {
		return nil, err
	}

	elements, err := doc.Elements()
	if err != nil {
		return nil, fmt.Errorf("malformed rates subtree for %s: %w", date, err)
	}

	records := make(map[types.Pair]types.RateRecord, len(elements))

	for _, element := range elements {
		pair, err := types.ParsePairKey(element.Key())
		if err != nil {
			continue
		}

		recordDoc, ok := element.Value().DocumentOK()
		if !ok {
			continue
		}

		var record types.RateRecord

		if err := bson.Unmarshal(recordDoc, &record); err != nil {
			continue
		}

		records[pair] = record
	}

	return records, nil
}

// dateSubtree fetches the rates.<date> document, or nil when absent
func (a *Adapter) dateSubtree(ctx context.Context, date types.RateDate) (bson.Raw, error) {
	datePath := types.RatesPath(date).String()

	opts := options.FindOne().SetProjection(bson.M{datePath: 1})

	var raw bson.Raw

	if err := a.rates.FindOne(ctx, bson.M{"_id": a.ratesDocumentID}, opts).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}

		return nil, fmt.Errorf("unable to fetch %s: %w", datePath, err)
	}

	value, err := raw.LookupErr("rates", date.String())
	if err != nil {
		return nil, nil
	}

	doc, ok := value.DocumentOK()
	if !ok {
		return nil, fmt.Errorf("malformed rates subtree for %s", date)
	}

	return doc, nil
}

// LatestDate scans the date keys of the rates document and returns the
// maximum by calendar ordering. Malformed date keys are skipped
func (a *Adapter) LatestDate(ctx context.Context) (types.RateDate, bool, error) {
	opts := options.FindOne().SetProjection(bson.M{"rates": 1})

	var raw bson.Raw

	if err := a.rates.FindOne(ctx, bson.M{"_id": a.ratesDocumentID}, opts).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.RateDate{}, false, nil
		}

		return types.RateDate{}, false, fmt.Errorf("unable to fetch rates document: %w", err)
	}

	value, err := raw.LookupErr("rates")
	if err != nil {
		return types.RateDate{}, false, nil
	}

	doc, ok := value.DocumentOK()
	if !ok {
		return types.RateDate{}, false, errors.New("malformed rates document")
	}

	elements, err := doc.Elements()
	if err != nil {
		return types.RateDate{}, false, fmt.Errorf("malformed rates document: %w", err)
	}

	var (
		latest types.RateDate
		found  bool
	)

	for _, element := range elements {
		date, err := types.ParseRateDate(element.Key())
		if err != nil {
			continue
		}

		if !found || date.After(latest) {
			latest = date
			found = true
		}
	}

	return latest, found, nil
}
