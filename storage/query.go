package storage

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"taskflow/query"
)

var opNames = map[query.Op]string{
	query.GreaterThan:    "$gt",
	query.GreaterOrEqual: "$gte",
	query.LessThan:       "$lt",
	query.LessOrEqual:    "$lte",
}

// filterDocument translates a plan's typed conditions into a Mongo filter.
// Only the fixed operator set can ever appear; the builder has already
// rejected everything else. Equality values keep their string form;
// conversion to comparable types only applies to comparison and membership
// operators.
func filterDocument(filter map[string][]query.Condition) bson.M {
	doc := bson.M{}
	for field, conds := range filter {
		var eq any
		ops := bson.M{}
		for _, c := range conds {
			switch c.Op {
			case query.Equals:
				eq = c.Value
			case query.In:
				vals := make([]any, 0, len(c.Values))
				for _, v := range c.Values {
					vals = append(vals, coerceValue(v))
				}
				ops["$in"] = vals
			default:
				ops[opNames[c.Op]] = coerceValue(c.Value)
			}
		}
		switch {
		case len(ops) > 0:
			if eq != nil {
				ops["$eq"] = eq
			}
			doc[field] = ops
		case eq != nil:
			doc[field] = eq
		}
	}
	return doc
}

// coerceValue maps a raw string to the closest BSON-comparable type so that
// numeric and date comparisons behave as callers expect.
func coerceValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return raw
}

func findOptions(plan query.Plan) *options.FindOptionsBuilder {
	opts := options.Find().
		SetSort(sortDocument(plan.Sort)).
		SetSkip(int64(plan.Skip())).
		SetLimit(int64(plan.Limit))
	if len(plan.Select) > 0 {
		proj := bson.D{}
		for _, f := range plan.Select {
			proj = append(proj, bson.E{Key: f, Value: 1})
		}
		opts = opts.SetProjection(proj)
	}
	return opts
}

func sortDocument(keys []query.SortKey) bson.D {
	doc := bson.D{}
	for _, k := range keys {
		dir := 1
		if k.Descending {
			dir = -1
		}
		doc = append(doc, bson.E{Key: k.Field, Value: dir})
	}
	return doc
}
