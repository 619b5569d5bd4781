package storage

import (
	"net/url"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"taskflow/query"
)

func mustBuild(t *testing.T, params url.Values) query.Plan {
	t.Helper()
	plan, err := query.Build(params)
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	return plan
}

func TestFilterDocumentEquality(t *testing.T) {
	plan := mustBuild(t, url.Values{"status": {"active"}, "priority": {"high"}})
	doc := filterDocument(plan.Filter)
	if doc["status"] != "active" || doc["priority"] != "high" {
		t.Fatalf("unexpected filter document: %v", doc)
	}
}

func TestFilterDocumentEqualityKeepsStringForm(t *testing.T) {
	// A name that happens to look numeric must still match string fields.
	plan := mustBuild(t, url.Values{"name": {"2024"}})
	doc := filterDocument(plan.Filter)
	if doc["name"] != "2024" {
		t.Fatalf("expected string equality, got %v (%T)", doc["name"], doc["name"])
	}
}

func TestFilterDocumentMixedEqualityAndOperator(t *testing.T) {
	plan := mustBuild(t, url.Values{"age": {"5"}, "age[gt]": {"3"}})
	doc := filterDocument(plan.Filter)
	ops, ok := doc["age"].(bson.M)
	if !ok {
		t.Fatalf("expected operator document, got %T", doc["age"])
	}
	if ops["$gt"] != int64(3) {
		t.Fatalf("unexpected $gt: %v", ops["$gt"])
	}
	if ops["$eq"] != "5" {
		t.Fatalf("equality condition dropped, got %v", ops["$eq"])
	}
}

func TestFilterDocumentComparisonOperators(t *testing.T) {
	plan := mustBuild(t, url.Values{"order[gte]": {"3"}, "order[lt]": {"10"}})
	doc := filterDocument(plan.Filter)
	ops, ok := doc["order"].(bson.M)
	if !ok {
		t.Fatalf("expected operator document, got %T", doc["order"])
	}
	if ops["$gte"] != int64(3) || ops["$lt"] != int64(10) {
		t.Fatalf("unexpected operators: %v", ops)
	}
}

func TestFilterDocumentInOperator(t *testing.T) {
	plan := mustBuild(t, url.Values{"status[in]": {"todo,done"}})
	doc := filterDocument(plan.Filter)
	ops, ok := doc["status"].(bson.M)
	if !ok {
		t.Fatalf("expected operator document, got %T", doc["status"])
	}
	if !reflect.DeepEqual(ops["$in"], []any{"todo", "done"}) {
		t.Fatalf("unexpected $in values: %v", ops["$in"])
	}
}

func TestCoerceValue(t *testing.T) {
	cases := []struct {
		raw  string
		want any
	}{
		{"42", int64(42)},
		{"3.5", 3.5},
		{"true", true},
		{"hello", "hello"},
	}
	for _, tc := range cases {
		if got := coerceValue(tc.raw); got != tc.want {
			t.Fatalf("coerceValue(%q) = %v (%T), want %v", tc.raw, got, got, tc.want)
		}
	}
	ts, ok := coerceValue("2026-03-01").(time.Time)
	if !ok || ts.Year() != 2026 || ts.Month() != time.March {
		t.Fatalf("expected date coercion, got %v", ts)
	}
}

func TestSortDocumentDirections(t *testing.T) {
	plan := mustBuild(t, url.Values{"sort": {"-dueDate,title"}})
	doc := sortDocument(plan.Sort)
	want := bson.D{{Key: "dueDate", Value: -1}, {Key: "title", Value: 1}}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("unexpected sort document: %v", doc)
	}
}

func TestSortDocumentDefault(t *testing.T) {
	plan := mustBuild(t, url.Values{})
	doc := sortDocument(plan.Sort)
	want := bson.D{{Key: "createdAt", Value: -1}}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("unexpected default sort: %v", doc)
	}
}
