package query

import (
	"errors"
	"net/url"
	"testing"

	"taskflow/domain"
)

func TestBuildEqualityFilters(t *testing.T) {
	params := url.Values{}
	params.Set("status", "active")
	params.Set("priority", "high")
	params.Set("page", "2")
	params.Set("limit", "10")

	plan, err := Build(params)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(plan.Filter) != 2 {
		t.Fatalf("expected 2 filter fields, got %d", len(plan.Filter))
	}
	conds := plan.Filter["status"]
	if len(conds) != 1 || conds[0].Op != Equals || conds[0].Value != "active" {
		t.Fatalf("unexpected status conditions: %+v", conds)
	}
	if plan.Page != 2 || plan.Limit != 10 {
		t.Fatalf("unexpected pagination: page=%d limit=%d", plan.Page, plan.Limit)
	}
	if plan.Skip() != 10 {
		t.Fatalf("expected skip 10, got %d", plan.Skip())
	}
}

func TestBuildComparisonSuffixes(t *testing.T) {
	params := url.Values{}
	params.Set("dueDate[gte]", "2026-01-01")
	params.Set("dueDate[lt]", "2026-02-01")

	plan, err := Build(params)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	conds := plan.Filter["dueDate"]
	if len(conds) != 2 {
		t.Fatalf("expected 2 conditions on dueDate, got %d", len(conds))
	}
	ops := map[Op]string{}
	for _, c := range conds {
		ops[c.Op] = c.Value
	}
	if ops[GreaterOrEqual] != "2026-01-01" || ops[LessThan] != "2026-02-01" {
		t.Fatalf("unexpected conditions: %+v", conds)
	}
}

func TestBuildInSuffixSplitsValues(t *testing.T) {
	params := url.Values{}
	params.Set("status[in]", "todo, done")

	plan, err := Build(params)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	conds := plan.Filter["status"]
	if len(conds) != 1 || conds[0].Op != In {
		t.Fatalf("unexpected conditions: %+v", conds)
	}
	if len(conds[0].Values) != 2 || conds[0].Values[0] != "todo" || conds[0].Values[1] != "done" {
		t.Fatalf("unexpected in values: %v", conds[0].Values)
	}
}

func TestBuildRejectsUnknownSuffix(t *testing.T) {
	cases := []string{"age[regex]", "age[ne]", "age[gt", "[gt]", "limit[gt]", "a$b"}
	for _, key := range cases {
		params := url.Values{}
		params.Set(key, "1")
		_, err := Build(params)
		var iq domain.InvalidQueryError
		if !errors.As(err, &iq) {
			t.Fatalf("key %q: expected InvalidQueryError, got %v", key, err)
		}
	}
}

func TestBuildControlKeysNeverFilter(t *testing.T) {
	params := url.Values{}
	params.Set("select", "name,email")
	params.Set("sort", "-dueDate,title")
	params.Set("page", "3")
	params.Set("limit", "5")

	plan, err := Build(params)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(plan.Filter) != 0 {
		t.Fatalf("control keys leaked into filter: %v", plan.Filter)
	}
	if len(plan.Select) != 2 || plan.Select[0] != "name" || plan.Select[1] != "email" {
		t.Fatalf("unexpected select: %v", plan.Select)
	}
	if len(plan.Sort) != 2 {
		t.Fatalf("unexpected sort: %v", plan.Sort)
	}
	if !plan.Sort[0].Descending || plan.Sort[0].Field != "dueDate" {
		t.Fatalf("unexpected first sort key: %+v", plan.Sort[0])
	}
	if plan.Sort[1].Descending || plan.Sort[1].Field != "title" {
		t.Fatalf("unexpected second sort key: %+v", plan.Sort[1])
	}
}

func TestBuildDefaults(t *testing.T) {
	plan, err := Build(url.Values{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if plan.Page != 1 || plan.Limit != DefaultLimit {
		t.Fatalf("unexpected defaults: page=%d limit=%d", plan.Page, plan.Limit)
	}
	if len(plan.Sort) != 1 || plan.Sort[0].Field != "createdAt" || !plan.Sort[0].Descending {
		t.Fatalf("expected default sort -createdAt, got %+v", plan.Sort)
	}
}

func TestBuildOversizedPaginationClamped(t *testing.T) {
	plan, err := Build(url.Values{"page": {"9000000000000000000"}, "limit": {"50000"}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if plan.Limit != MaxLimit {
		t.Fatalf("expected limit clamp to %d, got %d", MaxLimit, plan.Limit)
	}
	if plan.Skip() < 0 {
		t.Fatalf("skip overflowed: %d", plan.Skip())
	}
	if int64(plan.Page)*int64(plan.Limit) < 0 {
		t.Fatal("page*limit overflowed")
	}
}

func TestBuildBadPaginationFallsBack(t *testing.T) {
	cases := []url.Values{
		{"page": {"abc"}, "limit": {"xyz"}},
		{"page": {"0"}, "limit": {"-3"}},
		{"page": {""}, "limit": {""}},
	}
	for _, params := range cases {
		plan, err := Build(params)
		if err != nil {
			t.Fatalf("build %v: %v", params, err)
		}
		if plan.Page != 1 || plan.Limit != DefaultLimit {
			t.Fatalf("params %v: expected defaults, got page=%d limit=%d", params, plan.Page, plan.Limit)
		}
	}
}
