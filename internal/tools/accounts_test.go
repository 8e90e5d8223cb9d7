package tools_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/forcebridge/forcebridge/internal/salesforce"
	"github.com/forcebridge/forcebridge/internal/tools"
)

func TestListAccounts_LimitClamp(t *testing.T) {
	cases := []struct {
		limit     int
		wantLimit int
	}{
		{limit: 1, wantLimit: 1},
		{limit: 5, wantLimit: 5},
		{limit: 100, wantLimit: 100},
		{limit: 0, wantLimit: 5},
		{limit: -3, wantLimit: 5},
		{limit: 101, wantLimit: 5},
		{limit: 10_000, wantLimit: 5},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("limit=%d", tc.limit), func(t *testing.T) {
			crm := &fakeCRM{}
			svc := tools.NewService(crm, true)

			if _, err := svc.ListAccounts(context.Background(), tc.limit); err != nil {
				t.Fatalf("ListAccounts(%d) error = %v", tc.limit, err)
			}

			want := fmt.Sprintf("SELECT Id, Name FROM Account LIMIT %d", tc.wantLimit)
			if len(crm.queries) != 1 || crm.queries[0] != want {
				t.Errorf("query = %q, want %q", crm.queries, want)
			}
		})
	}
}

func TestListAccounts_ReturnsRawRecords(t *testing.T) {
	crm := &fakeCRM{queryFn: func(string) ([]salesforce.Record, error) {
		return []salesforce.Record{
			{"Id": "001A", "Name": "Acme"},
			{"Id": "001B", "Name": "Globex"},
		}, nil
	}}
	svc := tools.NewService(crm, true)

	records, err := svc.ListAccounts(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("ListAccounts() returned %d records, want 2", len(records))
	}
	if records[0].Str("Name") != "Acme" {
		t.Errorf("records[0].Name = %q, want Acme", records[0].Str("Name"))
	}
}

func TestListAccounts_ErrorPropagates(t *testing.T) {
	crm := &fakeCRM{queryFn: func(string) ([]salesforce.Record, error) {
		return nil, &salesforce.AuthError{Status: 401, Body: "invalid_grant"}
	}}
	svc := tools.NewService(crm, true)

	_, err := svc.ListAccounts(context.Background(), 5)
	if err == nil {
		t.Fatal("ListAccounts() with failing CRM: expected error, got nil")
	}
}
