package repository

import (
	"reflect"
	"strings"
	"testing"
)

func TestBuildListQuery(t *testing.T) {
	tests := []struct {
		name          string
		status        string
		wantWhere     string
		wantPage      string
		wantCountArgs []interface{}
		wantPageArgs  []interface{}
	}{
		{
			name:          "no filter",
			wantPage:      "LIMIT $1 OFFSET $2",
			wantCountArgs: nil,
			wantPageArgs:  []interface{}{20, 40},
		},
		{
			name:          "status filter",
			status:        "failed",
			wantWhere:     "WHERE status = $1",
			wantPage:      "LIMIT $2 OFFSET $3",
			wantCountArgs: []interface{}{"failed"},
			wantPageArgs:  []interface{}{"failed", 20, 40},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := buildListQuery(tc.status, 20, 40)

			if tc.wantWhere == "" && strings.Contains(q.countSQL+q.pageSQL, "WHERE") {
				t.Errorf("Expected no WHERE clause:\n%s\n%s", q.countSQL, q.pageSQL)
			}
			if tc.wantWhere != "" && (!strings.Contains(q.countSQL, tc.wantWhere) || !strings.Contains(q.pageSQL, tc.wantWhere)) {
				t.Errorf("Expected %q in both queries:\n%s\n%s", tc.wantWhere, q.countSQL, q.pageSQL)
			}
			if !strings.HasSuffix(q.pageSQL, tc.wantPage) {
				t.Errorf("Expected page query to end with %q, got %q", tc.wantPage, q.pageSQL)
			}
			if strings.Count(q.countSQL, "$") != len(q.countArgs) || strings.Count(q.pageSQL, "$") != len(q.pageArgs) {
				t.Errorf("Placeholder count does not match args")
			}
			if !reflect.DeepEqual(q.countArgs, tc.wantCountArgs) {
				t.Errorf("countArgs = %v, want %v", q.countArgs, tc.wantCountArgs)
			}
			if !reflect.DeepEqual(q.pageArgs, tc.wantPageArgs) {
				t.Errorf("pageArgs = %v, want %v", q.pageArgs, tc.wantPageArgs)
			}
		})
	}
}
