package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func queryContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/events?"+rawQuery, nil)
	return c
}

func TestFromContext(t *testing.T) {
	cases := []struct {
		name     string
		rawQuery string
		want     Query
	}{
		{"Defaults", "", Query{Page: 1, Size: 10}},
		{"Explicit", "page=3&size=25", Query{Page: 3, Size: 25}},
		{"PageBelowOne", "page=0", Query{Page: 1, Size: 10}},
		{"NegativeSize", "size=-5", Query{Page: 1, Size: 10}},
		{"SizeCapped", "size=500", Query{Page: 1, Size: MaxSize}},
		{"Garbage", "page=abc&size=xyz", Query{Page: 1, Size: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FromContext(queryContext(t, tc.rawQuery)); got != tc.want {
				t.Errorf("FromContext = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestOffsetIsZeroBased(t *testing.T) {
	if got := (Query{Page: 1, Size: 10}).Offset(); got != 0 {
		t.Errorf("page 1 offset = %d, want 0", got)
	}
	if got := (Query{Page: 4, Size: 10}).Offset(); got != 3 {
		t.Errorf("page 4 offset = %d, want 3", got)
	}
}

func TestMeta(t *testing.T) {
	m := Meta(25, Query{Page: 2, Size: 10})
	if m.Total != 25 || m.CurrentPage != 2 || m.TotalPage != 3 || m.Size != 10 {
		t.Errorf("meta = %+v", m)
	}
	if !m.HasNextPage {
		t.Error("page 2 of 3 should have a next page")
	}

	last := Meta(25, Query{Page: 3, Size: 10})
	if last.HasNextPage {
		t.Error("last page reported a next page")
	}

	empty := Meta(0, Query{Page: 1, Size: 10})
	if empty.TotalPage != 0 || empty.HasNextPage {
		t.Errorf("empty meta = %+v", empty)
	}
}
