package pagination

import "testing"

func TestNewClampsValues(t *testing.T) {
	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
		wantOffset          int
	}{
		{page: 1, limit: 10, wantPage: 1, wantLimit: 10, wantOffset: 0},
		{page: 3, limit: 10, wantPage: 3, wantLimit: 10, wantOffset: 20},
		{page: 0, limit: 0, wantPage: 1, wantLimit: DefaultLimit, wantOffset: 0},
		{page: 2, limit: 500, wantPage: 2, wantLimit: MaxLimit, wantOffset: MaxLimit},
	}
	for _, tc := range cases {
		p := New(tc.page, tc.limit)
		if p.Page != tc.wantPage || p.Limit != tc.wantLimit || p.Offset != tc.wantOffset {
			t.Fatalf("New(%d,%d) = %+v", tc.page, tc.limit, p)
		}
	}
}

func TestGetMeta(t *testing.T) {
	meta := GetMeta(New(2, 10), 25)
	if meta.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", meta.TotalPages)
	}
	if !meta.HasNext || !meta.HasPrev {
		t.Fatalf("expected next and prev on middle page: %+v", meta)
	}

	last := GetMeta(New(3, 10), 25)
	if last.HasNext {
		t.Fatal("last page must not report a next page")
	}
}
