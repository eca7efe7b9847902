package metrics

import (
	"reflect"
	"testing"
)

func TestSortedStatusCodes(t *testing.T) {
	tests := []struct {
		name  string
		codes map[int]int64
		want  []StatusCount
	}{
		{name: "nil", codes: nil, want: nil},
		{name: "empty", codes: map[int]int64{}, want: nil},
		{
			name:  "ascending by code",
			codes: map[int]int64{503: 2, 200: 40, 404: 1},
			want: []StatusCount{
				{Code: 200, Count: 40},
				{Code: 404, Count: 1},
				{Code: 503, Count: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortedStatusCodes(tt.codes)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SortedStatusCodes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortedErrors(t *testing.T) {
	got := SortedErrors(map[ErrorKind]int64{
		ErrorTimeout:           3,
		ErrorDNS:               3,
		ErrorConnectionRefused: 7,
	})
	want := []ErrorCount{
		{Kind: ErrorConnectionRefused, Count: 7},
		{Kind: ErrorDNS, Count: 3},
		{Kind: ErrorTimeout, Count: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SortedErrors() = %v, want %v", got, want)
	}
}

func TestServerErrors(t *testing.T) {
	got := ServerErrors(map[int]int64{200: 10, 404: 2, 500: 3, 502: 4})
	if got != 7 {
		t.Fatalf("ServerErrors() = %d, want 7", got)
	}
}

func TestErrorKindLabel(t *testing.T) {
	tests := map[ErrorKind]string{
		ErrorTimeout:           "Timeout",
		ErrorConnectionRefused: "Connection refused",
		ErrorSocketHangup:      "Socket hangup",
		ErrorDNS:               "DNS error",
		ErrorTLS:               "TLS error",
		ErrorUnknown:           "Unknown error",
	}
	for kind, want := range tests {
		if got := kind.Label(); got != want {
			t.Errorf("%s.Label() = %q, want %q", kind, got, want)
		}
		if !kind.Valid() {
			t.Errorf("%s should be valid", kind)
		}
	}
	if ErrorKind("bogus").Valid() {
		t.Error("bogus kind should be invalid")
	}
}

func TestWindowEviction(t *testing.T) {
	w := newWindow(3)
	for _, v := range []float64{5, 1, 9, 7} {
		w.push(v)
	}
	if w.len() != 3 {
		t.Fatalf("len = %d, want 3", w.len())
	}
	got := w.sortedCopy()
	want := []float64{1, 7, 9}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sortedCopy() = %v, want %v", got, want)
	}
}
