package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/randytsao24/stopfinder/internal/models"
)

var torgersen = models.Address{
	Street:  "620 Drillfield Dr",
	City:    "Blacksburg",
	State:   "Virginia",
	ZipCode: "24061",
	Country: "United States",
}

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	svc := NewService(srv.URL, "test-key", 2*time.Second, time.Minute, nil)
	t.Cleanup(svc.Close)
	return svc, &calls
}

func TestResolve(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "620 Drillfield Dr, Blacksburg, Virginia, 24061, United States" {
			t.Errorf("q = %q", q.Get("q"))
		}
		if q.Get("api_key") != "test-key" || q.Get("format") != "json" {
			t.Errorf("unexpected params: %v", q)
		}
		w.Write([]byte(`[{"lat":"37.2298","lon":"-80.4200"},{"lat":"1","lon":"1"}]`))
	})

	got := svc.Resolve(context.Background(), torgersen)
	want := models.Coordinates{Lat: 37.2298, Lon: -80.42}
	if got != want {
		t.Errorf("Resolve = %+v, want %+v", got, want)
	}
}

func TestResolveFailuresReturnSentinel(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"no candidates", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":`))
		}},
		{"non numeric lat", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"lat":"north","lon":"-80"}]`))
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t, tc.handler)
			if got := svc.Resolve(context.Background(), torgersen); got != models.Unresolved {
				t.Errorf("Resolve = %+v, want (0,0)", got)
			}
		})
	}
}

func TestResolveNetworkFailure(t *testing.T) {
	svc := NewService("http://127.0.0.1:1/search", "", time.Second, time.Minute, nil)
	defer svc.Close()

	if got := svc.Resolve(context.Background(), torgersen); !got.IsZero() {
		t.Errorf("Resolve = %+v, want sentinel", got)
	}
}

func TestResolveMemoizesHitsOnly(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	svc, calls := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"lat":"37.23","lon":"-80.42"}]`))
	})
	ctx := context.Background()

	svc.Resolve(ctx, torgersen)
	fail.Store(false)
	svc.Resolve(ctx, torgersen)
	svc.Resolve(ctx, torgersen)

	if n := calls.Load(); n != 2 {
		t.Errorf("geocoder called %d times, want 2 (miss not cached, hit cached)", n)
	}
}

func TestAttach(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"lat":"37.23","lon":"-80.42"}]`))
	})

	addr := svc.Attach(context.Background(), torgersen)
	if !addr.Resolved() || addr.Latitude != 37.23 || addr.Longitude != -80.42 {
		t.Errorf("Attach = %+v", addr)
	}
	if addr.Street != torgersen.Street {
		t.Error("Attach must keep address fields")
	}
}

func TestParseFreeText(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Address
		wantErr bool
	}{
		{
			in:   "508 Broce Dr, Blacksburg, Virginia, 24060, United States",
			want: models.Address{Street: "508 Broce Dr", City: "Blacksburg", State: "Virginia", ZipCode: "24060", Country: "United States"},
		},
		{
			in:   "508 Broce Dr, Blacksburg, Montgomery, Virginia, 24060, United States",
			want: models.Address{Street: "508 Broce Dr", City: "Blacksburg", County: "Montgomery", State: "Virginia", ZipCode: "24060", Country: "United States"},
		},
		{in: "508 Broce Dr, Blacksburg", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseFreeText(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFreeText: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}
