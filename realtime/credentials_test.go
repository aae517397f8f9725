package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPCredentialProvider(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
		wantErr bool
	}{
		{
			name: "ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"value":"ek-123"}`))
			},
			want: "ek-123",
		},
		{
			name: "upstream error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusBadGateway)
			},
			wantErr: true,
		},
		{
			name: "empty secret",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"value":""}`))
			},
			wantErr: true,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			p := &HTTPCredentialProvider{URL: ts.URL}
			got, err := p.EphemeralKey(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("EphemeralKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("EphemeralKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
