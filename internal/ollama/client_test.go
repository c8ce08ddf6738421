package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

type mockListResponse struct {
	Models []mockModel `json:"models"`
}

type mockModel struct {
	Name string `json:"name"`
}

func newMockServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/":
			w.WriteHeader(http.StatusOK)
		case "/api/embed":
			var req struct {
				Model string `json:"model"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(mockEmbedResponse{
				Model:      req.Model,
				Embeddings: [][]float32{{0.1, 0.2, 0.3, 0.4, 0.5}},
			})
		case "/api/tags":
			json.NewEncoder(w).Encode(mockListResponse{
				Models: []mockModel{{Name: "nomic-embed-text:latest"}, {Name: "another-model"}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		model     string
		wantModel string
		wantErr   bool
	}{
		{name: "with custom url and model", url: "http://localhost:11434", model: "custom-model", wantModel: "custom-model"},
		{name: "with default url", url: "", model: "test-model", wantModel: "test-model"},
		{name: "with default model", url: "http://localhost:11434", model: "", wantModel: DefaultModel},
		{name: "with invalid url", url: "http://[::1", model: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, tt.model)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.Model() != tt.wantModel {
				t.Errorf("expected model %s, got %s", tt.wantModel, client.Model())
			}
		})
	}
}

func TestIsAvailable(t *testing.T) {
	server := newMockServer(t)

	if !IsAvailable(context.Background(), server.URL) {
		t.Error("expected mock server to be available")
	}
	if IsAvailable(context.Background(), "http://127.0.0.1:1") {
		t.Error("expected closed port to be unavailable")
	}
}

func TestGenerateEmbedding(t *testing.T) {
	server := newMockServer(t)
	client, err := NewClient(server.URL, "test-model")
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	t.Run("empty text", func(t *testing.T) {
		if _, err := client.GenerateEmbedding(context.Background(), ""); err == nil {
			t.Error("expected error for empty text")
		}
	})

	t.Run("valid text", func(t *testing.T) {
		embedding, err := client.GenerateEmbedding(context.Background(), "bass line in D minor")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(embedding) != 5 {
			t.Fatalf("expected 5 dimensions, got %d", len(embedding))
		}
		if embedding[0] != float64(float32(0.1)) {
			t.Errorf("expected float32 value widened exactly, got %v", embedding[0])
		}
	})
}

func TestCheckModel(t *testing.T) {
	server := newMockServer(t)

	tests := []struct {
		model   string
		wantErr bool
	}{
		{model: DefaultModel, wantErr: false},
		{model: "another-model", wantErr: false},
		{model: "nonexistent-model-xyz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			client, err := NewClient(server.URL, tt.model)
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}
			err = client.CheckModel(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckModel() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
