package ollama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docfields/internal/common"
)

func showServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/show", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestCheckModel(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"mllama family", 200, `{"details":{"family":"mllama","families":["mllama"]}}`, nil},
		{"projector", 200, `{"details":{"family":"llama"},"projector_info":{"clip.has_vision_encoder":true}}`, nil},
		{"capabilities", 200, `{"details":{"family":"qwen25vl"},"capabilities":["completion","vision"]}`, nil},
		{"clip in families", 200, `{"details":{"family":"llama","families":["llama","clip"]}}`, nil},
		{"text only", 200, `{"details":{"family":"llama","families":["llama"]}}`, common.ErrModelNotFound},
		{"missing", 404, `{"error":"model 'x' not found"}`, common.ErrModelNotFound},
		{"server error is advisory", 500, `{"error":"boom"}`, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := showServer(t, tc.status, tc.body)
			defer srv.Close()
			err := newTestClient(srv.URL).CheckModel(context.Background(), "some-model")
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestCheckModel_NameHeuristic(t *testing.T) {
	srv := showServer(t, 200, `{"details":{"family":"llama"}}`)
	defer srv.Close()
	assert.NoError(t, newTestClient(srv.URL).CheckModel(context.Background(), "llama3.2-vision:11b"))
}

func TestListVisionModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[
			{"name":"llama3.2:3b","size":2000,"details":{"family":"llama"}},
			{"name":"llava:7b","size":4000,"details":{"family":"llama","families":["llama","clip"],"parameter_size":"7B"}},
			{"name":"gemma3:4b","size":3000,"details":{"family":"gemma3","quantization_level":"Q4_K_M"}},
			{"name":"llama3.2-vision:latest","size":7000,"details":{"family":"mllama"}}
		]}`))
	}))
	defer srv.Close()

	models, err := newTestClient(srv.URL).ListVisionModels(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"gemma3:4b", "llama3.2-vision:latest", "llava:7b"}, names)
	assert.Equal(t, "Q4_K_M", models[0].Quantization)
	assert.Equal(t, "7B", models[2].ParameterSize)
}

func TestListVisionModels_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err := newTestClient(url).ListVisionModels(context.Background())
	assert.ErrorIs(t, err, common.ErrInferenceUnavailable)
}
