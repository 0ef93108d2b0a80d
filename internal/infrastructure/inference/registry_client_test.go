package inference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/underwritex/riskd/internal/config"
	"github.com/underwritex/riskd/internal/domain/models"
	"github.com/underwritex/riskd/pkg/errors"
	"github.com/underwritex/riskd/pkg/logger"
)

func newTestClient(url string, timeout time.Duration) *RegistryClient {
	return NewRegistryClient(config.ModelConfig{
		Enabled: true,
		URL:     url,
		Timeout: timeout,
		Version: "REGISTRY_V2",
	}, logger.NewNoopLogger())
}

func testVector() *models.FeatureVector {
	fv := &models.FeatureVector{}
	fv.MIB.TotalRecords = 2
	fv.RX.TotalFills = 3
	return fv
}

func TestInferSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[[0,{"output_feature_0":0.42,"model_version":"REGISTRY_V3"}]]}`))
	}))
	defer srv.Close()

	score, version, err := newTestClient(srv.URL, 500*time.Millisecond).Infer(context.Background(), testVector())

	require.NoError(t, err)
	assert.Equal(t, 0.42, score)
	assert.Equal(t, "REGISTRY_V3", version)
}

func TestInferDefaultsVersionWhenOmitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[[0,{"output_feature_0":0.1}]]}`))
	}))
	defer srv.Close()

	_, version, err := newTestClient(srv.URL, 500*time.Millisecond).Infer(context.Background(), testVector())

	require.NoError(t, err)
	assert.Equal(t, "REGISTRY_V2", version)
}

func TestInferTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"data":[[0,{"output_feature_0":0.5}]]}`))
	}))
	defer srv.Close()

	_, _, err := newTestClient(srv.URL, 20*time.Millisecond).Infer(context.Background(), testVector())

	require.Error(t, err)
	assert.True(t, errors.IsModelUnavailable(err))
}

func TestInferConnectionRefused(t *testing.T) {
	_, _, err := newTestClient("http://127.0.0.1:1/predict", 100*time.Millisecond).Infer(context.Background(), testVector())

	require.Error(t, err)
	assert.True(t, errors.IsModelUnavailable(err))
}

func TestInferNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, _, err := newTestClient(srv.URL, 500*time.Millisecond).Infer(context.Background(), testVector())

	require.Error(t, err)
	assert.True(t, errors.IsModelUnavailable(err))
}

func TestInferMalformedBodies(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "oops"},
		{"empty data", `{"data":[]}`},
		{"row without payload", `{"data":[[0]]}`},
		{"missing output key", `{"data":[[0,{"something_else":0.5}]]}`},
		{"score above one", `{"data":[[0,{"output_feature_0":1.5}]]}`},
		{"negative score", `{"data":[[0,{"output_feature_0":-0.2}]]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, _, err := newTestClient(srv.URL, 500*time.Millisecond).Infer(context.Background(), testVector())

			require.Error(t, err)
			assert.True(t, errors.IsModelUnavailable(err))
		})
	}
}

func TestInferHonorsCallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestClient(srv.URL, 5*time.Second).Infer(ctx, testVector())

	require.Error(t, err)
	assert.True(t, errors.IsModelUnavailable(err))
}
