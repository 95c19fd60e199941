package translate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dasmlab/vaani/pkg/translate"

	"github.com/stretchr/testify/require"
)

func newLibreTranslateServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/translate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Q      []string `json:"q"`
			Source string   `json:"source"`
			Target string   `json:"target"`
			APIKey string   `json:"api_key"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "secret", req.APIKey)

		out := make([]string, len(req.Q))
		for i, q := range req.Q {
			out[i] = req.Target + ":" + q
		}

		json.NewEncoder(w).Encode(map[string]any{"translatedText": out})
	})
	mux.HandleFunc("/languages", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"code":"en","name":"English"},{"code":"hi","name":"Hindi"}]`))
	})

	return httptest.NewServer(mux)
}

func TestLibreTranslateBatch(t *testing.T) {
	server := newLibreTranslateServer(t)
	defer server.Close()

	c := translate.NewLibreTranslateClient(server.URL, "secret", nil, quietLogger())

	result, err := c.Translate(context.Background(), translate.Request{
		Data:   []string{"one", "two", "three"},
		Source: "en",
		Target: "hi",
	})

	require.NoError(t, err)
	require.Equal(t, []string{"hi:one", "hi:two", "hi:three"}, result)
}

func TestLibreTranslateLanguagesAndHealth(t *testing.T) {
	server := newLibreTranslateServer(t)
	defer server.Close()

	c := translate.NewLibreTranslateClient(server.URL, "secret", nil, quietLogger())

	require.NoError(t, c.CheckHealth(context.Background()))

	codes, err := c.SupportedLanguages(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"en", "hi"}, codes)
}

func TestLibreTranslateHealthRejectsNonOK(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := translate.NewLibreTranslateClient(server.URL, "", nil, quietLogger())

	require.ErrorIs(t, c.CheckHealth(context.Background()), translate.ErrProviderRejected)
}
