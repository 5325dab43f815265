package openaiimg

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/johnpaul085/free-sora-sub000/internal/domain"
)

func testConfig(endpoint string, models ...string) *domain.ProviderConfig {
	return &domain.ProviderConfig{
		Name:        "openai-images",
		Modality:    domain.ModalityImage,
		AdapterKind: domain.AdapterKindOpenAIImage,
		Enabled:     true,
		Models:      models,
		Endpoint:    endpoint,
		APIKey:      "sk-test",
	}
}

func TestInvokeReturnsResultURL(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"url": "https://cdn.example.com/img.png"}},
		})
	}))
	defer srv.Close()

	adapter := New(srv.Client())
	task := &domain.Task{Kind: domain.TaskKindTextToImage, Prompt: "a red fox", Model: "dall-e-3"}
	invocation, err := adapter.Invoke(context.Background(), testConfig(srv.URL), task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invocation.ResultURL != "https://cdn.example.com/img.png" {
		t.Fatalf("result url = %q", invocation.ResultURL)
	}
	if invocation.JobID != "" {
		t.Fatalf("sync adapter must not return a job id, got %q", invocation.JobID)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotPath != "/v1/images/generations" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["model"] != "dall-e-3" || gotBody["prompt"] != "a red fox" {
		t.Fatalf("request body = %v", gotBody)
	}
}

func TestInvokeDecodesBase64Payload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": "aGVsbG8="}},
		})
	}))
	defer srv.Close()

	adapter := New(srv.Client())
	invocation, err := adapter.Invoke(context.Background(), testConfig(srv.URL), &domain.Task{Kind: domain.TaskKindTextToImage, Prompt: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invocation.ResultURL != "data:image/png;base64,aGVsbG8=" {
		t.Fatalf("result url = %q", invocation.ResultURL)
	}
}

func TestInvokeEmptySuccessIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]string{}})
	}))
	defer srv.Close()

	adapter := New(srv.Client())
	_, err := adapter.Invoke(context.Background(), testConfig(srv.URL), &domain.Task{Kind: domain.TaskKindTextToImage, Prompt: "x"})
	if !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("err = %v, want provider rejection for empty 2xx", err)
	}
}

func TestInvokeSurfacesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "content_policy_violation", "message": "rejected"},
		})
	}))
	defer srv.Close()

	adapter := New(srv.Client())
	_, err := adapter.Invoke(context.Background(), testConfig(srv.URL), &domain.Task{Kind: domain.TaskKindTextToImage, Prompt: "x"})
	if !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("err = %v, want wrapped provider rejection", err)
	}
}

func TestInvokeFallsBackAcrossDeclaredModels(t *testing.T) {
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		model, _ := body["model"].(string)
		models = append(models, model)
		if model == "dall-e-3" {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "model_not_found", "message": "The model does not exist"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"url": "https://cdn.example.com/img.png"}},
		})
	}))
	defer srv.Close()

	adapter := New(srv.Client())
	task := &domain.Task{Kind: domain.TaskKindTextToImage, Prompt: "x"}
	invocation, err := adapter.Invoke(context.Background(), testConfig(srv.URL, "dall-e-3", "gpt-image-1"), task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invocation.ResultURL == "" {
		t.Fatalf("fallback produced no result")
	}
	if len(models) != 2 || models[0] != "dall-e-3" || models[1] != "gpt-image-1" {
		t.Fatalf("attempted models = %v", models)
	}
}

func TestInvokeExplicitModelNeverFallsBack(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "model_not_found", "message": "The model does not exist"},
		})
	}))
	defer srv.Close()

	adapter := New(srv.Client())
	task := &domain.Task{Kind: domain.TaskKindTextToImage, Prompt: "x", Model: "dall-e-3"}
	_, err := adapter.Invoke(context.Background(), testConfig(srv.URL, "dall-e-3", "gpt-image-1"), task)
	if err == nil {
		t.Fatalf("expected rejection for explicit model")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 for explicit model", calls)
	}
}

func TestInvokeRejectsBadEndpoint(t *testing.T) {
	adapter := New(nil)
	cfg := testConfig("not a url")
	_, err := adapter.Invoke(context.Background(), cfg, &domain.Task{Kind: domain.TaskKindTextToImage, Prompt: "x"})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}

func TestSizeForAspect(t *testing.T) {
	cases := map[string]string{
		"16:9": "1792x1024",
		"9:16": "1024x1792",
		"1:1":  "1024x1024",
		"":     "1024x1024",
		"4:3":  "1024x1024",
	}
	for aspect, want := range cases {
		if got := sizeForAspect(aspect); got != want {
			t.Fatalf("sizeForAspect(%q) = %q, want %q", aspect, got, want)
		}
	}
}
