package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestParseTaskKind(t *testing.T) {
	for raw, want := range map[string]TaskKind{
		"text2image":   TaskKindTextToImage,
		" Text2Video ": TaskKindTextToVideo,
		"IMAGE2IMAGE":  TaskKindImageToImage,
		"image2video":  TaskKindImageToVideo,
	} {
		got, err := ParseTaskKind(raw)
		if err != nil {
			t.Fatalf("ParseTaskKind(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseTaskKind(%q) = %s, want %s", raw, got, want)
		}
	}
	if _, err := ParseTaskKind("text2audio"); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("err = %v, want invalid task", err)
	}
}

func TestKindModality(t *testing.T) {
	if TaskKindTextToImage.Modality() != ModalityImage || TaskKindImageToImage.Modality() != ModalityImage {
		t.Fatalf("image kinds must map to image modality")
	}
	if TaskKindTextToVideo.Modality() != ModalityVideo || TaskKindImageToVideo.Modality() != ModalityVideo {
		t.Fatalf("video kinds must map to video modality")
	}
}

func TestValidateRequiresPrompt(t *testing.T) {
	task := &Task{Kind: TaskKindTextToImage}
	if err := task.Validate(); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("err = %v, want invalid task for empty prompt", err)
	}

	long := &Task{Kind: TaskKindTextToImage, Prompt: strings.Repeat("a", maxPromptLength+1)}
	if err := long.Validate(); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("err = %v, want invalid task for oversized prompt", err)
	}
}

func TestValidateImageConditionedKinds(t *testing.T) {
	missing := &Task{Kind: TaskKindImageToVideo, Prompt: "animate"}
	if err := missing.Validate(); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("err = %v, want invalid task without source image", err)
	}

	// An image-conditioned task may omit the prompt entirely.
	promptless := &Task{Kind: TaskKindImageToImage, SourceImageURL: "https://example.com/in.png"}
	if err := promptless.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateParamsMatchModality(t *testing.T) {
	crossed := &Task{Kind: TaskKindTextToImage, Prompt: "x", VideoParams: &VideoParams{DurationSeconds: 5}}
	if err := crossed.Validate(); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("err = %v, want invalid task for video params on image task", err)
	}
	crossed = &Task{Kind: TaskKindTextToVideo, Prompt: "x", ImageParams: &ImageParams{Quantity: 1}}
	if err := crossed.Validate(); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("err = %v, want invalid task for image params on video task", err)
	}
}

func TestValidateParamRanges(t *testing.T) {
	bad := &Task{Kind: TaskKindTextToImage, Prompt: "x", ImageParams: &ImageParams{Quantity: 5}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("err = %v, want invalid task for quantity 5", err)
	}
	bad = &Task{Kind: TaskKindTextToVideo, Prompt: "x", VideoParams: &VideoParams{DurationSeconds: 61}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("err = %v, want invalid task for 61s duration", err)
	}
	bad = &Task{Kind: TaskKindTextToImage, Prompt: "x", ImageParams: &ImageParams{AspectRatio: "wide"}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidTask) {
		t.Fatalf("err = %v, want invalid task for malformed aspect ratio", err)
	}

	ok := &Task{Kind: TaskKindTextToVideo, Prompt: "x", VideoParams: &VideoParams{DurationSeconds: 10, AspectRatio: "16:9", Resolution: "1280x720"}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStatusTerminal(t *testing.T) {
	if TaskStatusPending.Terminal() || TaskStatusProcessing.Terminal() {
		t.Fatalf("pending and processing must not be terminal")
	}
	if !TaskStatusCompleted.Terminal() || !TaskStatusFailed.Terminal() {
		t.Fatalf("completed and failed must be terminal")
	}
}

func TestClampProgress(t *testing.T) {
	cases := map[int]int{-5: 0, 0: 0, 42: 42, 100: 100, 140: 100}
	for in, want := range cases {
		if got := ClampProgress(in); got != want {
			t.Fatalf("ClampProgress(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestProviderConfigEligible(t *testing.T) {
	cfg := &ProviderConfig{Enabled: true, APIKey: "key"}
	if !cfg.Eligible() {
		t.Fatalf("enabled credentialed config should be eligible")
	}
	cfg.APIKey = "  "
	if cfg.Eligible() {
		t.Fatalf("blank credential must disqualify")
	}
	cfg = &ProviderConfig{Enabled: false, APIKey: "key"}
	if cfg.Eligible() {
		t.Fatalf("disabled config must be ineligible")
	}
	var nilCfg *ProviderConfig
	if nilCfg.Eligible() {
		t.Fatalf("nil config must be ineligible")
	}
}

func TestDeclaresModel(t *testing.T) {
	open := &ProviderConfig{}
	if !open.DeclaresModel("anything") {
		t.Fatalf("empty declared list accepts any model")
	}
	cfg := &ProviderConfig{Models: []string{"dall-e-3", "gpt-image-1"}}
	if !cfg.DeclaresModel("dall-e") {
		t.Fatalf("substring match should accept dall-e")
	}
	if cfg.DeclaresModel("sora-2") {
		t.Fatalf("unrelated model should be rejected")
	}
}
