package speech

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/pavelanni/interviewer/internal/gcp"
)

// GoogleConfig configures GoogleTranscriber.
type GoogleConfig struct {
	LanguageCode string
	// SampleRateHertz is sent for compressed formats that do not carry it
	// in a header. Browsers record WebM/Opus at 48000.
	SampleRateHertz int
	Retry           gcp.Retry
	Timeout         time.Duration
}

// GoogleTranscriber uses Google Cloud Speech-to-Text.
type GoogleTranscriber struct {
	client *gspeech.Client
	cfg    GoogleConfig
}

// NewGoogle opens a Speech client using credentials from the environment.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*GoogleTranscriber, error) {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	c, err := gspeech.NewClient(ctx, gcp.ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	slog.Info("speech transcriber ready", "language", cfg.LanguageCode)
	return &GoogleTranscriber{client: c, cfg: cfg}, nil
}

// Close releases the underlying connection.
func (g *GoogleTranscriber) Close() error {
	return g.client.Close()
}

// Transcribe implements Transcriber.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: recognitionConfig(mimeType, g.cfg),
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	}
	resp, err := gcp.Do(ctx, g.cfg.Retry, func(ctx context.Context) (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := g.client.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("speech recognize: %w", err)
	}
	return transcript(resp), nil
}

func recognitionConfig(mimeType string, cfg GoogleConfig) *speechpb.RecognitionConfig {
	rc := &speechpb.RecognitionConfig{
		LanguageCode:               cfg.LanguageCode,
		EnableAutomaticPunctuation: true,
		Encoding:                   encodingFor(mimeType),
	}
	switch rc.Encoding {
	case speechpb.RecognitionConfig_WEBM_OPUS, speechpb.RecognitionConfig_OGG_OPUS:
		if cfg.SampleRateHertz > 0 {
			rc.SampleRateHertz = int32(cfg.SampleRateHertz)
		}
	}
	return rc
}

func encodingFor(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	switch m := normalizeMIME(mimeType); {
	case strings.Contains(m, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	case strings.Contains(m, "ogg"), strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mp3"), strings.Contains(m, "mpeg"):
		return speechpb.RecognitionConfig_MP3
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// transcript joins the top alternative of every result.
func transcript(resp *speechpb.LongRunningRecognizeResponse) string {
	var parts []string
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
