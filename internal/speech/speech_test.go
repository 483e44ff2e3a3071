package speech

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/pavelanni/interviewer/internal/workpool"
)

func TestEncodingFor(t *testing.T) {
	tests := []struct {
		mime string
		want speechpb.RecognitionConfig_AudioEncoding
	}{
		{"audio/webm;codecs=opus", speechpb.RecognitionConfig_WEBM_OPUS},
		{"Audio/WebM", speechpb.RecognitionConfig_WEBM_OPUS},
		{"audio/ogg", speechpb.RecognitionConfig_OGG_OPUS},
		{"audio/wav", speechpb.RecognitionConfig_LINEAR16},
		{"audio/x-wav", speechpb.RecognitionConfig_LINEAR16},
		{"audio/flac", speechpb.RecognitionConfig_FLAC},
		{"audio/mpeg", speechpb.RecognitionConfig_MP3},
		{"", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			if got := encodingFor(tt.mime); got != tt.want {
				t.Errorf("encodingFor(%q) = %v, want %v", tt.mime, got, tt.want)
			}
		})
	}
}

func TestRecognitionConfigSampleRate(t *testing.T) {
	cfg := GoogleConfig{LanguageCode: "en-US", SampleRateHertz: 48000}
	if got := recognitionConfig("audio/webm", cfg).SampleRateHertz; got != 48000 {
		t.Errorf("webm sample rate = %d, want 48000", got)
	}
	if got := recognitionConfig("audio/wav", cfg).SampleRateHertz; got != 0 {
		t.Errorf("wav sample rate = %d, want 0 (read from header)", got)
	}
}

func TestTranscript(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " I would use a hash map "}, {Transcript: "ignored"}}},
		{},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "for constant lookups."}}},
	}}
	want := "I would use a hash map for constant lookups."
	if got := transcript(resp); got != want {
		t.Errorf("transcript() = %q, want %q", got, want)
	}
	if got := transcript(nil); got != "" {
		t.Errorf("transcript(nil) = %q, want empty", got)
	}
}

func TestWithPool(t *testing.T) {
	tr := WithPool(Static{Text: "hello"}, workpool.New(1))
	got, err := tr.Transcribe(context.Background(), []byte{1}, "audio/webm")
	if err != nil || got != "hello" {
		t.Fatalf("Transcribe() = %q, %v", got, err)
	}

	_, err = WithPool(Disabled{}, workpool.New(1)).Transcribe(context.Background(), nil, "")
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
}
