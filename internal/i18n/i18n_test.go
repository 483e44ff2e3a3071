package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		lang string
		id   string
		want string
	}{
		{"en", "FeedbackHeadlineHard", "Excellent! You reached HARD level."},
		{"en", "SummaryEasy", "Basic performance - demonstrated foundational knowledge with room for growth."},
		{"ru", "ErrSessionNotFound", "Сессия не найдена"},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.id, func(t *testing.T) {
			ctx := initLang(t, tt.lang)
			if got := T(ctx, tt.id); got != tt.want {
				t.Errorf("T(%s) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	if got := Tp(ctx, "QuestionsRemaining", 1); got != "1 question remaining." {
		t.Errorf("Tp(QuestionsRemaining, 1) = %q", got)
	}
	if got := Tp(ctx, "QuestionsRemaining", 5); got != "5 questions remaining." {
		t.Errorf("Tp(QuestionsRemaining, 5) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "TabWarning", map[string]any{"Count": 3})
	if got != "Tab switch detected! (Total: 3)" {
		t.Errorf("Td(TabWarning) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestWithoutLocalizerUsesDefault(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatal(err)
	}
	if got := T(context.Background(), "AnalysisUnavailable"); got != "Analysis not available." {
		t.Errorf("T() = %q", got)
	}
}

func TestMiddlewareNegotiates(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatal(err)
	}
	var got string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "ErrSessionNotFound")
	}))

	tests := []struct {
		name   string
		target string
		accept string
		want   string
	}{
		{"default", "/", "", "Session not found"},
		{"header", "/", "ru-RU,ru;q=0.9,en;q=0.5", "Сессия не найдена"},
		{"query wins", "/?lang=en", "ru", "Session not found"},
		{"unsupported", "/", "de", "Session not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
