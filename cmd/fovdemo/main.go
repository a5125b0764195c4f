// Command fovdemo wires one of each curriculum adapter's reachable surface
// (httpadapter, optionally fronted by rediscache) plus a real LLM provider
// for summarization, and runs a scripted multi-turn tutoring session
// including one barge-in, printing the assembled system message each turn.
// This is the repo's "does it actually work end to end" artifact (cf. the
// teacher's cmd/agent-demo); it is not part of the FOV core's public
// contract.
package main

import (
	"context"
	"fmt"
	"time"

	"fovtutor/internal/config"
	"fovtutor/internal/curriculum/httpadapter"
	"fovtutor/internal/curriculum/rediscache"
	"fovtutor/internal/fov/confidence"
	"fovtutor/internal/fov/coordinator"
	fovcontext "fovtutor/internal/fov/context"
	"fovtutor/internal/fov/expansion"
	"fovtutor/internal/fov/fovapi"
	"fovtutor/internal/llm"
	"fovtutor/internal/llm/anthropic"
	"fovtutor/internal/llm/google"
	"fovtutor/internal/llm/openai"
	"fovtutor/internal/observability"
	"fovtutor/internal/summarizer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("config load:", err)
		return
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx := context.Background()
	shutdownOTel, err := observability.InitOTel(ctx, cfg.OTel)
	if err != nil {
		fmt.Println("otel init:", err)
		return
	}
	defer shutdownOTel(ctx)

	server := startDemoCurriculumServer()
	defer server.Close()

	cfg.HTTP.BaseURL = server.URL
	cfg.HTTP.TokenURL = server.URL + "/token"
	cfg.HTTP.ClientID = "demo"
	cfg.HTTP.ClientSecret = "demo"

	var curriculum fovapi.CurriculumPort = httpadapter.New(cfg.HTTP)
	if cfg.Redis.Enabled {
		cached, err := rediscache.Wrap(curriculum, cfg.Redis)
		if err != nil {
			fmt.Println("redis cache disabled:", err)
		} else {
			curriculum = cached
		}
	}

	provider := buildProvider(cfg)
	sumModel := cfg.Summarizer.Model
	if sumModel == "" {
		sumModel = "demo-model"
	}
	sum := summarizer.FromProvider(provider, sumModel)

	manager := fovcontext.New(
		"You are a patient, encouraging math tutor speaking aloud to a student.",
		128_000,
		sum,
	)
	handler := expansion.New(curriculum, manager, 800)
	monitor := confidence.New()
	coord := coordinator.New(manager,
		coordinator.WithExpansionHandler(handler, curriculum),
		coordinator.WithMonitor(monitor),
	)

	runScriptedSession(ctx, coord)
}

func buildProvider(cfg config.Config) llm.Provider {
	switch cfg.Summarizer.Provider {
	case "openai":
		if cfg.OpenAI.APIKey != "" {
			return openai.New(cfg.OpenAI, nil)
		}
	case "google":
		if cfg.Google.APIKey != "" {
			if client, err := google.New(cfg.Google, nil); err == nil {
				return client
			}
		}
	case "anthropic":
		if cfg.Anthropic.APIKey != "" {
			return anthropic.New(cfg.Anthropic, nil)
		}
	}
	return echoProvider{}
}

// echoProvider stands in for a real LLM provider when no API key is
// configured, so the demo runs offline. It returns a fixed, plausible
// summary instead of calling out to a model.
type echoProvider struct{}

func (echoProvider) Chat(ctx context.Context, msgs []llm.Message, model string) (llm.Message, error) {
	return llm.Message{Role: "assistant", Content: "Student covered introductory fraction vocabulary and read simple fractions aloud."}, nil
}

func runScriptedSession(ctx context.Context, coord *coordinator.Coordinator) {
	topic := fovapi.TopicRef{ID: "fractions-intro"}
	if err := coord.SetCurrentTopic(ctx, topic); err != nil {
		fmt.Println("set current topic:", err)
		return
	}
	coord.SetCurrentSegment(&fovapi.Segment{ID: "seg-1", Content: "A fraction describes equal parts of a whole."})

	history := []fovapi.Turn{
		{Role: fovapi.RoleAssistant, Content: "Today we're looking at fractions. A fraction has a numerator and a denominator.", Timestamp: time.Now()},
		{Role: fovapi.RoleUser, Content: "What's a denominator again?", Timestamp: time.Now()},
	}
	coord.RecordUserQuestion("What's a denominator again?", true)

	printTurn(ctx, coord, 1, history, "")

	history = append(history,
		fovapi.Turn{Role: fovapi.RoleAssistant, Content: "The denominator is the number below the line; it counts how many equal parts make up the whole.", Timestamp: time.Now()},
	)
	rec, reco := coord.AnalyzeResponseConfidence(ctx, "The denominator is the number below the line; it counts how many equal parts make up the whole.")
	fmt.Printf("turn 2 confidence=%.2f trend=%s shouldExpand=%v\n", rec.Confidence, rec.Trend, reco.ShouldExpand)

	if reco.ShouldExpand {
		result, err := coord.ExpandContext(ctx, fovapi.Request{Query: "denominator", Scope: reco.Scope, Reason: reco.Reason})
		if err != nil {
			fmt.Println("expand context:", err)
		} else {
			fmt.Printf("expand_context returned %d item(s), %d tokens\n", len(result.Items), result.TotalTokens)
		}
	}

	printTurn(ctx, coord, 2, history, "")

	interrupted := fovapi.Segment{ID: "seg-2", Content: "Reading 3/4 aloud: three fourths."}
	bargeMessages := coord.HandleBargeIn(ctx, history, interrupted, "wait, can you say that again?")
	fmt.Println("--- turn 3 (barge-in) ---")
	fmt.Println(bargeMessages[0].Content)

	coord.RecordRepetitionRequest()
	coord.RecordTopicCompletion(fovapi.TopicSummary{
		TopicID:      topic.ID,
		Title:        "Introduction to Fractions",
		Summary:      "Covered numerator/denominator vocabulary and reading fractions aloud.",
		MasteryLevel: 0.7,
		CompletedAt:  time.Now(),
	})

	next := fovapi.TopicRef{ID: "fractions-addition"}
	if err := coord.SetCurrentTopic(ctx, next); err != nil {
		fmt.Println("advance topic:", err)
		return
	}
	printTurn(ctx, coord, 4, history, "")
}

func printTurn(ctx context.Context, coord *coordinator.Coordinator, n int, history []fovapi.Turn, bargeIn string) {
	messages := coord.BuildFoveatedMessages(ctx, history, bargeIn)
	fmt.Printf("--- turn %d ---\n", n)
	if len(messages) > 0 {
		fmt.Println(messages[0].Content)
	}
}
