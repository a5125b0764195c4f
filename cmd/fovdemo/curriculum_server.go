package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"fovtutor/internal/fov/fovapi"
)

// demoTopic is one entry in the toy curriculum the in-process server below
// serves over the same REST surface internal/curriculum/httpadapter talks
// to, so the demo exercises the real adapter end to end without requiring
// a host-operated curriculum service.
type demoTopic struct {
	fovapi.TopicMetadata
	Glossary       []fovapi.GlossaryTerm
	Misconceptions []fovapi.MisconceptionTrigger
	Chunks         []string
}

var demoCurriculum = []demoTopic{
	{
		TopicMetadata: fovapi.TopicMetadata{
			Title:      "Introduction to Fractions",
			Outline:    "What a fraction represents; numerator and denominator.",
			Objectives: []string{"identify numerator and denominator", "read a fraction aloud"},
		},
		Glossary: []fovapi.GlossaryTerm{
			{Term: "numerator", Definition: "the number above the fraction bar, counting the parts taken"},
			{Term: "denominator", Definition: "the number below the fraction bar, counting the parts in a whole"},
		},
		Misconceptions: []fovapi.MisconceptionTrigger{
			{TriggerPhrase: "bigger denominator means bigger fraction", Misconception: "denominator-size confusion", Remediation: "compare equal-numerator fractions with a shared visual whole"},
		},
		Chunks: []string{
			"A fraction describes equal parts of a whole: the denominator counts how many equal parts the whole is split into, the numerator counts how many of those parts are taken.",
			"Reading 3/4 aloud: three fourths, meaning three of four equal parts.",
		},
	},
	{
		TopicMetadata: fovapi.TopicMetadata{
			Title:      "Adding Fractions with Like Denominators",
			Outline:    "Adding fractions that already share a denominator.",
			Objectives: []string{"add numerators when denominators match", "simplify the resulting fraction"},
		},
		Glossary: []fovapi.GlossaryTerm{
			{Term: "like denominators", Definition: "two or more fractions sharing the same denominator"},
			{Term: "simplify", Definition: "reduce a fraction to lowest terms by dividing out a common factor"},
		},
		Misconceptions: []fovapi.MisconceptionTrigger{
			{TriggerPhrase: "add the denominators too", Misconception: "denominator-addition error", Remediation: "anchor back to the shared whole: the parts get added, the whole doesn't change"},
		},
		Chunks: []string{
			"When denominators match, add the numerators and keep the denominator unchanged: 1/4 + 2/4 = 3/4.",
			"Always check whether the sum can be simplified, e.g. 2/4 + 2/4 = 4/4 = 1.",
		},
	},
}

var demoTopicIndex = map[string]int{
	"fractions-intro":    0,
	"fractions-addition": 1,
}

// startDemoCurriculumServer starts an httptest server implementing the
// httpadapter REST contract (plus an OAuth2 client-credentials token
// endpoint) backed by demoCurriculum. Callers must call Close when done.
func startDemoCurriculumServer() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"access_token": "demo-token", "token_type": "bearer", "expires_in": 3600})
	})

	mux.HandleFunc("/outline", func(w http.ResponseWriter, r *http.Request) {
		outline := ""
		for i, t := range demoCurriculum {
			if i > 0 {
				outline += "\n"
			}
			outline += t.Title
		}
		writeJSON(w, map[string]string{"outline": outline})
	})

	mux.HandleFunc("/topics/at", func(w http.ResponseWriter, r *http.Request) {
		idx := parseIntQuery(r, "index")
		for id, i := range demoTopicIndex {
			if i == idx {
				writeJSON(w, map[string]any{"id": id, "ok": true})
				return
			}
		}
		writeJSON(w, map[string]any{"ok": false})
	})

	mux.HandleFunc("/context", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query   string `json:"query"`
			TopicID string `json:"topic_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		idx, ok := demoTopicIndex[req.TopicID]
		if !ok || len(demoCurriculum[idx].Chunks) == 0 {
			writeJSON(w, map[string]any{"content": "", "relevance": 0})
			return
		}
		writeJSON(w, map[string]any{"content": demoCurriculum[idx].Chunks[0], "relevance": 0.82})
	})

	mux.HandleFunc("/topics/", func(w http.ResponseWriter, r *http.Request) {
		id, sub := splitTopicPath(r.URL.Path)
		idx, ok := demoTopicIndex[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		topic := demoCurriculum[idx]
		switch sub {
		case "":
			writeJSON(w, topic.TopicMetadata)
		case "glossary":
			writeJSON(w, topic.Glossary)
		case "misconceptions":
			writeJSON(w, topic.Misconceptions)
		case "position":
			writeJSON(w, fovapi.Position{
				CurriculumTitle:  "Fractions Unit",
				CurrentTopicIdx:  idx,
				TotalTopics:      len(demoCurriculum),
				CurrentUnitTitle: "Fractions Unit",
			})
		case "neighbor":
			direction := r.URL.Query().Get("direction")
			offset := 1
			if direction == "previous" {
				offset = -1
			}
			target := idx + offset
			for nid, nidx := range demoTopicIndex {
				if nidx == target {
					writeJSON(w, map[string]any{"id": nid, "ok": true})
					return
				}
			}
			writeJSON(w, map[string]any{"ok": false})
		default:
			http.NotFound(w, r)
		}
	})

	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func parseIntQuery(r *http.Request, key string) int {
	v := r.URL.Query().Get(key)
	n := 0
	for _, ch := range v {
		if ch < '0' || ch > '9' {
			return -1
		}
		n = n*10 + int(ch-'0')
	}
	if v == "" {
		return -1
	}
	return n
}

func splitTopicPath(path string) (id string, sub string) {
	const prefix = "/topics/"
	rest := path[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i], rest[i+1:]
		}
	}
	return rest, ""
}
