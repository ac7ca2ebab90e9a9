// Command client drives the transcript search API: it creates a session,
// loads a transcript (audio upload or JSON import), optionally corrects it
// and runs a search.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"transcript-search-service/internal/observability/logging"
	"transcript-search-service/internal/schema"
	"transcript-search-service/internal/service/search"
	"transcript-search-service/internal/service/session"
)

type searchResponse struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Results []search.Result `json:"results"`
}

type correctResponse struct {
	Report struct {
		JobID      string `json:"jobId"`
		State      string `json:"state"`
		Applied    int    `json:"applied"`
		Discarded  int    `json:"discarded"`
		Skipped    int    `json:"skipped"`
		DurationMs int64  `json:"durationMs"`
	} `json:"report"`
}

type apiError struct {
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func main() {
	server := flag.String("server", "http://localhost:8080", "API base URL")
	audio := flag.String("audio", "", "Audio file to transcribe")
	transcript := flag.String("transcript", "", "JSON file with {text, language, segments} to import")
	strategy := flag.String("correct", "", "Correct the transcript first: wordcount or batched")
	query := flag.String("q", "", "Search query")
	contextWindow := flag.Int("context", 1, "Neighbouring segments shown around each hit")
	threshold := flag.Float64("threshold", 0.7, "Minimum fuzzy score")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console", TimeFormat: time.RFC3339})

	if (*audio == "") == (*transcript == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -audio or -transcript is required")
		flag.Usage()
		os.Exit(2)
	}

	client := resty.New().
		SetBaseURL(*server).
		SetTimeout(10 * time.Minute).
		SetError(&apiError{})
	client.JSONMarshal = sonic.Marshal
	client.JSONUnmarshal = sonic.Unmarshal

	var info session.Info
	resp, err := client.R().SetResult(&info).Post("/v1/sessions")
	must(resp, err, "create session")
	log.Info().Str("sessionId", info.ID).Msg("Session created")
	base := "/v1/sessions/" + info.ID

	if *audio != "" {
		resp, err = client.R().SetFile("audio", *audio).Post(base + "/transcribe")
		must(resp, err, "transcribe")
	} else {
		data, err := os.ReadFile(*transcript)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read transcript file")
		}
		var req schema.ImportRequest
		if err := sonic.Unmarshal(data, &req); err != nil {
			log.Fatal().Err(err).Msg("Failed to parse transcript file")
		}
		resp, err = client.R().SetBody(req).Put(base + "/transcript")
		must(resp, err, "import")
	}
	log.Info().Msg("Transcript loaded")

	if *strategy != "" {
		var cr correctResponse
		resp, err = client.R().
			SetBody(schema.CorrectRequest{Strategy: *strategy}).
			SetResult(&cr).
			Post(base + "/correct")
		must(resp, err, "correct")
		log.Info().
			Str("jobId", cr.Report.JobID).
			Str("state", cr.Report.State).
			Int("applied", cr.Report.Applied).
			Int("discarded", cr.Report.Discarded).
			Int("skipped", cr.Report.Skipped).
			Int64("durationMs", cr.Report.DurationMs).
			Msg("Correction finished")
	}

	if *query == "" {
		return
	}
	var sr searchResponse
	resp, err = client.R().
		SetQueryParams(map[string]string{
			"q":         *query,
			"context":   strconv.Itoa(*contextWindow),
			"threshold": strconv.FormatFloat(*threshold, 'f', -1, 64),
		}).
		SetResult(&sr).
		Get(base + "/search")
	must(resp, err, "search")

	fmt.Printf("%d result(s) for %q\n", sr.Count, sr.Query)
	for _, r := range sr.Results {
		fmt.Printf("[%s] %-8s %.2f  %s >>%s<< %s\n",
			clock(r.Timestamp), r.Tier, r.Score, r.PrecedingContext, r.MatchedText, r.FollowingContext)
	}
}

func must(resp *resty.Response, err error, step string) {
	if err != nil {
		log.Fatal().Err(err).Str("step", step).Msg("Request failed")
	}
	if resp.IsError() {
		e, _ := resp.Error().(*apiError)
		ev := log.Fatal().Str("step", step).Int("status", resp.StatusCode())
		if e != nil {
			ev = ev.Str("message", e.Message).Strs("details", e.Details)
		}
		ev.Msg("Request rejected")
	}
}

func clock(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
