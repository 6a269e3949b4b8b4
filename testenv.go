package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"toneprint/analyzer"
	"toneprint/audio"
	"toneprint/cue"
	"toneprint/log"
	"toneprint/machine"
	"toneprint/prefs"
)

// runTestMode drives the state machine headlessly from stdin commands,
// with the fake audio backend replaying wavPath in place of a real mic.
// Without an API key the analyzer is faked too, so the whole flow runs
// offline.
func runTestMode(wavPath, format string, p *prefs.Prefs, gem *analyzer.Gemini) {
	cue.Disable()

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	var anlz analyzer.Analyzer = gem
	apiKey := p.ResolveAPIKey()
	if apiKey == "" {
		// No key: run fully offline against the fake.
		anlz = analyzer.NewFake("Calm and steady, low-pitched, with even pacing and little pitch variation.", nil)
		apiKey = "offline"
	}

	log.SessionStart(anlz.Name(), "test", format)

	var fakeCtx *audio.FakeContext
	if wavPath != "" {
		var err error
		fakeCtx, err = audio.NewFakeContext(wavPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
			os.Exit(1)
		}
	}

	st := machine.New()
	var rec *recorder

	runEffects := func(fx []machine.Effect) {
		for _, f := range fx {
			switch f := f.(type) {
			case machine.EffectStartCapture:
				if fakeCtx == nil {
					st, _ = st.CaptureFailed(machine.FailureUnsupported)
					fmt.Println("ERR " + st.Err)
					continue
				}
				var err error
				rec, err = startRecorder(fakeCtx, nil, format, nil)
				if err != nil {
					log.Errorf("capture start error: %v", err)
					st, _ = st.CaptureFailed(machine.FailureDevice)
					fmt.Println("ERR " + st.Err)
				}
			case machine.EffectReleaseMic:
				if rec != nil {
					rec.release()
					rec = nil
				}
			case machine.EffectAnalyze:
				res, err := anlz.Analyze(context.Background(), analyzer.Request{
					Data:   f.Data,
					MIME:   f.MIME,
					APIKey: apiKey,
				})
				if err != nil {
					log.Errorf("analysis error: %s", analyzer.Detail(err))
					st, _ = st.AnalysisDone("", err.Error())
					fmt.Println("ERR " + st.Err)
					continue
				}
				st, _ = st.AnalysisDone(res.Description, "")
				recordAnalysis(res.Description)
				log.AnalysisText(res.Description)
				fmt.Println("RESULT " + res.Description)
			case machine.EffectPlayCue:
				// cues are disabled in test mode
			}
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		var fx []machine.Effect

		switch cmd {
		case "", "#":
			continue
		case "SELECT":
			data, err := os.ReadFile(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", arg, err)
				continue
			}
			st, fx = st.SelectFile(filepath.Base(arg), data, mimeFromPath(arg))
		case "RECORD":
			st, fx = st.StartRecording()
		case "STOP":
			if rec == nil {
				st, fx = st.StopRecording(nil, "")
			} else {
				data, mimeType, _ := rec.stop()
				st, fx = st.StopRecording(data, mimeType)
			}
		case "SWITCH":
			tab := machine.TabUpload
			if arg == "record" {
				tab = machine.TabRecord
			}
			st, fx = st.SwitchTab(tab)
		case "ANALYZE":
			st, fx = st.Analyze(apiKey)
			if st.Err != "" {
				fmt.Println("ERR " + st.Err)
			}
		case "CLEAR":
			st, fx = st.Clear()
		case "EXAMPLE":
			if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(exampleDescriptions) {
				st, fx = st.ShowExample(exampleDescriptions[n-1])
			}
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "QUIT":
			if rec != nil {
				rec.release()
			}
			analysisMu.Lock()
			n := analysisCount
			analysisMu.Unlock()
			log.SessionEnd(n)
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		}

		runEffects(fx)
	}
}
