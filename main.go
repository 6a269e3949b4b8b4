package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"toneprint/analyzer"
	"toneprint/audio"
	"toneprint/doctor"
	"toneprint/log"
	"toneprint/prefs"
	"toneprint/update"
)

var version = "dev"

var (
	analysisMu    sync.Mutex
	analysisCount int
	lastAnalysis  string
)

func recordAnalysis(text string) {
	analysisMu.Lock()
	analysisCount++
	lastAnalysis = text
	analysisMu.Unlock()
}

var shutdownOnce sync.Once

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		analysisMu.Lock()
		n := analysisCount
		analysisMu.Unlock()
		if n > 0 {
			log.SessionEnd(n)
		}
		log.Close()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

func main() {
	godotenv.Load()
	run()
}

func run() {
	if len(os.Args) > 1 && os.Args[1] == "update" {
		if version == "dev" {
			fmt.Println("Dev build — cannot check for updates.")
			os.Exit(0)
		}
		fmt.Printf("toneprint %s — checking for updates...\n", version)
		rel, err := update.CheckLatest(version)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if rel == nil {
			fmt.Println("Already up to date.")
			os.Exit(0)
		}
		fmt.Printf("Update available: %s -> %s\n", version, rel.Version)
		fmt.Print("Continue? [y/N] ")
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			os.Exit(0)
		}
		fmt.Printf("Downloading %s...\n", rel.Version)
		if err := update.Apply(rel); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated to %s\n", rel.Version)
		os.Exit(0)
	}

	fileFlag := flag.String("file", "", "Preselect an audio file to analyze")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	formatFlag := flag.String("format", "wav", "Recording payload format: wav or flac")
	modelFlag := flag.String("model", analyzer.DefaultModel, "Gemini model used for analysis")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	profileFlag := flag.String("profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("toneprint %s\n", version)
		os.Exit(0)
	}

	if *doctorFlag {
		os.Exit(doctor.Run(*modelFlag))
	}

	switch *formatFlag {
	case "wav", "flac":
	default:
		fmt.Printf("Error: unknown format %q (use wav or flac)\n", *formatFlag)
		os.Exit(1)
	}

	prefsPath, err := prefs.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	p, err := prefs.Load(prefsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading preferences: %v\n", err)
		os.Exit(1)
	}

	gem := analyzer.NewGemini(*modelFlag)

	if *testFlag {
		args := flag.Args()
		wavPath := ""
		if len(args) > 0 {
			wavPath = args[0]
		}
		runTestMode(wavPath, *formatFlag, p, gem)
		return
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	log.SessionStart(gem.Name(), "tui", *formatFlag)

	// A missing capture backend degrades to upload-only, it is not fatal.
	audioCtx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintln(os.Stderr, "Warning: no audio capture backend; recording disabled.")
		audioCtx = nil
	} else {
		defer audioCtx.Close()
	}

	var selectedDevice *audio.DeviceInfo
	if audioCtx != nil {
		if *deviceFlag != "" {
			if devices, err := audioCtx.Devices(); err == nil {
				for i := range devices {
					if devices[i].Name == *deviceFlag {
						selectedDevice = &devices[i]
						break
					}
				}
			}
			if selectedDevice == nil {
				log.Warnf("device not found: %s", *deviceFlag)
			}
		} else if *setupFlag {
			selectedDevice, err = audio.SelectDevice(audioCtx)
			if err != nil {
				log.Warnf("device selection failed: %v", err)
				fmt.Printf("Warning: device selection failed: %v\n", err)
				fmt.Println("Falling back to default device")
				selectedDevice = nil
			}
		}
		if selectedDevice != nil && audio.IsBluetooth(selectedDevice.Name) {
			fmt.Println("Warning: bluetooth microphones often use a low-quality telephony profile.")
		}
	}

	// Pre-open the TLS connection so the first analysis skips the handshake.
	go gem.Warm()

	deps := &appDeps{
		audioCtx: audioCtx,
		device:   selectedDevice,
		analyzer: gem,
		prefs:    p,
		format:   *formatFlag,
	}

	tuiMu.Lock()
	tuiProgram = NewTUIProgram(deps)
	tuiMu.Unlock()

	update.StartBackgroundCheck(version, log.Dir(), func(rel update.Release) {
		log.Info("update_available: " + rel.Version)
		tuiSend(updateAvailableMsg{Version: rel.Version})
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		gracefulShutdown()
	}()

	if *fileFlag != "" {
		path := *fileFlag
		go func() {
			// Give the program a moment to start its event loop.
			time.Sleep(50 * time.Millisecond)
			tuiSend(selectFileMsg{Path: path})
		}()
	}

	if _, err := tuiProgram.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		os.Exit(1)
	}
	gracefulShutdown()
}
