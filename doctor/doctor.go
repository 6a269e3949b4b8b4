package doctor

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"toneprint/analyzer"
	"toneprint/audio"
	"toneprint/cue"
	"toneprint/encoder"
	"toneprint/prefs"
)

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(model string) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("toneprint doctor - interactive system diagnostics")
	fmt.Println("=================================================")

	allPass := true

	apiKey, keyOK := checkAPIKey()
	if !keyOK {
		allPass = false
	}
	if allPass && !checkMicAndAnalysis(apiKey, model) {
		allPass = false
	}
	if allPass && !checkCue() {
		allPass = false
	}
	if allPass && !checkClipboard() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See details above.")
	}

	if allPass {
		return 0
	}
	return 1
}

func checkAPIKey() (string, bool) {
	fmt.Println()
	fmt.Println("[1/4] API key")

	path, err := prefs.DefaultPath()
	if err != nil {
		fmt.Printf("  FAIL: cannot resolve prefs path: %v\n", err)
		return "", false
	}
	p, err := prefs.Load(path)
	if err != nil {
		fmt.Printf("  FAIL: cannot load prefs: %v\n", err)
		return "", false
	}

	key := p.ResolveAPIKey()
	if key == "" {
		fmt.Print("Enter Gemini API key: ")
		reader := bufio.NewReader(os.Stdin)
		key, _ = reader.ReadString('\n')
		key = strings.TrimSpace(key)
	}
	if key == "" {
		fmt.Println("  FAIL: no API key. Set GEMINI_API_KEY or save one in prefs.")
		return "", false
	}
	if err := prefs.ValidateAPIKey(key); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return "", false
	}
	fmt.Println("  PASS: key present and well-formed")
	return key, true
}

func checkMicAndAnalysis(apiKey, model string) bool {
	fmt.Println()
	fmt.Println("[2/4] Microphone and tone analysis")

	reader := bufio.NewReader(os.Stdin)

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}

	var device *audio.DeviceInfo
	if len(devices) == 1 {
		device = &devices[0]
		fmt.Printf("Using device: %s\n", device.Name)
	} else {
		fmt.Println()
		fmt.Println("Select input device:")
		for i, d := range devices {
			fmt.Printf("  %d. %s\n", i+1, d.Name)
		}
		fmt.Printf("Choice [1-%d]: ", len(devices))

		devChoice, _ := reader.ReadString('\n')
		devChoice = strings.TrimSpace(devChoice)
		idx := 0
		if devChoice != "" {
			fmt.Sscanf(devChoice, "%d", &idx)
			idx--
		}
		if idx < 0 || idx >= len(devices) {
			fmt.Printf("  FAIL: invalid choice\n")
			return false
		}
		device = &devices[idx]
		fmt.Printf("Selected: %s\n", device.Name)
	}

	fmt.Println()
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	stop := make(chan struct{})
	go func() {
		time.Sleep(3 * time.Second)
		close(stop)
	}()

	pcm, err := recordAudio(ctx, device, stop)
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	if len(pcm) == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}

	if rms := pcmRMS(pcm); rms < 0.005 {
		fmt.Printf("  FAIL: microphone appears silent (level %.4f)\n", rms)
		return false
	}

	wav, mimeType, err := encodePCM(pcm)
	if err != nil {
		fmt.Printf("  FAIL: encode error: %v\n", err)
		return false
	}

	fmt.Printf("  Recorded %.1f KB, analyzing...\n", float64(len(wav))/1024)

	g := analyzer.NewGemini(model)
	result, err := g.Analyze(context.Background(), analyzer.Request{
		Data:   wav,
		MIME:   mimeType,
		APIKey: apiKey,
	})
	if err != nil {
		fmt.Printf("  FAIL: analysis error: %v\n", err)
		return false
	}

	fmt.Printf("\n  Tone description: %s\n\n", strings.TrimSpace(result.Description))

	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Does this describe your voice? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: analysis verified by user")
		return true
	}

	fmt.Println("  FAIL: analysis not confirmed")
	return false
}

func recordAudio(ctx audio.Context, device *audio.DeviceInfo, stop <-chan struct{}) ([]byte, error) {
	var pcmBuf []byte
	var bufMu sync.Mutex
	var stopped bool
	done := make(chan struct{})

	config := audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}

	captureDevice, err := ctx.NewCapture(device, config)
	if err != nil {
		return nil, err
	}

	captureDevice.SetCallback(func(data []byte, frameCount uint32) {
		bufMu.Lock()
		if stopped {
			bufMu.Unlock()
			return
		}
		pcmBuf = append(pcmBuf, data...)
		bufMu.Unlock()
	})

	if err := captureDevice.Start(); err != nil {
		captureDevice.Close()
		return nil, err
	}

	fmt.Print("  Recording")
	ticker := time.NewTicker(500 * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	<-stop
	close(done)

	captureDevice.Stop()
	fmt.Println(" done")
	captureDevice.Close()

	bufMu.Lock()
	stopped = true
	raw := pcmBuf
	bufMu.Unlock()

	return raw, nil
}

func pcmRMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(n))
}

func encodePCM(pcm []byte) ([]byte, string, error) {
	enc, err := encoder.New("wav")
	if err != nil {
		return nil, "", err
	}
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	for off := 0; off < len(samples); off += encoder.BlockSize {
		end := off + encoder.BlockSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := enc.EncodeBlock(samples[off:end]); err != nil {
			return nil, "", err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, "", err
	}
	return enc.Bytes(), enc.MIME(), nil
}

func checkCue() bool {
	fmt.Println()
	fmt.Println("[3/4] Audio feedback")

	fmt.Println("Playing the success cue...")
	cue.Play(cue.Success)
	time.Sleep(600 * time.Millisecond)

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Did you hear a short rising tone? [y/n]: ")
	confirm, _ := reader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: audio feedback verified by user")
		return true
	}
	fmt.Println("  FAIL: audio feedback not confirmed")
	return false
}

func checkClipboard() bool {
	fmt.Println()
	fmt.Println("[4/4] Clipboard")

	testStr := "toneprint-doctor-test"
	if err := clipboard.WriteAll(testStr); err != nil {
		fmt.Printf("  FAIL: clipboard copy failed: %v\n", err)
		return false
	}

	got, err := clipboard.ReadAll()
	if err != nil {
		fmt.Printf("  FAIL: clipboard read failed: %v\n", err)
		return false
	}
	if got != testStr {
		fmt.Printf("  FAIL: clipboard round-trip (got %q, want %q)\n", got, testStr)
		return false
	}
	fmt.Println("  PASS: clipboard round-trip")
	return true
}
