package analyze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/igolaizola/songseed/pkg/sound"
)

type Config struct {
	Debug      bool
	Input      string
	Output     string
	Threshold  float64
	MinSilence time.Duration
}

// Run prints the audio report of a wav or mp3 file and plots its waveform
// and rms.
func Run(ctx context.Context, cfg *Config) error {
	a, err := sound.NewAnalyzer(ctx, cfg.Input)
	if err != nil {
		return err
	}
	fmt.Printf("Duration: %s, sample rate: %d, channels: %d\n", a.Duration(), a.SampleRate(), a.Channels())
	fmt.Printf("Peak: %.3f\n", a.Peak())
	for _, f := range a.Silences(cfg.Threshold, cfg.MinSilence) {
		fmt.Printf("Silence: duration: %s, position %s, final %t\n", f.Duration, f.Start, f.Final)
	}
	fmt.Printf("Fade out: %t\n", a.HasFadeOut())

	if cfg.Output == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return fmt.Errorf("analyze: couldn't create output folder: %w", err)
	}
	name := filepath.Base(cfg.Input)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	out := filepath.Join(cfg.Output, name)

	rms, err := a.PlotRMS()
	if err != nil {
		return fmt.Errorf("analyze: couldn't plot rms: %w", err)
	}
	if err := os.WriteFile(out+"-rms.png", rms, 0644); err != nil {
		return fmt.Errorf("analyze: couldn't write rms plot: %w", err)
	}
	wave, err := a.PlotWave(name)
	if err != nil {
		return fmt.Errorf("analyze: couldn't plot wave: %w", err)
	}
	if err := os.WriteFile(out+"-wave.png", wave, 0644); err != nil {
		return fmt.Errorf("analyze: couldn't write wave plot: %w", err)
	}
	return nil
}
