package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Encoder transcodes audio with the ffmpeg binary.
type Encoder struct {
	bin     string
	bitrate string
}

// New returns an encoder using the given binary, "ffmpeg" if empty.
func New(bin string) *Encoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Encoder{bin: bin, bitrate: "128k"}
}

// Check returns an error if the binary can't be found.
func (f *Encoder) Check() error {
	if _, err := exec.LookPath(f.bin); err != nil {
		return fmt.Errorf("ffmpeg: binary %q not found: %w", f.bin, err)
	}
	return nil
}

// MP3 encodes WAV bytes to MP3 through stdin and stdout.
func (f *Encoder) MP3(ctx context.Context, wav []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, f.bin,
		"-hide_banner", "-loglevel", "error",
		"-f", "wav", "-i", "pipe:0",
		"-codec:a", "libmp3lame", "-b:a", f.bitrate,
		"-f", "mp3", "pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(wav)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		return nil, fmt.Errorf("ffmpeg: couldn't encode mp3: %w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}
