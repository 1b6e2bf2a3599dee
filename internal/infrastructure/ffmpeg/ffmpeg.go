package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"vconv/internal/domain/media"
)

const (
	maxTargetHeight = 1080
	outputFPS       = "25"
)

// Converter wraps ffmpeg/ffprobe calls.
type Converter struct {
	FFmpeg  string
	FFprobe string
}

// NewConverter creates ffmpeg adapter using the binaries found on PATH.
func NewConverter() *Converter {
	return &Converter{FFmpeg: "ffmpeg", FFprobe: "ffprobe"}
}

// Available reports whether both binaries can be found.
func (c *Converter) Available() bool {
	if _, err := exec.LookPath(c.FFmpeg); err != nil {
		return false
	}
	_, err := exec.LookPath(c.FFprobe)
	return err == nil
}

// Probe reads stream details with ffprobe.
func (c *Converter) Probe(ctx context.Context, inputPath string) (media.VideoInfo, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}
	cmd := exec.CommandContext(ctx, c.FFprobe, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return media.VideoInfo{}, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseProbe(out)
}

// Convert encodes inputPath to H.264/AAC MP4. Vertical sources are letterboxed
// into a 16:9 frame.
func (c *Converter) Convert(ctx context.Context, inputPath, outputPath string, info media.VideoInfo) error {
	tmpPath := outputPath + ".tmp.mp4"
	_ = os.Remove(tmpPath)

	if err := run(ctx, c.FFmpeg, convertArgs(inputPath, tmpPath, info)...); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	_ = os.Remove(outputPath)
	return os.Rename(tmpPath, outputPath)
}

func convertArgs(inputPath, outputPath string, info media.VideoInfo) []string {
	args := []string{"-y", "-i", inputPath, "-sn", "-map", "0:v:0", "-map", "0:a:0?",
		"-c:v", "libx264", "-preset", "veryfast", "-r", outputFPS}

	if info.IsVertical {
		height := info.Height
		if height <= 0 || height > maxTargetHeight {
			height = maxTargetHeight
		}
		height -= height % 2
		width := height * 16 / 9
		width -= width % 2
		vf := fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black",
			width, height, width, height)
		args = append(args, "-vf", vf, "-crf", "23")
	} else {
		args = append(args, "-crf", "20")
	}

	if info.HasAudio {
		args = append(args, "-c:a", "aac", "-ac", "2", "-b:a", "192k", "-ar", "48000")
	} else {
		args = append(args, "-an")
	}

	return append(args, "-f", "mp4", "-movflags", "+faststart", outputPath)
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(data []byte) (media.VideoInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return media.VideoInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var (
		info     media.VideoInfo
		hasVideo bool
	)
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if !hasVideo {
				hasVideo = true
				info.Width, info.Height = s.Width, s.Height
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if !hasVideo {
		return media.VideoInfo{}, errors.New("no video stream found")
	}

	info.IsVertical = info.Height > info.Width
	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	return info, nil
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
