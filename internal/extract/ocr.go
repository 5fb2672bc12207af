package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// OCR turns an image file into text.
type OCR interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// CommandOCR runs a tesseract-compatible command line:
// <command> <image> stdout <args...>.
type CommandOCR struct {
	Command string
	Args    []string
}

// NewCommandOCR creates a CommandOCR. An empty command means tesseract.
func NewCommandOCR(command string, args []string) *CommandOCR {
	if command == "" {
		command = "tesseract"
	}
	return &CommandOCR{Command: command, Args: args}
}

// Recognize runs the command and returns its standard output.
func (o *CommandOCR) Recognize(ctx context.Context, imagePath string) (string, error) {
	args := append([]string{imagePath, "stdout"}, o.Args...)
	cmd := exec.CommandContext(ctx, o.Command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("run %s: %w", o.Command, err)
		}
		return "", fmt.Errorf("run %s: %w: %s", o.Command, err, msg)
	}
	return stdout.String(), nil
}
